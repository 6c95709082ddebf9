package pack

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitcas/gitcas/internal/config"
	"github.com/gitcas/gitcas/pkg/errors"
	"github.com/gitcas/gitcas/pkg/hashing"
	"github.com/gitcas/gitcas/pkg/types"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(config.NewDefault(), nil)
}

func makeSources(n int) []Source {
	sources := make([]Source, 0, n)
	for i := 0; i < n; i++ {
		data := []byte(strings.Repeat(fmt.Sprintf("object %d content line\n", i), 20+i))
		sources = append(sources, Source{
			Hash: hashing.ContentHash(data),
			Kind: types.KindBlob,
			Data: data,
		})
	}
	return sources
}

func TestCreatePackAndExtract(t *testing.T) {
	b := newTestBuilder(t)
	sources := makeSources(20)

	unit, index, err := b.CreatePack(sources)
	require.NoError(t, err)
	require.Len(t, unit.Objects, 20)
	assert.Equal(t, types.PackFormatVersion, unit.FormatVersion)
	assert.Equal(t, 20, index.ObjectCount())
	assert.True(t, VerifyPack(unit))

	for _, src := range sources {
		data, found, err := GetObject(unit, index, src.Hash)
		require.NoError(t, err)
		require.True(t, found, "object %s missing", src.Hash)
		assert.Equal(t, src.Data, data)
	}
}

func TestCreatePackOrdering(t *testing.T) {
	b := newTestBuilder(t)

	blob := []byte(strings.Repeat("blob data ", 200))
	smallBlob := []byte(strings.Repeat("small ", 40))
	tree := []byte(strings.Repeat("tree entry ", 150))
	commit := []byte(strings.Repeat("commit message ", 100))

	sources := []Source{
		{Hash: hashing.ContentHash(blob), Kind: types.KindBlob, Data: blob},
		{Hash: hashing.ContentHash(commit), Kind: types.KindCommit, Data: commit},
		{Hash: hashing.ContentHash(smallBlob), Kind: types.KindBlob, Data: smallBlob},
		{Hash: hashing.ContentHash(tree), Kind: types.KindTree, Data: tree},
	}

	unit, _, err := b.CreatePack(sources)
	require.NoError(t, err)

	// Commits first, then trees, then blobs by ascending size.
	kinds := make([]types.ObjectKind, 0, 4)
	for _, e := range unit.Objects {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []types.ObjectKind{types.KindCommit, types.KindTree, types.KindBlob, types.KindBlob}, kinds)
	assert.LessOrEqual(t, unit.Objects[2].UncompressedSize, unit.Objects[3].UncompressedSize)

	// Identical input, identical layout.
	again, _, err := b.CreatePack(sources)
	require.NoError(t, err)
	assert.Equal(t, unit.Checksum, again.Checksum)
	assert.Equal(t, unit.ID, again.ID)
}

func TestFanoutInvariants(t *testing.T) {
	b := newTestBuilder(t)
	sources := makeSources(50)

	_, index, err := b.CreatePack(sources)
	require.NoError(t, err)

	prev := uint32(0)
	for i := 0; i < 256; i++ {
		assert.GreaterOrEqual(t, index.Fanout[i], prev, "fanout bucket %d decreased", i)
		prev = index.Fanout[i]
	}
	assert.Equal(t, uint32(50), index.Fanout[255])

	for i := 1; i < len(index.Hashes); i++ {
		assert.True(t, index.Hashes[i-1].Less(index.Hashes[i]), "hashes not sorted at %d", i)
	}
	assert.Len(t, index.Offsets, len(index.Hashes))
}

func TestLookupMissingHash(t *testing.T) {
	b := newTestBuilder(t)
	unit, index, err := b.CreatePack(makeSources(5))
	require.NoError(t, err)

	missing := hashing.ContentHash([]byte("never packed"))
	data, found, err := GetObject(unit, index, missing)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, data)
}

func TestVerifyPackDetectsFlippedByte(t *testing.T) {
	b := newTestBuilder(t)
	unit, index, err := b.CreatePack(makeSources(10))
	require.NoError(t, err)
	require.True(t, VerifyPack(unit))

	unit.Objects[3].Data[0] ^= 0x01
	assert.False(t, VerifyPack(unit))

	// Extraction of the damaged entry fails its CRC.
	hash := unit.Objects[3].Hash
	_, _, err = GetObject(unit, index, hash)
	require.Error(t, err)
	assert.True(t, errors.IsCorruption(err))
}

func TestCreatePackSizeCeiling(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Pack.MaxPackSize = "2KB"
	b := NewBuilder(cfg, nil)

	// Incompressible payloads so the stored size tracks the input.
	rng := rand.New(rand.NewSource(21))
	sources := make([]Source, 4)
	for i := range sources {
		data := make([]byte, 1024)
		rng.Read(data)
		sources[i] = Source{Hash: hashing.ContentHash(data), Kind: types.KindBlob, Data: data}
	}

	_, _, err := b.CreatePack(sources)
	require.Error(t, err)
	assert.True(t, errors.IsCapacity(err))
}

func TestCreatePackRejectsEmpty(t *testing.T) {
	b := newTestBuilder(t)

	_, _, err := b.CreatePack(nil)
	assert.True(t, errors.IsInvalidInput(err))

	_, _, err = b.CreatePack([]Source{{Hash: types.Hash{1}, Kind: types.KindBlob}})
	assert.True(t, errors.IsInvalidInput(err))
}

func TestPackCompressesCompressibleEntries(t *testing.T) {
	b := newTestBuilder(t)
	data := []byte(strings.Repeat("highly repetitive content for the packer\n", 100))

	unit, _, err := b.CreatePack([]Source{{Hash: hashing.ContentHash(data), Kind: types.KindBlob, Data: data}})
	require.NoError(t, err)
	require.Len(t, unit.Objects, 1)

	entry := unit.Objects[0]
	assert.True(t, entry.Compressed)
	assert.Less(t, entry.Size, entry.UncompressedSize)
	assert.Equal(t, unit.TotalSize, entry.Size)
}
