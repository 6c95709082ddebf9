package delta

import (
	"bytes"
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

func newTestDiffer() *Differ {
	cfg := config.NewDefault()
	return NewDiffer(&cfg.Delta)
}

func TestCreateApplyRoundTrip(t *testing.T) {
	d := newTestDiffer()

	base := []byte(strings.Repeat("shared content between revisions\n", 40))
	tests := []struct {
		name   string
		target []byte
	}{
		{"identical", append([]byte(nil), base...)},
		{"appended tail", append(append([]byte(nil), base...), []byte("new trailing line\n")...)},
		{"prepended head", append([]byte("header line\n"), base...)},
		{"middle edit", bytes.Replace(base, []byte("between"), []byte("across"), 3)},
		{"unrelated", []byte(strings.Repeat("completely different data ", 30))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := d.CreateDelta(base, tt.target, 0, hashing.ContentHash(base), hashing.ContentHash(tt.target))
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, 1, rec.ChainDepth)
			assert.Equal(t, int64(len(tt.target)), rec.UncompressedSize)

			out, err := d.ApplyDelta(base, rec)
			require.NoError(t, err)
			assert.Equal(t, tt.target, out)
		})
	}
}

func TestCreateDeltaDeterministic(t *testing.T) {
	d := newTestDiffer()

	rng := rand.New(rand.NewSource(3))
	base := make([]byte, 2048)
	rng.Read(base)
	target := append([]byte(nil), base...)
	copy(target[500:], []byte("edited region"))

	a, err := d.CreateDelta(base, target, 0, types.Hash{}, types.Hash{})
	require.NoError(t, err)
	b, err := d.CreateDelta(base, target, 0, types.Hash{}, types.Hash{})
	require.NoError(t, err)

	assert.Equal(t, a.Instructions, b.Instructions)
	assert.Equal(t, a.CompressedSize, b.CompressedSize)
}

func TestShortRunsBecomeInserts(t *testing.T) {
	d := newTestDiffer()

	base := []byte("abcdefghijklmnopqrstuvwxyz")
	// Shares only runs of 3 bytes with the base, below the minimum
	// copy length of 4.
	target := []byte("abcXdefXghiX")

	rec, err := d.CreateDelta(base, target, 0, types.Hash{}, types.Hash{})
	require.NoError(t, err)
	for _, ins := range rec.Instructions {
		assert.Equal(t, types.OpInsert, ins.Op)
	}

	out, err := d.ApplyDelta(base, rec)
	require.NoError(t, err)
	assert.Equal(t, target, out)
}

func TestLongRunsBecomeCopies(t *testing.T) {
	d := newTestDiffer()

	base := []byte(strings.Repeat("0123456789", 50))
	target := base[100:400]

	rec, err := d.CreateDelta(base, target, 0, types.Hash{}, types.Hash{})
	require.NoError(t, err)
	require.Len(t, rec.Instructions, 1)
	assert.Equal(t, types.OpCopy, rec.Instructions[0].Op)
	assert.Equal(t, int64(300), rec.Instructions[0].Length)
	// Ties resolve to the lowest base offset.
	assert.Equal(t, int64(0), rec.Instructions[0].Offset)
}

func TestChainDepthCap(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Delta.MaxChainDepth = 3
	d := NewDiffer(&cfg.Delta)

	base := []byte(strings.Repeat("chain depth test data\n", 20))
	target := append(append([]byte(nil), base...), []byte("tail")...)

	rec, err := d.CreateDelta(base, target, 2, types.Hash{}, types.Hash{})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 3, rec.ChainDepth)

	// Base already at the cap: decline, not error.
	rec, err = d.CreateDelta(base, target, 3, types.Hash{}, types.Hash{})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestTryCreateDeltaDeclines(t *testing.T) {
	d := newTestDiffer()

	base := []byte(strings.Repeat("baseline revision content\n", 40))
	similar := append([]byte(nil), base...)
	similar[42] ^= 0x01

	t.Run("accepts similar target", func(t *testing.T) {
		rec, err := d.TryCreateDelta(base, similar, 0, types.Hash{}, types.Hash{})
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Less(t, rec.CompressedSize, rec.UncompressedSize)
	})

	t.Run("declines tiny target", func(t *testing.T) {
		rec, err := d.TryCreateDelta(base, []byte("under fifty bytes"), 0, types.Hash{}, types.Hash{})
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("declines empty base", func(t *testing.T) {
		rec, err := d.TryCreateDelta(nil, similar, 0, types.Hash{}, types.Hash{})
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("declines at depth cap", func(t *testing.T) {
		rec, err := d.TryCreateDelta(base, similar, d.MaxChainDepth(), types.Hash{}, types.Hash{})
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("declines unrelated target", func(t *testing.T) {
		rng := rand.New(rand.NewSource(9))
		unrelated := make([]byte, 1024)
		rng.Read(unrelated)
		rec, err := d.TryCreateDelta(base, unrelated, 0, types.Hash{}, types.Hash{})
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

func TestApplyDeltaCorruption(t *testing.T) {
	d := newTestDiffer()
	base := []byte("short base")

	tests := []struct {
		name string
		rec  *types.DeltaRecord
	}{
		{
			"copy past end of base",
			&types.DeltaRecord{
				Instructions:     []types.DeltaInstruction{{Op: types.OpCopy, Offset: 5, Length: 100}},
				UncompressedSize: 100,
			},
		},
		{
			"negative offset",
			&types.DeltaRecord{
				Instructions:     []types.DeltaInstruction{{Op: types.OpCopy, Offset: -1, Length: 4}},
				UncompressedSize: 4,
			},
		},
		{
			"length mismatch",
			&types.DeltaRecord{
				Instructions:     []types.DeltaInstruction{{Op: types.OpInsert, Data: []byte("abcd")}},
				UncompressedSize: 10,
			},
		},
		{
			"empty insert",
			&types.DeltaRecord{
				Instructions:     []types.DeltaInstruction{{Op: types.OpInsert}},
				UncompressedSize: 0,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.ApplyDelta(base, tt.rec)
			require.Error(t, err)
			assert.True(t, errors.IsCorruption(err))
		})
	}

	_, err := d.ApplyDelta(base, nil)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestCreateDeltaEmptyTarget(t *testing.T) {
	d := newTestDiffer()
	_, err := d.CreateDelta([]byte("base"), nil, 0, types.Hash{}, types.Hash{})
	assert.True(t, errors.IsInvalidInput(err))
}
