package pack

import (
	"hash/crc32"
	"sort"

	"github.com/gitcas/gitcas/internal/codec"
	"github.com/gitcas/gitcas/pkg/errors"
	"github.com/gitcas/gitcas/pkg/types"
)

// buildIndex derives the fanout table, sorted hash list, and offset
// table for a freshly built pack.
func buildIndex(unit *types.PackUnit) *types.PackIndex {
	index := &types.PackIndex{
		PackID:  unit.ID,
		Hashes:  make([]types.Hash, 0, len(unit.Objects)),
		Offsets: make(map[types.Hash]types.PackOffset, len(unit.Objects)),
	}

	offset := int64(0)
	for i, entry := range unit.Objects {
		index.Hashes = append(index.Hashes, entry.Hash)
		index.Offsets[entry.Hash] = types.PackOffset{
			Offset:     offset,
			Size:       entry.Size,
			CRC32:      entry.CRC32,
			Kind:       entry.Kind,
			EntryIndex: i,
		}
		offset += entry.Size
	}

	sort.Slice(index.Hashes, func(i, j int) bool {
		return index.Hashes[i].Less(index.Hashes[j])
	})

	// Cumulative count of hashes whose leading byte is <= the bucket
	// value. The final bucket always equals the object count.
	counts := [256]uint32{}
	for _, h := range index.Hashes {
		counts[h[0]]++
	}
	cumulative := uint32(0)
	for i := 0; i < 256; i++ {
		cumulative += counts[i]
		index.Fanout[i] = cumulative
	}

	return index
}

// Lookup finds a hash in the index using the fanout table to bound a
// binary search to a single leading-byte bucket.
func Lookup(index *types.PackIndex, hash types.Hash) (types.PackOffset, bool) {
	lead := hash[0]
	lo := uint32(0)
	if lead > 0 {
		lo = index.Fanout[lead-1]
	}
	hi := index.Fanout[lead]
	if lo >= hi {
		return types.PackOffset{}, false
	}

	bucket := index.Hashes[lo:hi]
	pos := sort.Search(len(bucket), func(i int) bool {
		return !bucket[i].Less(hash)
	})
	if pos >= len(bucket) || bucket[pos] != hash {
		return types.PackOffset{}, false
	}

	off, ok := index.Offsets[hash]
	return off, ok
}

// GetObject extracts and decodes one object from a pack. It returns
// (nil, false, nil) when the hash is not in the index; CRC and
// checksum failures are corruption errors.
func GetObject(unit *types.PackUnit, index *types.PackIndex, hash types.Hash) ([]byte, bool, error) {
	off, ok := Lookup(index, hash)
	if !ok {
		return nil, false, nil
	}
	if off.EntryIndex < 0 || off.EntryIndex >= len(unit.Objects) {
		return nil, false, errors.Newf(errors.ErrCodePackCorrupt, "index points past pack: entry %d of %d", off.EntryIndex, len(unit.Objects)).
			In("pack").During("get")
	}

	entry := unit.Objects[off.EntryIndex]
	if entry.Hash != hash {
		return nil, false, errors.Newf(errors.ErrCodePackCorrupt, "index and pack disagree on entry %d", off.EntryIndex).
			In("pack").During("get")
	}
	if crc := crc32.ChecksumIEEE(entry.Data); crc != off.CRC32 {
		return nil, false, errors.Newf(errors.ErrCodeCRCMismatch, "entry %s crc %08x, index says %08x", hash, crc, off.CRC32).
			In("pack").During("get")
	}

	if !entry.Compressed {
		return append([]byte(nil), entry.Data...), true, nil
	}

	data, err := codec.Decompress(&types.CompressedPayload{
		Algorithm:        entry.Algorithm,
		Level:            0,
		Data:             entry.Data,
		CompressedSize:   entry.Size,
		UncompressedSize: entry.UncompressedSize,
		Checksum:         entry.Checksum,
	})
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
