package pack

import (
	"fmt"
	"hash/crc32"
	"log/slog"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/gitcas/gitcas/internal/codec"
	"github.com/gitcas/gitcas/internal/config"
	"github.com/gitcas/gitcas/pkg/errors"
	"github.com/gitcas/gitcas/pkg/types"
)

// Source is one object handed to the builder: its content hash, kind,
// raw bytes, and (for delta-encoded objects being repacked) the base
// it was encoded against.
type Source struct {
	Hash      types.Hash
	Kind      types.ObjectKind
	Data      []byte
	DeltaBase *types.Hash
}

// kindRank orders object kinds inside a pack. Commits and trees come
// first so the objects walked most often during history traversal
// cluster at the front.
var kindRank = map[types.ObjectKind]int{
	types.KindCommit: 0,
	types.KindTree:   1,
	types.KindBlob:   2,
	types.KindTag:    3,
}

// Builder creates packs under the configured limits.
type Builder struct {
	maxPackSize      int64
	compressionLevel int
	savingsThreshold int
	selector         *codec.Selector
	log              *slog.Logger
}

// NewBuilder builds a Builder. The selector decides per-entry codecs;
// logger may be nil.
func NewBuilder(cfg *config.Config, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{
		maxPackSize:      config.MustParseSize(cfg.Pack.MaxPackSize),
		compressionLevel: cfg.Pack.CompressionLevel,
		savingsThreshold: cfg.Codec.SavingsThresholdPercent,
		selector:         codec.NewSelector(&cfg.Codec),
		log:              log,
	}
}

// CreatePack bundles sources into a pack and derives its index.
func (b *Builder) CreatePack(sources []Source) (*types.PackUnit, *types.PackIndex, error) {
	if len(sources) == 0 {
		return nil, nil, errors.New(errors.ErrCodeInvalidInput, "cannot create empty pack").In("pack").During("create")
	}

	ordered := make([]Source, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := kindRank[ordered[i].Kind], kindRank[ordered[j].Kind]
		if ri != rj {
			return ri < rj
		}
		if len(ordered[i].Data) != len(ordered[j].Data) {
			return len(ordered[i].Data) < len(ordered[j].Data)
		}
		return ordered[i].Hash.Less(ordered[j].Hash)
	})

	unit := &types.PackUnit{
		FormatVersion: types.PackFormatVersion,
		Objects:       make([]types.PackedEntry, 0, len(ordered)),
		CreatedAt:     time.Now(),
	}

	digest := xxhash.New()
	totalSize := int64(0)

	for _, src := range ordered {
		if len(src.Data) == 0 {
			return nil, nil, errors.Newf(errors.ErrCodeEmptyPayload, "object %s has no data", src.Hash).In("pack").During("create")
		}

		entry, err := b.packEntry(src)
		if err != nil {
			return nil, nil, err
		}

		totalSize += entry.Size
		if totalSize > b.maxPackSize {
			return nil, nil, errors.Newf(errors.ErrCodePackSizeExceeded,
				"pack would reach %d bytes, ceiling is %d", totalSize, b.maxPackSize).
				In("pack").During("create").WithDetail("objects", len(unit.Objects))
		}

		_, _ = digest.Write(entry.Data)
		unit.Objects = append(unit.Objects, entry)
	}

	unit.TotalSize = totalSize
	unit.Checksum = digest.Sum64()
	unit.ID = fmt.Sprintf("pack-%016x", unit.Checksum)

	index := buildIndex(unit)

	b.log.Debug("pack created",
		"pack_id", unit.ID,
		"objects", len(unit.Objects),
		"total_size", unit.TotalSize)

	return unit, index, nil
}

func (b *Builder) packEntry(src Source) (types.PackedEntry, error) {
	entry := types.PackedEntry{
		Hash:             src.Hash,
		Kind:             src.Kind,
		Algorithm:        types.AlgorithmNone,
		Data:             append([]byte(nil), src.Data...),
		UncompressedSize: int64(len(src.Data)),
		DeltaBase:        src.DeltaBase,
	}

	alg := b.selector.ChooseAlgorithm(src.Data, false)
	if alg != types.AlgorithmNone {
		payload, err := codec.Compress(src.Data, alg, b.compressionLevel)
		if err != nil {
			return types.PackedEntry{}, errors.Wrap(errors.ErrCodeInternal, "pack entry compression failed", err).
				In("pack").During("create").WithDetail("hash", src.Hash.String())
		}
		if codec.ShouldCompress(payload.UncompressedSize, payload.CompressedSize, b.savingsThreshold) {
			entry.Algorithm = alg
			entry.Compressed = true
			entry.Data = payload.Data
			entry.Checksum = payload.Checksum
		}
	}

	entry.Size = int64(len(entry.Data))
	entry.CRC32 = crc32.ChecksumIEEE(entry.Data)
	return entry, nil
}

// VerifyPack recomputes the aggregate checksum over the stored entry
// payloads and compares it with the recorded one.
func VerifyPack(unit *types.PackUnit) bool {
	if unit == nil {
		return false
	}
	digest := xxhash.New()
	for _, entry := range unit.Objects {
		_, _ = digest.Write(entry.Data)
	}
	return digest.Sum64() == unit.Checksum
}
