package tiering

import (
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/gitcas/gitcas/internal/codec"
	"github.com/gitcas/gitcas/internal/config"
	"github.com/gitcas/gitcas/internal/delta"
	"github.com/gitcas/gitcas/pkg/errors"
	"github.com/gitcas/gitcas/pkg/types"
)

// BaseHint carries the resolved similar-object reference supplied
// with a write: the base's descriptor and its reconstructed bytes.
type BaseHint struct {
	Object *types.StoredObject
	Data   []byte
}

// Result is the outcome of one write through the policy: the
// descriptor plus which strategy won, for logging and metrics.
type Result struct {
	Object  *types.StoredObject
	Outcome types.WriteOutcome
}

// Policy implements the write-path state machine. It owns the dedup
// registry; payload persistence and caching are the engine's job.
type Policy struct {
	registry *DedupRegistry
	differ   *delta.Differ
	selector *codec.Selector

	savingsThreshold int
	compressionLevel int
	minDeltaTarget   int

	inlineMax   int64
	chunkedMax  int64
	externalMax int64
	deltaMax    int64

	log *slog.Logger
}

// NewPolicy builds a Policy from engine configuration. logger may be
// nil.
func NewPolicy(cfg *config.Config, log *slog.Logger) *Policy {
	if log == nil {
		log = slog.Default()
	}
	return &Policy{
		registry:         NewDedupRegistry(),
		differ:           delta.NewDiffer(&cfg.Delta),
		selector:         codec.NewSelector(&cfg.Codec),
		savingsThreshold: cfg.Codec.SavingsThresholdPercent,
		compressionLevel: cfg.Codec.DefaultLevel,
		minDeltaTarget:   cfg.Delta.MinTargetSize,
		inlineMax:        config.MustParseSize(cfg.Tiering.InlineMaxSize),
		chunkedMax:       config.MustParseSize(cfg.Tiering.ChunkedMaxSize),
		externalMax:      config.MustParseSize(cfg.Tiering.ExternalMaxSize),
		deltaMax:         config.MustParseSize(cfg.Tiering.DeltaMaxSize),
		log:              log,
	}
}

// Registry exposes the dedup registry for read paths and GC hooks.
func (p *Policy) Registry() *DedupRegistry {
	return p.registry
}

// Differ exposes the delta engine for read-path reconstruction.
func (p *Policy) Differ() *delta.Differ {
	return p.differ
}

// Store runs the write pipeline for data identified by hash. hint is
// the optional similar-object reference; kind defaults to blob when
// empty. The returned descriptor is registered with reference count 1
// (or the existing descriptor with its count incremented on a dedup
// hit).
func (p *Policy) Store(data []byte, hash types.Hash, kind types.ObjectKind, hint *BaseHint) (*Result, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyPayload, "cannot store empty object").In("tiering").During("store")
	}
	if kind == "" {
		kind = types.KindBlob
	}

	// CheckDedup: an existing canonical object absorbs the write.
	if existing := p.registry.Lookup(hash); existing != nil {
		if _, err := p.registry.IncrementRef(hash); err != nil {
			return nil, err
		}
		p.log.Debug("dedup hit", "hash", hash.String(), "ref_count", existing.RefCount)
		return &Result{Object: existing, Outcome: types.OutcomeDedup}, nil
	}

	obj := &types.StoredObject{
		ContentHash:  hash,
		Kind:         kind,
		OriginalSize: int64(len(data)),
		Algorithm:    types.AlgorithmNone,
		RefCount:     1,
		CreatedAt:    time.Now(),
	}
	outcome := types.OutcomeRaw

	// TryDelta: only with a usable hint and depth budget remaining.
	if rec := p.tryDelta(data, hash, hint); rec != nil {
		obj.Delta = rec
		obj.StoredSize = rec.CompressedSize
		obj.Tier = types.TierDelta
		obj.Checksum = xxhash.Sum64(data)
		outcome = types.OutcomeDelta
	} else if payload := p.tryCompress(data); payload != nil {
		// TryCompress: whole-object compression past the savings bar.
		obj.Algorithm = payload.Algorithm
		obj.Compressed = true
		obj.Checksum = payload.Checksum
		obj.StoredSize = payload.CompressedSize
		obj.InlinePayload = payload.Data
		outcome = types.OutcomeCompressed
	} else {
		obj.StoredSize = int64(len(data))
		obj.Checksum = xxhash.Sum64(data)
		obj.InlinePayload = append([]byte(nil), data...)
	}

	// ChooseTier on the final stored size; deltas keep their tier.
	if obj.Delta == nil {
		obj.Tier = p.chooseTier(obj.StoredSize)
	}

	// Commit.
	if err := p.registry.Register(obj); err != nil {
		return nil, err
	}

	p.log.Debug("object stored",
		"hash", hash.String(),
		"tier", obj.Tier,
		"outcome", outcome,
		"original_size", obj.OriginalSize,
		"stored_size", obj.StoredSize)

	return &Result{Object: obj, Outcome: outcome}, nil
}

func (p *Policy) tryDelta(data []byte, hash types.Hash, hint *BaseHint) *types.DeltaRecord {
	if hint == nil || hint.Object == nil || len(hint.Data) == 0 {
		return nil
	}
	if len(data) < p.minDeltaTarget {
		return nil
	}

	rec, err := p.differ.TryCreateDelta(hint.Data, data, hint.Object.ChainDepth(), hint.Object.ContentHash, hash)
	if err != nil {
		// Delta failure is never fatal to the write; fall through to
		// compression. The base object is left untouched.
		p.log.Warn("delta attempt failed", "hash", hash.String(), "error", err)
		return nil
	}
	return rec
}

func (p *Policy) tryCompress(data []byte) *types.CompressedPayload {
	alg := p.selector.ChooseAlgorithm(data, false)
	if alg == types.AlgorithmNone {
		return nil
	}

	payload, err := codec.Compress(data, alg, p.compressionLevel)
	if err != nil {
		p.log.Warn("compression attempt failed", "algorithm", alg, "error", err)
		return nil
	}
	if !codec.ShouldCompress(payload.UncompressedSize, payload.CompressedSize, p.savingsThreshold) {
		return nil
	}
	return payload
}

func (p *Policy) chooseTier(storedSize int64) types.StorageTier {
	switch {
	case storedSize <= p.inlineMax:
		return types.TierInline
	case storedSize <= p.chunkedMax:
		return types.TierChunked
	case storedSize <= p.externalMax:
		return types.TierExternal
	case storedSize <= p.deltaMax:
		return types.TierDelta
	default:
		return types.TierPacked
	}
}
