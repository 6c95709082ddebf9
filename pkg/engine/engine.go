package engine

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/gitcas/gitcas/internal/cache"
	"github.com/gitcas/gitcas/internal/codec"
	"github.com/gitcas/gitcas/internal/config"
	"github.com/gitcas/gitcas/internal/logging"
	"github.com/gitcas/gitcas/internal/metrics"
	"github.com/gitcas/gitcas/internal/pack"
	"github.com/gitcas/gitcas/internal/storage"
	"github.com/gitcas/gitcas/internal/tiering"
	"github.com/gitcas/gitcas/pkg/errors"
	"github.com/gitcas/gitcas/pkg/hashing"
	"github.com/gitcas/gitcas/pkg/types"
)

// Engine coordinates the write policy, pack builder, object cache, and
// blob store behind one surface.
type Engine struct {
	cfg       *config.Config
	policy    *tiering.Policy
	builder   *pack.Builder
	cache     *cache.ObjectCache
	store     types.BlobStore
	collector *metrics.Collector
	log       *slog.Logger

	mu    sync.Mutex
	packs map[string]*packRecord
}

type packRecord struct {
	unit  *types.PackUnit
	index *types.PackIndex
}

// New creates an Engine from configuration. Defaults: an in-memory
// blob store, slog's default logger, and a collector built from
// cfg.Metrics.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, "invalid engine configuration", err).In("engine")
	}

	e := &Engine{
		cfg:   cfg,
		packs: make(map[string]*packRecord),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.log == nil {
		e.log = logging.New(cfg.Logging.Level, nil)
	}
	if e.store == nil {
		e.store = storage.NewMemoryStore()
	}
	if e.collector == nil {
		collector, err := metrics.NewCollector(&cfg.Metrics)
		if err != nil {
			return nil, err
		}
		e.collector = collector
	}

	e.policy = tiering.NewPolicy(cfg, e.log)
	e.builder = pack.NewBuilder(cfg, e.log)
	e.cache = cache.NewObjectCache(&cfg.Cache)

	return e, nil
}

// PutObject writes data under its content hash and returns the stored
// descriptor. A zero hash is derived from the data. Duplicate content
// resolves to the existing object with its reference count bumped.
func (e *Engine) PutObject(ctx context.Context, data []byte, hash types.Hash, opts ...PutOption) (*types.StoredObject, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyPayload, "cannot store empty object").In("engine").During("put")
	}
	if hash.IsZero() {
		hash = hashing.ContentHash(data)
	}

	var po putOptions
	for _, opt := range opts {
		opt(&po)
	}

	hint := e.resolveHint(ctx, po.similarTo)

	result, err := e.policy.Store(data, hash, po.kind, hint)
	if err != nil {
		return nil, err
	}
	obj := result.Object

	if result.Outcome == types.OutcomeDedup {
		e.collector.RecordDedupHit()
		return obj, nil
	}

	if hint != nil {
		if result.Outcome == types.OutcomeDelta {
			e.collector.RecordDeltaDecision("accepted")
		} else {
			e.collector.RecordDeltaDecision("declined")
		}
	}
	if obj.Compressed {
		e.collector.RecordCompressionDecision(obj.Algorithm, true)
	}

	// Inline payloads stay in the descriptor; larger tiers move the
	// stored bytes into the blob store keyed by content hash.
	if obj.Delta == nil && obj.Tier != types.TierInline && len(obj.InlinePayload) > 0 {
		ref := obj.ContentHash.String()
		if err := e.store.Put(ctx, ref, obj.InlinePayload); err != nil {
			return nil, err
		}
		obj.ExternalRef = ref
		obj.InlinePayload = nil
	}

	e.collector.RecordWrite(obj.Tier, result.Outcome, obj.OriginalSize, obj.StoredSize)
	e.collector.UpdateTrackedObjects(e.policy.Registry().Len())
	e.cache.Put(hash, obj.Kind, data)
	e.collector.UpdateCacheEntries(e.cache.Stats())

	return obj, nil
}

// GetObject resolves hash through the dedup registry and reconstructs
// the original bytes.
func (e *Engine) GetObject(ctx context.Context, hash types.Hash) ([]byte, error) {
	obj := e.policy.Registry().Lookup(hash)
	if obj == nil {
		return nil, errors.Newf(errors.ErrCodeObjectNotFound, "no object for hash %s", hash).In("engine").During("get")
	}
	return e.materialize(ctx, obj)
}

// Release drops one reference to the object; the descriptor survives
// at zero references until an external collector reclaims it.
func (e *Engine) Release(hash types.Hash) (int64, error) {
	return e.policy.Registry().DecrementRef(hash)
}

// Lookup returns the stored descriptor for hash, or nil.
func (e *Engine) Lookup(hash types.Hash) *types.StoredObject {
	return e.policy.Registry().Lookup(hash)
}

// BuildPack bundles the named objects into a pack, rewrites their
// descriptors to point into it, and retires their blob-store payloads.
func (e *Engine) BuildPack(ctx context.Context, hashes []types.Hash) (*types.PackUnit, *types.PackIndex, error) {
	registry := e.policy.Registry()

	sources := make([]pack.Source, 0, len(hashes))
	for _, hash := range hashes {
		obj := registry.Lookup(hash)
		if obj == nil {
			return nil, nil, errors.Newf(errors.ErrCodeObjectNotFound, "no object for hash %s", hash).
				In("engine").During("build_pack")
		}
		data, err := e.materialize(ctx, obj)
		if err != nil {
			return nil, nil, err
		}
		src := pack.Source{Hash: hash, Kind: obj.Kind, Data: data}
		if obj.Delta != nil {
			base := obj.Delta.BaseHash
			src.DeltaBase = &base
		}
		sources = append(sources, src)
	}

	unit, index, err := e.builder.CreatePack(sources)
	if err != nil {
		return nil, nil, err
	}

	e.mu.Lock()
	e.packs[unit.ID] = &packRecord{unit: unit, index: index}
	e.mu.Unlock()

	for _, hash := range hashes {
		obj := registry.Lookup(hash)
		off, ok := pack.Lookup(index, hash)
		if !ok {
			return nil, nil, errors.Newf(errors.ErrCodePackCorrupt, "built pack is missing %s", hash).
				In("engine").During("build_pack")
		}
		entry := unit.Objects[off.EntryIndex]

		if obj.ExternalRef != "" {
			if err := e.store.Delete(ctx, obj.ExternalRef); err != nil {
				e.log.Warn("failed to retire blob after packing", "ref", obj.ExternalRef, "error", err)
			}
		}

		obj.Tier = types.TierPacked
		obj.StoredSize = entry.Size
		obj.Algorithm = entry.Algorithm
		obj.Compressed = entry.Compressed
		obj.Checksum = entry.Checksum
		obj.InlinePayload = nil
		obj.ExternalRef = ""
		obj.Delta = nil
		obj.PackLocation = &types.PackLocation{
			PackID: unit.ID,
			Offset: off.Offset,
			Size:   off.Size,
		}
	}

	e.collector.RecordPackBuilt(unit.TotalSize)
	e.log.Info("pack built", "pack_id", unit.ID, "objects", len(unit.Objects), "total_size", unit.TotalSize)

	return unit, index, nil
}

// Unpack extracts one object from a pack, verifying its CRC and
// checksum on the way out.
func (e *Engine) Unpack(unit *types.PackUnit, index *types.PackIndex, hash types.Hash) ([]byte, bool, error) {
	return pack.GetObject(unit, index, hash)
}

// CacheGet reads straight from the object cache.
func (e *Engine) CacheGet(hash types.Hash) ([]byte, bool) {
	data, level, ok := e.cache.Lookup(hash)
	if ok {
		e.collector.RecordCacheRequest(level, true)
	} else {
		e.collector.RecordCacheRequest("l1", false)
		e.collector.RecordCacheRequest("l2", false)
	}
	return data, ok
}

// CachePut seeds the object cache without going through a write.
func (e *Engine) CachePut(hash types.Hash, kind types.ObjectKind, data []byte) {
	e.cache.Put(hash, kind, data)
	e.collector.UpdateCacheEntries(e.cache.Stats())
}

// CacheClear empties both cache levels.
func (e *Engine) CacheClear() {
	e.cache.Clear()
	e.collector.UpdateCacheEntries(e.cache.Stats())
}

// CacheStats snapshots cache behavior.
func (e *Engine) CacheStats() types.CacheStats {
	return e.cache.Stats()
}

// MetricsHandler returns the Prometheus scrape handler, or nil when
// metrics are disabled.
func (e *Engine) MetricsHandler() http.Handler {
	return e.collector.Handler()
}

// resolveHint turns an optional similarity reference into a usable
// base: its descriptor plus reconstructed bytes. Unresolvable hints
// are dropped, never fatal.
func (e *Engine) resolveHint(ctx context.Context, similarTo *types.Hash) *tiering.BaseHint {
	if similarTo == nil {
		return nil
	}
	base := e.policy.Registry().Lookup(*similarTo)
	if base == nil {
		e.log.Debug("similarity hint does not resolve", "base", similarTo.String())
		return nil
	}
	data, err := e.materialize(ctx, base)
	if err != nil {
		e.log.Warn("failed to materialize similarity base", "base", similarTo.String(), "error", err)
		return nil
	}
	return &tiering.BaseHint{Object: base, Data: data}
}

// materialize reconstructs an object's original bytes from whichever
// representation it carries, consulting the cache first.
func (e *Engine) materialize(ctx context.Context, obj *types.StoredObject) ([]byte, error) {
	if data, level, ok := e.cache.Lookup(obj.ContentHash); ok {
		e.collector.RecordCacheRequest(level, true)
		return data, nil
	}
	e.collector.RecordCacheRequest("l1", false)
	e.collector.RecordCacheRequest("l2", false)

	var (
		data []byte
		err  error
	)
	if obj.Delta != nil {
		data, err = e.reconstructDelta(ctx, obj)
	} else {
		data, err = e.payloadBytes(ctx, obj)
	}
	if err != nil {
		return nil, err
	}

	e.cache.Put(obj.ContentHash, obj.Kind, data)
	e.collector.UpdateCacheEntries(e.cache.Stats())
	return data, nil
}

// reconstructDelta walks the chain from the target back to a non-delta
// root, then replays the records forward. The walk is iterative and
// bounded by the configured chain depth.
func (e *Engine) reconstructDelta(ctx context.Context, obj *types.StoredObject) ([]byte, error) {
	registry := e.policy.Registry()
	differ := e.policy.Differ()

	var records []*types.DeltaRecord
	cur := obj
	for cur.Delta != nil {
		if len(records) >= differ.MaxChainDepth() {
			return nil, errors.Newf(errors.ErrCodeChainTooDeep, "chain for %s exceeds depth %d", obj.ContentHash, differ.MaxChainDepth()).
				In("engine").During("reconstruct")
		}
		records = append(records, cur.Delta)

		base := registry.Lookup(cur.Delta.BaseHash)
		if base == nil {
			return nil, errors.Newf(errors.ErrCodeObjectNotFound, "delta base %s is gone", cur.Delta.BaseHash).
				In("engine").During("reconstruct").WithDetail("target", obj.ContentHash.String())
		}
		cur = base
	}

	data, err := e.payloadBytes(ctx, cur)
	if err != nil {
		return nil, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		data, err = differ.ApplyDelta(data, records[i])
		if err != nil {
			return nil, err
		}
	}

	e.collector.RecordChainDepth(len(records))
	return data, nil
}

// payloadBytes recovers the stored bytes of a non-delta object and
// undoes compression.
func (e *Engine) payloadBytes(ctx context.Context, obj *types.StoredObject) ([]byte, error) {
	if obj.PackLocation != nil {
		return e.packedBytes(obj)
	}

	stored := obj.InlinePayload
	if stored == nil && obj.ExternalRef != "" {
		data, err := e.store.Get(ctx, obj.ExternalRef)
		if err != nil {
			return nil, err
		}
		stored = data
	}
	if stored == nil {
		return nil, errors.Newf(errors.ErrCodeInternal, "object %s has no representation", obj.ContentHash).
			In("engine").During("get")
	}

	if obj.Compressed {
		return codec.Decompress(&types.CompressedPayload{
			Algorithm:        obj.Algorithm,
			Data:             stored,
			CompressedSize:   obj.StoredSize,
			UncompressedSize: obj.OriginalSize,
			Checksum:         obj.Checksum,
		})
	}

	if obj.Checksum != 0 && xxhash.Sum64(stored) != obj.Checksum {
		return nil, errors.Newf(errors.ErrCodeChecksumMismatch, "object %s failed checksum verification", obj.ContentHash).
			In("engine").During("get")
	}
	return append([]byte(nil), stored...), nil
}

func (e *Engine) packedBytes(obj *types.StoredObject) ([]byte, error) {
	e.mu.Lock()
	rec, ok := e.packs[obj.PackLocation.PackID]
	e.mu.Unlock()
	if !ok {
		return nil, errors.Newf(errors.ErrCodeObjectNotFound, "pack %s is not loaded", obj.PackLocation.PackID).
			In("engine").During("get")
	}

	data, found, err := pack.GetObject(rec.unit, rec.index, obj.ContentHash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Newf(errors.ErrCodePackCorrupt, "descriptor points at pack %s but the index disagrees", obj.PackLocation.PackID).
			In("engine").During("get")
	}
	return data, nil
}
