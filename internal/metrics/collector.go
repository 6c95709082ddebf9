package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/gitcas/gitcas/internal/config"
	"github.com/gitcas/gitcas/pkg/types"
)

// Collector gathers engine metrics into a private Prometheus registry.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	writeCounter       *prometheus.CounterVec
	dedupHits          prometheus.Counter
	deltaDecisions     *prometheus.CounterVec
	compressDecisions  *prometheus.CounterVec
	cacheRequests      *prometheus.CounterVec
	cacheEntries       *prometheus.GaugeVec
	trackedObjects     prometheus.Gauge
	packsBuilt         prometheus.Counter
	compressionRatio   prometheus.Histogram
	objectSize         prometheus.Histogram
	packSize           prometheus.Histogram
	reconstructedDepth prometheus.Histogram
}

// NewCollector creates a collector from configuration. A disabled
// configuration yields a collector whose record methods do nothing.
func NewCollector(cfg *config.MetricsConfig) (*Collector, error) {
	if cfg == nil || !cfg.Enabled {
		return &Collector{}, nil
	}

	registry := prometheus.NewRegistry()
	ns := cfg.Namespace
	if ns == "" {
		ns = "gitcas"
	}

	c := &Collector{
		enabled:  true,
		registry: registry,

		writeCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "writes_total",
				Help:      "Objects written, by storage tier and write outcome",
			},
			[]string{"tier", "outcome"},
		),
		dedupHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "dedup_hits_total",
				Help:      "Writes resolved to an existing object by content hash",
			},
		),
		deltaDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "delta_decisions_total",
				Help:      "Delta encoding attempts, by decision",
			},
			[]string{"decision"},
		),
		compressDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "compression_decisions_total",
				Help:      "Compression attempts, by algorithm and decision",
			},
			[]string{"algorithm", "decision"},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "cache_requests_total",
				Help:      "Object cache lookups, by level and result",
			},
			[]string{"level", "result"},
		),
		cacheEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: ns,
				Name:      "cache_entries",
				Help:      "Current object cache occupancy by level",
			},
			[]string{"level"},
		),
		trackedObjects: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: ns,
				Name:      "tracked_objects",
				Help:      "Canonical objects currently tracked by the dedup registry",
			},
		),
		packsBuilt: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "packs_built_total",
				Help:      "Pack units assembled",
			},
		),
		compressionRatio: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "compression_ratio",
				Help:      "Stored size over original size for accepted writes",
				Buckets:   prometheus.LinearBuckets(0.05, 0.05, 20),
			},
		),
		objectSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "object_size_bytes",
				Help:      "Original object sizes at write time",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 12), // 64B to ~1GB
			},
		),
		packSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "pack_size_bytes",
				Help:      "Total stored payload per assembled pack",
				Buckets:   prometheus.ExponentialBuckets(4096, 4, 10),
			},
		),
		reconstructedDepth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: ns,
				Name:      "delta_chain_depth",
				Help:      "Chain depth walked to reconstruct delta objects",
				Buckets:   prometheus.LinearBuckets(1, 1, 10),
			},
		),
	}

	collectors := []prometheus.Collector{
		c.writeCounter,
		c.dedupHits,
		c.deltaDecisions,
		c.compressDecisions,
		c.cacheRequests,
		c.cacheEntries,
		c.trackedObjects,
		c.packsBuilt,
		c.compressionRatio,
		c.objectSize,
		c.packSize,
		c.reconstructedDepth,
	}
	for _, col := range collectors {
		if err := registry.Register(col); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return c, nil
}

// Handler returns an HTTP handler serving the collector's registry,
// or nil when metrics are disabled.
func (c *Collector) Handler() http.Handler {
	if !c.enabled {
		return nil
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordWrite records a completed write with its tier, outcome, and
// the original/stored sizes.
func (c *Collector) RecordWrite(tier types.StorageTier, outcome types.WriteOutcome, originalSize, storedSize int64) {
	if !c.enabled {
		return
	}

	c.writeCounter.With(prometheus.Labels{
		"tier":    string(tier),
		"outcome": string(outcome),
	}).Inc()
	c.objectSize.Observe(float64(originalSize))
	if originalSize > 0 {
		c.compressionRatio.Observe(float64(storedSize) / float64(originalSize))
	}
}

// RecordDedupHit records a write satisfied by an existing object.
func (c *Collector) RecordDedupHit() {
	if !c.enabled {
		return
	}
	c.dedupHits.Inc()
}

// RecordDeltaDecision records the outcome of a delta attempt,
// "accepted" or "declined".
func (c *Collector) RecordDeltaDecision(decision string) {
	if !c.enabled {
		return
	}
	c.deltaDecisions.With(prometheus.Labels{"decision": decision}).Inc()
}

// RecordCompressionDecision records a compression attempt per
// algorithm ("accepted" or "declined").
func (c *Collector) RecordCompressionDecision(alg types.Algorithm, accepted bool) {
	if !c.enabled {
		return
	}
	decision := "declined"
	if accepted {
		decision = "accepted"
	}
	c.compressDecisions.With(prometheus.Labels{
		"algorithm": string(alg),
		"decision":  decision,
	}).Inc()
}

// RecordCacheRequest records one cache lookup outcome.
func (c *Collector) RecordCacheRequest(level string, hit bool) {
	if !c.enabled {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheRequests.With(prometheus.Labels{"level": level, "result": result}).Inc()
}

// UpdateCacheEntries reflects the current cache occupancy.
func (c *Collector) UpdateCacheEntries(stats types.CacheStats) {
	if !c.enabled {
		return
	}
	c.cacheEntries.With(prometheus.Labels{"level": "l1"}).Set(float64(stats.L1Entries))
	c.cacheEntries.With(prometheus.Labels{"level": "l2"}).Set(float64(stats.L2Entries))
}

// UpdateTrackedObjects reflects the dedup registry's current size.
func (c *Collector) UpdateTrackedObjects(n int) {
	if !c.enabled {
		return
	}
	c.trackedObjects.Set(float64(n))
}

// RecordPackBuilt records an assembled pack and its payload size.
func (c *Collector) RecordPackBuilt(totalSize int64) {
	if !c.enabled {
		return
	}
	c.packsBuilt.Inc()
	c.packSize.Observe(float64(totalSize))
}

// RecordChainDepth records the depth walked during delta
// reconstruction.
func (c *Collector) RecordChainDepth(depth int) {
	if !c.enabled {
		return
	}
	c.reconstructedDepth.Observe(float64(depth))
}

// Gather exposes the raw metric families, mainly for tests.
func (c *Collector) Gather() ([]*dto.MetricFamily, error) {
	if !c.enabled {
		return nil, nil
	}
	return c.registry.Gather()
}
