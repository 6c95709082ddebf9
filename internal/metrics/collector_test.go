package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitcas/gitcas/internal/config"
	"github.com/gitcas/gitcas/pkg/types"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	cfg := config.NewDefault()
	c, err := NewCollector(&cfg.Metrics)
	require.NoError(t, err)
	return c
}

// familyValue sums all samples of a metric family across label sets.
func familyValue(t *testing.T, c *Collector, name string) float64 {
	t.Helper()
	families, err := c.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
		return total
	}
	return 0
}

func TestRecordWrite(t *testing.T) {
	c := newTestCollector(t)

	c.RecordWrite(types.TierInline, types.OutcomeRaw, 512, 512)
	c.RecordWrite(types.TierDelta, types.OutcomeDelta, 4096, 100)

	assert.Equal(t, 2.0, familyValue(t, c, "gitcas_writes_total"))
	assert.Equal(t, 2.0, familyValue(t, c, "gitcas_object_size_bytes"))
	assert.Equal(t, 2.0, familyValue(t, c, "gitcas_compression_ratio"))
}

func TestRecordDecisions(t *testing.T) {
	c := newTestCollector(t)

	c.RecordDedupHit()
	c.RecordDeltaDecision("accepted")
	c.RecordDeltaDecision("declined")
	c.RecordCompressionDecision(types.AlgorithmZlib, true)
	c.RecordCompressionDecision(types.AlgorithmZstd, false)

	assert.Equal(t, 1.0, familyValue(t, c, "gitcas_dedup_hits_total"))
	assert.Equal(t, 2.0, familyValue(t, c, "gitcas_delta_decisions_total"))
	assert.Equal(t, 2.0, familyValue(t, c, "gitcas_compression_decisions_total"))
}

func TestCacheMetrics(t *testing.T) {
	c := newTestCollector(t)

	c.RecordCacheRequest("l1", true)
	c.RecordCacheRequest("l2", false)
	c.UpdateCacheEntries(types.CacheStats{L1Entries: 5, L2Entries: 17})
	c.UpdateTrackedObjects(42)

	assert.Equal(t, 2.0, familyValue(t, c, "gitcas_cache_requests_total"))
	assert.Equal(t, 22.0, familyValue(t, c, "gitcas_cache_entries"))
	assert.Equal(t, 42.0, familyValue(t, c, "gitcas_tracked_objects"))
}

func TestPackMetrics(t *testing.T) {
	c := newTestCollector(t)

	c.RecordPackBuilt(1 << 20)
	c.RecordChainDepth(3)

	assert.Equal(t, 1.0, familyValue(t, c, "gitcas_packs_built_total"))
	assert.Equal(t, 1.0, familyValue(t, c, "gitcas_delta_chain_depth"))
}

func TestDisabledCollectorIsNoOp(t *testing.T) {
	c, err := NewCollector(&config.MetricsConfig{Enabled: false})
	require.NoError(t, err)

	// None of these should panic on the zero collector.
	c.RecordWrite(types.TierInline, types.OutcomeRaw, 1, 1)
	c.RecordDedupHit()
	c.RecordCacheRequest("l1", true)
	c.RecordPackBuilt(1)

	assert.Nil(t, c.Handler())
	families, err := c.Gather()
	require.NoError(t, err)
	assert.Nil(t, families)
}

func TestHandlerServesRegistry(t *testing.T) {
	c := newTestCollector(t)
	assert.NotNil(t, c.Handler())
}
