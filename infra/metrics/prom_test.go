package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/crunch/core/metrics"
	"github.com/kilianp07/crunch/core/model"
)

func TestPromSink_RecordScenario(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	rec := coremetrics.ScenarioRecord{
		Schedule: "plant",
		Mode:     model.OvertimeOneExtraDay,
		EAC:      map[model.RiskBand]float64{model.P50: 1000, model.P90: 1300},
		Duration: 2 * time.Millisecond,
	}
	require.NoError(t, sink.RecordScenario(rec))
	rec.CacheHit = true
	require.NoError(t, sink.RecordScenario(rec))

	expected := `
# HELP crunch_scenarios_total Total number of evaluated scenarios
# TYPE crunch_scenarios_total counter
crunch_scenarios_total{cache_hit="false",mode="one-day"} 1
crunch_scenarios_total{cache_hit="true",mode="one-day"} 1
`
	if err := testutil.CollectAndCompare(sink.scenarios, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	assert.Equal(t, 1300.0, testutil.ToFloat64(sink.eac.WithLabelValues("plant", "P90")))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.latency), "cache hits are not timed")
}

func TestPromSink_RecordSweep(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordSweep(coremetrics.SweepRecord{
		Schedule: "plant",
		Mode:     model.OvertimeTwoExtraDays,
		Optimal:  map[model.RiskBand]int{model.P50: 8},
		Duration: time.Second,
	}))
	assert.Equal(t, 8.0, testutil.ToFloat64(sink.optimalWeek.WithLabelValues("plant", "P50")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.sweeps.WithLabelValues("two-days", "false")))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	assert.Same(t, a.scenarios, b.scenarios)
}
