package metrics_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	metrics "github.com/kilianp07/crunch/core/metrics"
	_ "github.com/kilianp07/crunch/infra/metrics"
)

func TestMetricsConfigDecodeYAML(t *testing.T) {
	data := `sinks:
  - type: prometheus
  - type: nop
`
	var cfg metrics.Config
	require.NoError(t, yaml.Unmarshal([]byte(data), &cfg))
	require.Len(t, cfg.Sinks, 2)

	s, err := metrics.NewMetricsSink(cfg.Sinks)
	require.NoError(t, err)
	_, ok := s.(metrics.SweepRecorder)
	assert.True(t, ok, "prometheus sink should record sweeps, got %T", s)
}

func TestMetricsConfigDecodeJSON_Invalid(t *testing.T) {
	data := `{"sinks":[{"type":"missing"}],"prometheus_addr":":9100"}`
	var cfg metrics.Config
	require.NoError(t, json.Unmarshal([]byte(data), &cfg))
	assert.Equal(t, ":9100", cfg.PrometheusAddr)

	_, err := metrics.NewMetricsSink(cfg.Sinks)
	assert.Error(t, err)
}
