package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/crunch/core/costmodel"
	"github.com/kilianp07/crunch/core/forecast/history"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `model:
  accel_pf: 0.8
  bands:
    p90:
      productivity: 1.6
      fatigue: 1.3
      stacking: 1.4
forecast:
  workers: 3
  time_cost_per_week: 12000
history:
  backend: sqlite
  path: runs.db
metrics:
  sinks:
    - type: "nop"
    - type: "mqtt"
      conf:
        broker: "tcp://localhost:1883"
logging:
  level: debug
http:
  addr: ":9090"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"accel_pf", cfg.Model.AccelPF, 0.8},
		{"pf_alpha default", cfg.Model.PFAlpha, 1.8},
		{"p90 productivity", cfg.Model.Bands.P90.Productivity, 1.6},
		{"p50 default", cfg.Model.Bands.P50, costmodel.DefaultBands().P50},
		{"workers", cfg.Forecast.Workers, 3},
		{"time cost", cfg.Forecast.TimeCostPerWeek, 12000.0},
		{"cache default", cfg.Forecast.CacheSize, 256},
		{"history backend", cfg.History.Backend, history.BackendSQLite},
		{"history path", cfg.History.Path, "runs.db"},
		{"sinks", len(cfg.Metrics.Sinks), 2},
		{"mqtt sink", cfg.Metrics.Sinks[1].Type, "mqtt"},
		{"level", cfg.Logging.Level, "debug"},
		{"addr", cfg.HTTP.Addr, ":9090"},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
	assert.Equal(t, "tcp://localhost:1883", cfg.Metrics.Sinks[1].Conf["broker"])
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"forecast":{"workers":2}}`), 0o644))
	t.Setenv("K_HTTP__ADDR", ":7070")
	t.Setenv("K_LOGGING__LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Forecast.Workers)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Forecast, cfg.Forecast)
	assert.Equal(t, costmodel.DefaultParams(), cfg.Model)
	assert.Equal(t, history.BackendNone, cfg.History.Backend)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"backend.yaml": "history:\n  backend: postgres\n",
		"ratio.yaml":   "forecast:\n  max_extension_ratio: 0.5\n",
		"level.yaml":   "logging:\n  level: loud\n",
		"pf.yaml":      "model:\n  accel_pf: 1.5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "config.toml"))
	assert.Error(t, err)
}
