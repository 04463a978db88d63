package metrics

import "github.com/kilianp07/crunch/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr serves /metrics on its own listener when set to an
	// address other than the HTTP API's.
	PrometheusAddr string `json:"prometheus_addr"`
}
