package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/crunch/core/metrics"
)

// PromSink records forecast activity in Prometheus metrics.
type PromSink struct {
	scenarios   *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	eac         *prometheus.GaugeVec
	sweeps      *prometheus.CounterVec
	sweepTime   prometheus.Histogram
	optimalWeek *prometheus.GaugeVec
}

// NewPromSink registers forecast metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by the API or StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.scenarios, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crunch_scenarios_total",
		Help: "Total number of evaluated scenarios",
	}, []string{"mode", "cache_hit"})); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crunch_scenario_duration_seconds",
		Help:    "Time spent evaluating one scenario",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"mode"})); err != nil {
		return nil, err
	}
	if s.eac, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crunch_last_eac",
		Help: "Estimate at completion of the last evaluated scenario",
	}, []string{"schedule", "band"})); err != nil {
		return nil, err
	}
	if s.sweeps, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crunch_sweeps_total",
		Help: "Total number of duration sweeps",
	}, []string{"mode", "failed"})); err != nil {
		return nil, err
	}
	if s.sweepTime, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "crunch_sweep_duration_seconds",
		Help:    "Time spent on one duration sweep",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if s.optimalWeek, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crunch_sweep_optimal_weeks",
		Help: "Minimum-cost duration found by the last sweep",
	}, []string{"schedule", "band"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordScenario counts the scenario and tracks its latency and EAC.
func (s *PromSink) RecordScenario(rec coremetrics.ScenarioRecord) error {
	mode := rec.Mode.String()
	s.scenarios.WithLabelValues(mode, strconv.FormatBool(rec.CacheHit)).Inc()
	if !rec.CacheHit {
		s.latency.WithLabelValues(mode).Observe(rec.Duration.Seconds())
	}
	for band, v := range rec.EAC {
		s.eac.WithLabelValues(rec.Schedule, band.String()).Set(v)
	}
	return nil
}

// RecordSweep counts the sweep and exposes its optimal durations.
func (s *PromSink) RecordSweep(rec coremetrics.SweepRecord) error {
	s.sweeps.WithLabelValues(rec.Mode.String(), strconv.FormatBool(rec.Failed)).Inc()
	s.sweepTime.Observe(rec.Duration.Seconds())
	for band, w := range rec.Optimal {
		s.optimalWeek.WithLabelValues(rec.Schedule, band.String()).Set(float64(w))
	}
	return nil
}
