package metrics

import (
	"errors"

	"github.com/kilianp07/crunch/core/forecast"
)

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordScenario forwards the record to all sinks and joins their errors.
func (m *MultiSink) RecordScenario(rec ScenarioRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordScenario(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordSweep forwards sweep summaries to the sinks supporting them.
func (m *MultiSink) RecordSweep(rec SweepRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(SweepRecorder); ok {
			if err := r.RecordSweep(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordCurve forwards curves to the sinks supporting them.
func (m *MultiSink) RecordCurve(runID string, curve *forecast.DurationCostCurve) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(CurveRecorder); ok {
			if err := r.RecordCurve(runID, curve); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
