package metrics

import (
	"time"

	"github.com/kilianp07/crunch/core/forecast"
	"github.com/kilianp07/crunch/core/model"
)

// ScenarioRecord describes one evaluated scenario.
type ScenarioRecord struct {
	Schedule      string
	TargetWeeks   int
	AchievedWeeks int
	Mode          model.OvertimeMode
	EAC           map[model.RiskBand]float64
	Duration      time.Duration
	CacheHit      bool
	Time          time.Time
}

// MetricsSink records evaluated scenarios for observability purposes.
type MetricsSink interface {
	RecordScenario(rec ScenarioRecord) error
}

// SweepRecord describes a completed or failed duration sweep.
type SweepRecord struct {
	Schedule string
	Mode     model.OvertimeMode
	Points   int
	Optimal  map[model.RiskBand]int
	Duration time.Duration
	Failed   bool
	Time     time.Time
}

// SweepRecorder records sweep summaries.
type SweepRecorder interface {
	RecordSweep(rec SweepRecord) error
}

// CurveRecorder persists every point of a duration-cost curve.
type CurveRecorder interface {
	RecordCurve(runID string, curve *forecast.DurationCostCurve) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordScenario(ScenarioRecord) error                   { return nil }
func (NopSink) RecordSweep(SweepRecord) error                         { return nil }
func (NopSink) RecordCurve(string, *forecast.DurationCostCurve) error { return nil }
