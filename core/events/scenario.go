package events

import (
	"time"

	"github.com/kilianp07/crunch/core/model"
)

// ScenarioEvent is published each time the engine evaluates a scenario.
type ScenarioEvent struct {
	Schedule      string
	TargetWeeks   int
	AchievedWeeks int
	Mode          model.OvertimeMode
	EAC           map[model.RiskBand]float64
	Elapsed       time.Duration
	CacheHit      bool
}
