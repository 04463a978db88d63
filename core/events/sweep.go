package events

import (
	"time"

	"github.com/kilianp07/crunch/core/model"
)

// SweepEvent is published when a duration sweep finishes. Err is set when
// the sweep was cancelled or failed.
type SweepEvent struct {
	Schedule string
	Mode     model.OvertimeMode
	Points   int
	Optimal  map[model.RiskBand]int
	Elapsed  time.Duration
	Err      error
}
