// Package history persists completed duration sweeps so that past runs can
// be listed and compared.
package history

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/crunch/core/forecast"
	"github.com/kilianp07/crunch/core/model"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("history: unknown backend")

// Run captures one completed sweep.
type Run struct {
	ID          string                      `json:"id"`
	Time        time.Time                   `json:"time"`
	Schedule    string                      `json:"schedule"`
	Mode        model.OvertimeMode          `json:"mode"`
	Scope       model.OvertimeScope         `json:"scope"`
	BaseWeeks   int                         `json:"base_weeks"`
	BaselineEAC float64                     `json:"baseline_eac"`
	Optimal     map[model.RiskBand]int      `json:"optimal"`
	OptimalEAC  map[model.RiskBand]float64  `json:"optimal_eac"`
	Curve       *forecast.DurationCostCurve `json:"curve,omitempty"`
}

// NewRun builds a run from a curve. An empty id gets a fresh UUID.
func NewRun(id string, curve *forecast.DurationCostCurve) Run {
	if id == "" {
		id = uuid.NewString()
	}
	return Run{
		ID:          id,
		Time:        time.Now().UTC(),
		Schedule:    curve.Schedule,
		Mode:        curve.Mode,
		Scope:       curve.Scope,
		BaseWeeks:   curve.BaseWeeks,
		BaselineEAC: curve.BaselineEAC,
		Optimal:     curve.Optimal,
		OptimalEAC:  curve.OptimalEAC,
		Curve:       curve,
	}
}

// Query filters stored runs. Limit keeps the most recent matches.
type Query struct {
	Schedule string
	Since    time.Time
	Until    time.Time
	Limit    int
}

func (q Query) match(r Run) bool {
	if q.Schedule != "" && r.Schedule != q.Schedule {
		return false
	}
	if !q.Since.IsZero() && r.Time.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && r.Time.After(q.Until) {
		return false
	}
	return true
}

// Store persists runs and supports querying.
type Store interface {
	Append(ctx context.Context, run Run) error
	Query(ctx context.Context, q Query) ([]Run, error)
	Close() error
}

// NopStore discards runs.
type NopStore struct{}

func (NopStore) Append(context.Context, Run) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Run, error) { return nil, nil }
func (NopStore) Close() error                                { return nil }

// Recorder stores every recorded curve as a run.
type Recorder struct {
	Store Store
}

// RecordCurve appends the curve to the store under runID.
func (r Recorder) RecordCurve(runID string, curve *forecast.DurationCostCurve) error {
	if r.Store == nil || curve == nil {
		return nil
	}
	return r.Store.Append(context.Background(), NewRun(runID, curve))
}

// sortAndLimit orders runs chronologically and keeps the last limit.
func sortAndLimit(runs []Run, limit int) []Run {
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Time.Before(runs[j].Time) })
	if limit > 0 && len(runs) > limit {
		runs = runs[len(runs)-limit:]
	}
	return runs
}
