package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/crunch/core/compress"
	"github.com/kilianp07/crunch/core/events"
	"github.com/kilianp07/crunch/core/model"
	"github.com/kilianp07/crunch/core/monitoring"
)

// SweepRequest selects the candidate durations of a sweep. Zero bounds
// default to the minimum reachable duration and the extension cap.
type SweepRequest struct {
	Mode      model.OvertimeMode  `json:"mode"`
	Scope     model.OvertimeScope `json:"scope"`
	Overrides map[string]float64  `json:"overrides,omitempty"`
	MinWeeks  int                 `json:"min_weeks,omitempty"`
	MaxWeeks  int                 `json:"max_weeks,omitempty"`
}

// CurvePoint is the cost of one candidate duration.
type CurvePoint struct {
	TargetWeeks   int                        `json:"target_weeks"`
	AchievedWeeks int                        `json:"achieved_weeks"`
	NumOTWeeks    int                        `json:"num_ot_weeks"`
	GlobalPF      float64                    `json:"global_pf"`
	DirectCost    map[model.RiskBand]float64 `json:"direct_cost"`
	TimeCost      float64                    `json:"time_cost"`
	Total         map[model.RiskBand]float64 `json:"total"`
}

// DurationCostCurve is the result of a sweep. Optimal holds the cheapest
// target duration per band; ties go to the shorter duration.
type DurationCostCurve struct {
	Schedule    string                     `json:"schedule"`
	Mode        model.OvertimeMode         `json:"mode"`
	Scope       model.OvertimeScope        `json:"scope"`
	BaseWeeks   int                        `json:"base_weeks"`
	MinWeeks    int                        `json:"min_weeks"`
	MaxWeeks    int                        `json:"max_weeks"`
	BaselineEAC float64                    `json:"baseline_eac"`
	Points      []CurvePoint               `json:"points"`
	Optimal     map[model.RiskBand]int     `json:"optimal"`
	OptimalEAC  map[model.RiskBand]float64 `json:"optimal_eac"`
}

// Point returns the point of a target duration.
func (c *DurationCostCurve) Point(weeks int) (CurvePoint, bool) {
	for _, p := range c.Points {
		if p.TargetWeeks == weeks {
			return p, true
		}
	}
	return CurvePoint{}, false
}

// Range returns the default sweep bounds of a plan under mode.
func (e *Engine) Range(p *Plan, mode model.OvertimeMode) (int, int) {
	lo := max(p.MinWeeks(mode), compress.MinAchievableWeeks)
	hi := int(math.Ceil(float64(p.BaseWeeks) * e.cfg.MaxExtensionRatio))
	return lo, max(hi, lo)
}

// Sweep evaluates every candidate duration concurrently and returns the
// duration-cost curve. Cancelling ctx abandons the sweep.
func (e *Engine) Sweep(ctx context.Context, p *Plan, req SweepRequest) (*DurationCostCurve, error) {
	start := time.Now()
	lo, hi := e.Range(p, req.Mode)
	if req.MinWeeks > 0 {
		lo = max(req.MinWeeks, compress.MinAchievableWeeks)
	}
	if req.MaxWeeks > 0 {
		hi = req.MaxWeeks
	}
	if hi < lo {
		return nil, fmt.Errorf("%w: empty sweep range %d..%d", ErrInvalidTarget, lo, hi)
	}

	points := make([]CurvePoint, hi-lo+1)
	var baseline float64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i := range points {
		i := i
		weeks := lo + i
		g.Go(func() error {
			return monitoring.Go(func() error {
				f, err := e.Evaluate(gctx, p, Scenario{
					TargetWeeks: weeks,
					Mode:        req.Mode,
					Scope:       req.Scope,
					Overrides:   req.Overrides,
				})
				if err != nil {
					return err
				}
				points[i] = pointOf(f)
				if i == 0 {
					baseline = f.BaselineEAC
				}
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		e.publish(events.SweepEvent{Schedule: p.Schedule.Name, Mode: req.Mode, Elapsed: time.Since(start), Err: err})
		return nil, fmt.Errorf("sweep %s: %w", p.Schedule.Name, err)
	}

	curve := &DurationCostCurve{
		Schedule:    p.Schedule.Name,
		Mode:        req.Mode,
		Scope:       req.Scope,
		BaseWeeks:   p.BaseWeeks,
		MinWeeks:    lo,
		MaxWeeks:    hi,
		BaselineEAC: baseline,
		Points:      points,
	}
	curve.Optimal, curve.OptimalEAC = optimal(points)
	e.log.Infof("sweep %s mode=%s %d..%d weeks: optimal P50 %d weeks", p.Schedule.Name, req.Mode, lo, hi, curve.Optimal[model.P50])
	e.publish(events.SweepEvent{
		Schedule: p.Schedule.Name,
		Mode:     req.Mode,
		Points:   len(points),
		Optimal:  curve.Optimal,
		Elapsed:  time.Since(start),
	})
	return curve, nil
}

func pointOf(f *Forecast) CurvePoint {
	pt := CurvePoint{
		TargetWeeks:   f.Scenario.TargetWeeks,
		AchievedWeeks: f.AchievedWeeks,
		NumOTWeeks:    f.NumOTWeeks,
		GlobalPF:      f.GlobalPF,
		DirectCost:    make(map[model.RiskBand]float64, len(f.Breakdowns)),
		Total:         make(map[model.RiskBand]float64, len(f.Breakdowns)),
	}
	for band, b := range f.Breakdowns {
		pt.DirectCost[band] = b.DirectCost
		pt.Total[band] = b.Total
		pt.TimeCost = b.TimeCost
	}
	return pt
}

// optimal reduces the points to the cheapest target duration per band.
// Points are ordered by duration, so a strict comparison keeps the
// shorter one on ties.
func optimal(points []CurvePoint) (map[model.RiskBand]int, map[model.RiskBand]float64) {
	weeks := make(map[model.RiskBand]int, 3)
	cost := make(map[model.RiskBand]float64, 3)
	for _, band := range model.RiskBands() {
		best := math.Inf(1)
		for _, pt := range points {
			if v := pt.Total[band]; v < best {
				best = v
				weeks[band] = pt.TargetWeeks
			}
		}
		if !math.IsInf(best, 1) {
			cost[band] = best
		}
	}
	return weeks, cost
}
