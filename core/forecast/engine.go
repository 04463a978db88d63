// Package forecast combines the compression, productivity, fatigue and
// stacking models into per-week costs and sweeps candidate durations to
// find the cheapest one.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/crunch/core/compress"
	"github.com/kilianp07/crunch/core/costmodel"
	"github.com/kilianp07/crunch/core/events"
	"github.com/kilianp07/crunch/core/logger"
	"github.com/kilianp07/crunch/core/model"
	"github.com/kilianp07/crunch/core/redistribute"
	"github.com/kilianp07/crunch/internal/eventbus"
)

// ErrInvalidTarget is returned for target durations under the 4-week
// floor and for empty sweep ranges. Targets that are reachable only in
// part are not errors; the forecast reports the achieved duration.
var ErrInvalidTarget = errors.New("invalid target duration")

// Scenario is one (duration, overtime) combination to evaluate.
type Scenario struct {
	TargetWeeks int                 `json:"target_weeks"`
	Mode        model.OvertimeMode  `json:"mode"`
	Scope       model.OvertimeScope `json:"scope"`
	// Overrides multiply the model productivity factor of a discipline.
	Overrides map[string]float64 `json:"overrides,omitempty"`
}

// Forecast is the evaluated scenario with its cost at every risk band.
// Forecasts may be shared through the cache and must not be mutated.
type Forecast struct {
	Schedule      string                            `json:"schedule"`
	Scenario      Scenario                          `json:"scenario"`
	BaseWeeks     int                               `json:"base_weeks"`
	AchievedWeeks int                               `json:"achieved_weeks"`
	Compression   *compress.Result                  `json:"compression,omitempty"`
	WeeklyHours   model.HoursProfile                `json:"weekly_hours"`
	NumOTWeeks    int                               `json:"num_ot_weeks"`
	GlobalPF      float64                           `json:"global_pf"`
	Productivity  map[string]float64                `json:"productivity"`
	Fatigue       []float64                         `json:"fatigue"`
	Stacking      []float64                         `json:"stacking,omitempty"`
	Breakdowns    map[model.RiskBand]*CostBreakdown `json:"breakdowns"`
	EAC           map[model.RiskBand]float64        `json:"eac"`
	BaselineEAC   float64                           `json:"baseline_eac"`
}

// Breakdown returns the cost breakdown of a band.
func (f *Forecast) Breakdown(band model.RiskBand) *CostBreakdown {
	return f.Breakdowns[band]
}

// Engine evaluates scenarios against prepared plans. It is safe for
// concurrent use.
type Engine struct {
	params costmodel.Params
	cfg    Config
	log    logger.Logger
	cache  *cache
	bus    eventbus.EventBus
}

// NewEngine validates params and cfg and returns an engine.
func NewEngine(params costmodel.Params, cfg Config, log logger.Logger) (*Engine, error) {
	params.SetDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := newCache(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("forecast cache: %w", err)
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Engine{params: params, cfg: cfg, log: log, cache: c}, nil
}

// SetEventBus sets the bus used to publish scenario and sweep events.
func (e *Engine) SetEventBus(b eventbus.EventBus) { e.bus = b }

// Params returns the model parameters in use.
func (e *Engine) Params() costmodel.Params { return e.params }

// CachedForecasts returns the number of memoized forecasts.
func (e *Engine) CachedForecasts() int { return e.cache.size() }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Evaluate computes the forecast of one scenario.
func (e *Engine) Evaluate(ctx context.Context, p *Plan, sc Scenario) (*Forecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sc.TargetWeeks < compress.MinAchievableWeeks {
		return nil, fmt.Errorf("%w: %d weeks (minimum %d)", ErrInvalidTarget, sc.TargetWeeks, compress.MinAchievableWeeks)
	}
	start := time.Now()
	key := newCacheKey(p, sc)
	if f, ok := e.cache.get(key); ok {
		e.publish(events.ScenarioEvent{
			Schedule: p.Schedule.Name, TargetWeeks: sc.TargetWeeks, AchievedWeeks: f.AchievedWeeks,
			Mode: sc.Mode, EAC: f.EAC, Elapsed: time.Since(start), CacheHit: true,
		})
		return f, nil
	}
	f := e.evaluate(p, sc)
	e.cache.add(key, f)
	e.log.Debugw("scenario evaluated", map[string]any{
		"schedule": p.Schedule.Name,
		"target":   sc.TargetWeeks,
		"achieved": f.AchievedWeeks,
		"mode":     sc.Mode.String(),
		"eac_p50":  f.EAC[model.P50],
	})
	e.publish(events.ScenarioEvent{
		Schedule: p.Schedule.Name, TargetWeeks: sc.TargetWeeks, AchievedWeeks: f.AchievedWeeks,
		Mode: sc.Mode, EAC: f.EAC, Elapsed: time.Since(start),
	})
	return f, nil
}

func (e *Engine) evaluate(p *Plan, sc Scenario) *Forecast {
	f := &Forecast{
		Schedule:  p.Schedule.Name,
		Scenario:  sc,
		BaseWeeks: p.BaseWeeks,
	}
	var ratios map[string]float64
	if p.HasGraph() {
		res := compress.Compress(p.network, sc.TargetWeeks, p.BaseWeeks, sc.Mode)
		if res.Cyclic {
			e.log.Warnf("schedule %q contains a dependency cycle; tasks in the cycle are scheduled in input order", p.Schedule.Name)
		}
		if res.FloorReached && res.AchievedWeeks > sc.TargetWeeks {
			e.log.Debugf("target %d weeks unreachable under %s, best effort %d weeks", sc.TargetWeeks, sc.Mode, res.AchievedWeeks)
		}
		f.Compression = &res
		f.AchievedWeeks = res.AchievedWeeks
		f.WeeklyHours = res.WeeklyHours
		ratios = res.Ratios
	} else {
		f.AchievedWeeks = max(sc.TargetWeeks, compress.MinAchievableWeeks)
		f.WeeklyHours = redistribute.Matrix(p.Baseline, f.AchievedWeeks)
	}
	for _, id := range p.UnknownDisciplines() {
		e.log.Warnf("discipline %q has hours but no rates; its cost is zero", id)
	}

	weeks := f.AchievedWeeks
	f.GlobalPF = e.params.GlobalPF(p.BaseWeeks, weeks)
	f.Productivity = e.params.Productivity(p.Disciplines, p.BaseWeeks, weeks, ratios, sc.Overrides)
	f.NumOTWeeks = costmodel.OvertimeWeeks(sc.Mode, p.BaseWeeks, weeks)
	f.Fatigue = e.params.FatigueSeries(sc.Mode, weeks, f.NumOTWeeks)
	if weeks < p.BaseWeeks {
		f.Stacking = e.params.Stacking(p.Baseline, f.WeeklyHours)
	}

	base := aggregate(p, neutral(p.Baseline, p.BaseWeeks, e.cfg.TimeCostPerWeek), model.P50, costmodel.BandMultipliers{})
	baseCost := make(map[string]float64, len(base.Disciplines))
	for _, d := range base.Disciplines {
		baseCost[d.ID] = d.AdjustedCost
	}
	f.BaselineEAC = base.Total

	fc := factors{
		weeks:     weeks,
		hours:     f.WeeklyHours,
		pf:        f.Productivity,
		pi:        f.Fatigue,
		stacking:  f.Stacking,
		otWeeks:   f.NumOTWeeks,
		mode:      sc.Mode,
		otScope:   overtimeScope(p, sc.Scope, ratios),
		timePerWk: e.cfg.TimeCostPerWeek,
		baseCost:  baseCost,
		baseTotal: base.Total,
	}
	f.Breakdowns = make(map[model.RiskBand]*CostBreakdown, 3)
	f.EAC = make(map[model.RiskBand]float64, 3)
	for _, band := range model.RiskBands() {
		b := aggregate(p, fc, band, e.params.Bands.For(band))
		f.Breakdowns[band] = b
		f.EAC[band] = b.Total
	}
	return f
}

// overtimeScope returns the disciplines working the overtime window.
// Task-specific overtime is limited to disciplines whose own tasks were
// compressed; without task data it falls back to project-wide.
func overtimeScope(p *Plan, scope model.OvertimeScope, ratios map[string]float64) map[string]bool {
	out := make(map[string]bool, len(p.Disciplines))
	for _, id := range p.Disciplines {
		if scope == model.ScopeTaskSpecific && ratios != nil {
			r, ok := ratios[id]
			out[id] = ok && r < 1
			continue
		}
		out[id] = true
	}
	return out
}

func (e *Engine) publish(ev any) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
