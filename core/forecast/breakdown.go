package forecast

import (
	"github.com/kilianp07/crunch/core/costmodel"
	"github.com/kilianp07/crunch/core/model"
)

// DisciplineCost is the cost of one discipline over the whole schedule.
type DisciplineCost struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Hours        float64 `json:"hours"`
	BaseCost     float64 `json:"base_cost"`
	AdjustedCost float64 `json:"adjusted_cost"`
	PF           float64 `json:"pf"`
	Overtime     bool    `json:"overtime"`
}

// WeekCost is the cost of one week. Cumulative carries the running total
// used to draw the cost S-curve.
type WeekCost struct {
	Week       int     `json:"week"`
	Hours      float64 `json:"hours"`
	Direct     float64 `json:"direct"`
	Time       float64 `json:"time"`
	Total      float64 `json:"total"`
	Cumulative float64 `json:"cumulative"`
}

// CostBreakdown is the cost of one scenario at one risk band.
type CostBreakdown struct {
	Band          model.RiskBand   `json:"band"`
	Disciplines   []DisciplineCost `json:"disciplines"`
	Weeks         []WeekCost       `json:"weeks"`
	DirectCost    float64          `json:"direct_cost"`
	TimeCost      float64          `json:"time_cost"`
	Total         float64          `json:"total"`
	BaselineTotal float64          `json:"baseline_total"`
}

// factors are the model outputs shared by every risk band of a scenario.
type factors struct {
	weeks     int
	hours     model.HoursProfile
	pf        map[string]float64
	pi        []float64
	stacking  []float64
	otWeeks   int
	mode      model.OvertimeMode
	otScope   map[string]bool
	timePerWk float64
	baseCost  map[string]float64
	baseTotal float64
}

// neutral returns the factors of running hours as planned: no productivity
// loss, no overtime, no stacking.
func neutral(hours model.HoursProfile, weeks int, timePerWeek float64) factors {
	return factors{weeks: weeks, hours: hours, mode: model.OvertimeNone, timePerWk: timePerWeek}
}

// aggregate computes the weekly direct cost of every discipline:
// hours × rate × 1/PF × 1/PI (in the overtime window) × (1 + stacking),
// with the loss magnitudes scaled by the band multipliers.
func aggregate(p *Plan, f factors, band model.RiskBand, m costmodel.BandMultipliers) *CostBreakdown {
	b := &CostBreakdown{
		Band:          band,
		Disciplines:   make([]DisciplineCost, 0, len(p.Disciplines)),
		Weeks:         make([]WeekCost, f.weeks),
		BaselineTotal: f.baseTotal,
	}
	for w := range b.Weeks {
		b.Weeks[w] = WeekCost{Week: w + 1, Time: f.timePerWk}
	}
	for _, id := range p.Disciplines {
		d := p.rate(id)
		pf := 1.0
		if v, ok := f.pf[id]; ok {
			pf = costmodel.ScaleLoss(v, m.Productivity)
		}
		ot := f.otWeeks > 0 && f.otScope[id]
		otRate := costmodel.BlendedRate(d, f.mode)
		dc := DisciplineCost{ID: id, Name: d.Name, PF: pf, Overtime: ot, BaseCost: f.baseCost[id]}
		for w, h := range f.hours[id] {
			if w >= f.weeks || h == 0 {
				continue
			}
			rate := d.BaseRate
			factor := 1 / pf
			if ot && costmodel.InOvertimeWindow(w, f.weeks, f.otWeeks) {
				rate = otRate
				factor /= costmodel.ScaleLoss(f.pi[w], m.Fatigue)
			}
			if w < len(f.stacking) {
				factor *= 1 + f.stacking[w]*m.Stacking
			}
			cost := h * rate * factor
			dc.Hours += h
			dc.AdjustedCost += cost
			b.Weeks[w].Hours += h
			b.Weeks[w].Direct += cost
		}
		b.DirectCost += dc.AdjustedCost
		b.Disciplines = append(b.Disciplines, dc)
	}
	b.TimeCost = f.timePerWk * float64(f.weeks)
	b.Total = b.DirectCost + b.TimeCost
	var cum float64
	for w := range b.Weeks {
		b.Weeks[w].Total = b.Weeks[w].Direct + b.Weeks[w].Time
		cum += b.Weeks[w].Total
		b.Weeks[w].Cumulative = cum
	}
	return b
}
