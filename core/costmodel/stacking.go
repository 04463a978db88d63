package costmodel

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/crunch/core/model"
)

// stackingEpsilon absorbs float noise when comparing against the baseline
// average.
const stackingEpsilon = 1e-9

// StackingRaw is the congestion penalty of one week: with at least two
// active trades, min(cap, K × (active − 1) × max(1, density)).
func (p Params) StackingRaw(active int, density float64) float64 {
	if active < 2 {
		return 0
	}
	return math.Min(p.StackingCap, p.StackingK*float64(active-1)*math.Max(1, density))
}

// rawSeries computes the weekly raw penalty of a profile against the
// average baseline weekly hours.
func (p Params) rawSeries(hours model.HoursProfile, weeks int, avgBaseline float64) []float64 {
	out := make([]float64, weeks)
	for w := 0; w < weeks; w++ {
		active := 0
		var total float64
		for _, series := range hours {
			if w < len(series) && series[w] > 0 {
				active++
				total += series[w]
			}
		}
		density := 0.0
		if avgBaseline > 0 {
			density = total / avgBaseline
		}
		out[w] = p.StackingRaw(active, density)
	}
	return out
}

// Stacking returns the incremental weekly stacking penalty of scenario
// relative to the average stacking already present in baseline. It returns
// nil when no week carries a penalty.
func (p Params) Stacking(baseline, scenario model.HoursProfile) []float64 {
	baseWeeks := baseline.Weeks()
	weeks := scenario.Weeks()
	if baseWeeks == 0 || weeks == 0 {
		return nil
	}
	avgBaseline := baseline.Total() / float64(baseWeeks)
	avgRaw := floats.Sum(p.rawSeries(baseline, baseWeeks, avgBaseline)) / float64(baseWeeks)

	net := p.rawSeries(scenario, weeks, avgBaseline)
	active := false
	for w, r := range net {
		net[w] = r - avgRaw
		if net[w] < stackingEpsilon {
			net[w] = 0
			continue
		}
		active = true
	}
	if !active {
		return nil
	}
	return net
}
