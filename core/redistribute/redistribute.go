// Package redistribute rescales weekly hours profiles to a new duration
// when no task graph is available. The cumulative distribution of the
// original profile is mapped proportionally onto the new timeline so that
// the shape of the curve is kept and total hours are conserved.
package redistribute

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/kilianp07/crunch/core/model"
)

// Profile maps hours spread over len(hours) weeks onto newWeeks weeks.
// Each new week receives the share of hours whose cumulative position
// falls inside its fraction of the timeline. Shares are rounded to whole
// hours by largest remainder, so weeks never go negative and the sum is
// unchanged; a fractional total leaves its fraction on the week with the
// largest remainder.
func Profile(hours []float64, newWeeks int) []float64 {
	if newWeeks < 1 {
		return nil
	}
	out := make([]float64, newWeeks)
	if len(hours) == newWeeks {
		copy(out, hours)
		return out
	}
	if len(hours) == 0 {
		return out
	}
	total := floats.Sum(hours)
	if total <= 0 {
		return out
	}

	n := len(hours)
	xs := make([]float64, n+1)
	ys := make([]float64, n+1)
	cum := floats.CumSum(make([]float64, n), hours)
	for i := 1; i <= n; i++ {
		xs[i] = float64(i) / float64(n)
		ys[i] = cum[i-1] / total
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return out
	}

	shares := make([]float64, newWeeks)
	var assigned float64
	for j := range shares {
		from := pl.Predict(float64(j) / float64(newWeeks))
		to := pl.Predict(float64(j+1) / float64(newWeeks))
		shares[j] = math.Max(0, (to-from)*total)
		out[j] = math.Floor(shares[j])
		assigned += out[j]
	}
	order := make([]int, newWeeks)
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		return shares[order[a]]-out[order[a]] > shares[order[b]]-out[order[b]]
	})
	units := min(int(math.Floor(total-assigned+1e-9)), newWeeks)
	for _, j := range order[:max(units, 0)] {
		out[j]++
		assigned++
	}
	if rest := total - assigned; rest > 0 {
		out[order[0]] += rest
	}
	return out
}

// Matrix applies Profile to every discipline of p on the common timeline
// of p. Shorter series are padded with zero weeks first.
func Matrix(p model.HoursProfile, newWeeks int) model.HoursProfile {
	weeks := p.Weeks()
	out := make(model.HoursProfile, len(p))
	for id, series := range p {
		padded := series
		if len(series) < weeks {
			padded = make([]float64, weeks)
			copy(padded, series)
		}
		out[id] = Profile(padded, newWeeks)
	}
	return out
}
