package costmodel

import (
	"math"

	"github.com/kilianp07/crunch/core/model"
)

// BlendedRate is the weighted hourly rate of a week worked in mode:
// (base hours × base rate + overtime hours × overtime rate) / total hours.
func BlendedRate(d model.Discipline, mode model.OvertimeMode) float64 {
	base := float64(model.BaseHoursPerWeek)
	ot := float64(mode.ExtraHours())
	return (base*d.BaseRate + ot*d.OTRate) / (base + ot)
}

// OvertimeWeeks returns the size of the overtime window: the weeks of
// extra hours needed to recover the lost base weeks,
// round((base − weeks) × 50 / otHoursPerWeek), capped at weeks. The window
// sits at the end of the schedule.
func OvertimeWeeks(mode model.OvertimeMode, baseWeeks, weeks int) int {
	extra := mode.ExtraHours()
	if extra == 0 || weeks >= baseWeeks {
		return 0
	}
	n := int(math.Round(float64((baseWeeks-weeks)*model.BaseHoursPerWeek) / float64(extra)))
	return min(max(n, 0), weeks)
}

// InOvertimeWindow reports whether week (0-based) lies in the window of
// otWeeks placed at the end of a schedule of weeks.
func InOvertimeWindow(week, weeks, otWeeks int) bool {
	return otWeeks > 0 && week >= weeks-otWeeks && week < weeks
}

// PI returns the productivity index of the n-th consecutive overtime week
// (1-based). Past the end of the table the index is extrapolated linearly
// from the last two entries and floored at PIFloor.
func (p Params) PI(mode model.OvertimeMode, n int) float64 {
	var table []float64
	switch mode {
	case model.OvertimeOneExtraDay:
		table = p.PIOneDay
	case model.OvertimeTwoExtraDays:
		table = p.PITwoDays
	default:
		return 1
	}
	if n < 1 || len(table) == 0 {
		return 1
	}
	if n <= len(table) {
		return math.Max(table[n-1], p.PIFloor)
	}
	if len(table) < 2 {
		return math.Max(table[len(table)-1], p.PIFloor)
	}
	last, prev := table[len(table)-1], table[len(table)-2]
	v := last + float64(n-len(table))*(last-prev)
	return math.Max(v, p.PIFloor)
}

// FatigueSeries returns the productivity index of every week of a schedule
// of weeks whose last otWeeks are worked in mode. Weeks outside the window
// have an index of 1.
func (p Params) FatigueSeries(mode model.OvertimeMode, weeks, otWeeks int) []float64 {
	out := make([]float64, weeks)
	start := weeks - otWeeks
	for w := range out {
		out[w] = 1
		if InOvertimeWindow(w, weeks, otWeeks) {
			out[w] = p.PI(mode, w-start+1)
		}
	}
	return out
}
