package compress

import (
	"github.com/kilianp07/crunch/core/cpm"
	"github.com/kilianp07/crunch/core/model"
)

// WeeklyHours re-aggregates task hours into weekly buckets per discipline.
// Each task spreads its hours uniformly over its [ES, EF) day span;
// zero-duration tasks book their hours in the week of their start. Work
// falling past the last bucket is booked in the last week.
func WeeklyHours(net *cpm.Network, weeks int) model.HoursProfile {
	if weeks < 1 {
		weeks = 1
	}
	out := make(model.HoursProfile)
	for _, n := range net.Nodes {
		series, ok := out[n.DisciplineID]
		if !ok {
			series = make([]float64, weeks)
			out[n.DisciplineID] = series
		}
		if n.Hours <= 0 {
			continue
		}
		if n.Days <= 0 {
			series[weekIndex(n.ES, weeks)] += n.Hours
			continue
		}
		perDay := n.Hours / float64(n.Days)
		for w := weekIndex(n.ES, weeks); w < weeks; w++ {
			from := max(n.ES, w*model.DaysPerWeek)
			to := min(n.EF, (w+1)*model.DaysPerWeek)
			if w == weeks-1 {
				to = n.EF
			}
			if to <= from {
				break
			}
			series[w] += perDay * float64(to-from)
		}
	}
	return out
}

func weekIndex(day, weeks int) int {
	w := day / model.DaysPerWeek
	if w < 0 {
		return 0
	}
	if w >= weeks {
		return weeks - 1
	}
	return w
}
