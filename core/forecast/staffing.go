package forecast

import (
	"math"

	"github.com/kilianp07/crunch/core/costmodel"
	"github.com/kilianp07/crunch/core/model"
)

// StaffingWeek is the crew size of every discipline in one week.
type StaffingWeek struct {
	Week      int            `json:"week"`
	Headcount map[string]int `json:"headcount"`
	Total     int            `json:"total"`
}

// StaffingPlan is the headcount histogram of a forecast.
type StaffingPlan struct {
	Weeks            []StaffingWeek `json:"weeks"`
	Peak             int            `json:"peak"`
	PeakWeek         int            `json:"peak_week"`
	PeakByDiscipline map[string]int `json:"peak_by_discipline"`
}

// Staffing converts the weekly hours of a forecast into workers: hours
// divided by the hours one worker delivers that week, rounded up. Weeks in
// the overtime window use the longer overtime week for the disciplines
// working it.
func Staffing(f *Forecast) StaffingPlan {
	plan := StaffingPlan{
		Weeks:            make([]StaffingWeek, f.AchievedWeeks),
		PeakByDiscipline: make(map[string]int),
	}
	ot := map[string]bool{}
	if b := f.Breakdowns[model.P50]; b != nil {
		for _, d := range b.Disciplines {
			ot[d.ID] = d.Overtime
		}
	}
	for w := range plan.Weeks {
		sw := StaffingWeek{Week: w + 1, Headcount: make(map[string]int)}
		for id, series := range f.WeeklyHours {
			if w >= len(series) || series[w] <= 0 {
				continue
			}
			perWorker := float64(model.BaseHoursPerWeek)
			if ot[id] && costmodel.InOvertimeWindow(w, f.AchievedWeeks, f.NumOTWeeks) {
				perWorker = f.Scenario.Mode.HoursPerWeek()
			}
			n := int(math.Ceil(series[w]/perWorker - 1e-9))
			sw.Headcount[id] = n
			sw.Total += n
			plan.PeakByDiscipline[id] = max(plan.PeakByDiscipline[id], n)
		}
		if sw.Total > plan.Peak {
			plan.Peak = sw.Total
			plan.PeakWeek = sw.Week
		}
		plan.Weeks[w] = sw
	}
	return plan
}
