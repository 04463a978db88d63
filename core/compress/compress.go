// Package compress shortens or stretches a CPM network to a target
// duration. Compression crashes critical tasks iteratively, bounded by the
// overtime capacity floor of each task; extension scales every duration
// uniformly.
package compress

import (
	"math"

	"github.com/kilianp07/crunch/core/cpm"
	"github.com/kilianp07/crunch/core/model"
)

// MinAchievableWeeks is the shortest duration ever reported.
const MinAchievableWeeks = 4

const maxIterations = 500

// TaskSchedule is the adjusted schedule of one task.
type TaskSchedule struct {
	ID           string `json:"id"`
	DisciplineID string `json:"discipline_id"`
	Start        int    `json:"start"`
	Finish       int    `json:"finish"`
	OrigDays     int    `json:"orig_days"`
	NewDays      int    `json:"new_days"`
	Float        int    `json:"float"`
	Critical     bool   `json:"critical"`
}

// Result describes one compression run. AchievedWeeks may exceed the
// requested target when logic links or capacity floors prevent full
// compression; downstream cost math must use it instead of the target.
type Result struct {
	TargetWeeks   int                `json:"target_weeks"`
	AchievedWeeks int                `json:"achieved_weeks"`
	BaselineDays  int                `json:"baseline_days"`
	ProjectDays   int                `json:"project_days"`
	Tasks         []TaskSchedule     `json:"tasks"`
	CriticalPath  []string           `json:"critical_path"`
	Waves         []cpm.Wave         `json:"waves"`
	Ratios        map[string]float64 `json:"ratios"`
	WeeklyHours   model.HoursProfile `json:"weekly_hours"`
	Iterations    int                `json:"iterations"`
	FloorReached  bool               `json:"floor_reached"`
	Cyclic        bool               `json:"cyclic"`
	Network       *cpm.Network       `json:"-"`
}

// MinDays returns the crash floor of a task: max(1, ceil(orig × floor)).
// Zero-duration milestones have no floor and are never crashed.
func MinDays(orig int, mode model.OvertimeMode) int {
	if orig <= 0 {
		return 0
	}
	den := model.BaseDaysPerWeek + mode.ExtraDays()
	d := (orig*model.BaseDaysPerWeek + den - 1) / den
	if d < 1 {
		d = 1
	}
	return d
}

// Compress runs one compression (targetWeeks < baseWeeks) or extension
// (targetWeeks ≥ baseWeeks) on a private copy of base.
func Compress(base *cpm.Network, targetWeeks, baseWeeks int, mode model.OvertimeMode) Result {
	net := base.Clone()
	for i := range net.Nodes {
		net.Nodes[i].Days = net.Nodes[i].OrigDays
	}
	baselineEnd := net.Analyze()
	res := Result{TargetWeeks: targetWeeks, BaselineDays: baselineEnd, Cyclic: net.Cyclic()}

	var end int
	if targetWeeks >= baseWeeks {
		end = extend(net, float64(targetWeeks)/float64(max(baseWeeks, 1)))
	} else {
		end, res.Iterations, res.FloorReached = crash(net, baselineEnd, targetWeeks*model.DaysPerWeek, mode)
	}
	res.ProjectDays = end
	res.AchievedWeeks = achievedWeeks(end)
	res.Network = net
	res.Tasks = taskSchedules(net)
	res.CriticalPath = net.CriticalPath()
	res.Waves = net.Waves()
	res.Ratios = disciplineRatios(net)
	res.WeeklyHours = WeeklyHours(net, res.AchievedWeeks)
	return res
}

// MinWeeks returns the shortest duration reachable by crashing every
// critical task down to its floor under the given overtime mode.
func MinWeeks(base *cpm.Network, baseWeeks int, mode model.OvertimeMode) int {
	return Compress(base, 0, baseWeeks, mode).AchievedWeeks
}

func achievedWeeks(days int) int {
	w := int(math.Ceil(float64(days) / model.DaysPerWeek))
	if w < MinAchievableWeeks {
		w = MinAchievableWeeks
	}
	return w
}

func extend(net *cpm.Network, ratio float64) int {
	for i := range net.Nodes {
		n := &net.Nodes[i]
		d := int(math.Round(float64(n.OrigDays) * ratio))
		if d < n.OrigDays {
			d = n.OrigDays
		}
		n.Days = d
	}
	return net.Analyze()
}

type candidate struct {
	idx       int
	remaining int
}

// crash shortens critical tasks until the project end reaches targetDays,
// no critical task has capacity left, or the iteration bound is hit.
func crash(net *cpm.Network, end, targetDays int, mode model.OvertimeMode) (int, int, bool) {
	if end <= targetDays {
		return end, 0, false
	}
	limit := min(end-targetDays+10, maxIterations)
	floorReached := false
	iter := 0
	for ; iter < limit && end > targetDays; iter++ {
		net.BackwardPass(end)
		var cands []candidate
		total := 0
		for i := range net.Nodes {
			n := &net.Nodes[i]
			if !n.IsCritical {
				continue
			}
			rem := n.Days - MinDays(n.OrigDays, mode)
			if rem <= 0 {
				continue
			}
			cands = append(cands, candidate{idx: i, remaining: rem})
			total += rem
		}
		if len(cands) == 0 {
			floorReached = true
			break
		}
		overshoot := float64(end - targetDays)
		for _, c := range cands {
			share := int(math.Round(float64(c.remaining) / float64(total) * overshoot))
			cut := max(1, min(share, c.remaining))
			net.Nodes[c.idx].Days -= cut
		}
		end = net.ForwardPass()
	}
	return net.Analyze(), iter, floorReached
}

func taskSchedules(net *cpm.Network) []TaskSchedule {
	out := make([]TaskSchedule, len(net.Nodes))
	for i, n := range net.Nodes {
		out[i] = TaskSchedule{
			ID:           n.ID,
			DisciplineID: n.DisciplineID,
			Start:        n.ES,
			Finish:       n.EF,
			OrigDays:     n.OrigDays,
			NewDays:      n.Days,
			Float:        n.Float,
			Critical:     n.IsCritical,
		}
	}
	return out
}

// disciplineRatios returns Σ new days / Σ original days per discipline.
// Disciplines without any duration report 1.
func disciplineRatios(net *cpm.Network) map[string]float64 {
	orig := make(map[string]int)
	cur := make(map[string]int)
	for _, n := range net.Nodes {
		orig[n.DisciplineID] += n.OrigDays
		cur[n.DisciplineID] += n.Days
	}
	ratios := make(map[string]float64, len(orig))
	for id, o := range orig {
		if o == 0 {
			ratios[id] = 1
			continue
		}
		ratios[id] = float64(cur[id]) / float64(o)
	}
	return ratios
}
