package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/kilianp07/crunch/core/compress"
	"github.com/kilianp07/crunch/core/cpm"
	"github.com/kilianp07/crunch/core/model"
)

// ErrNoHours is returned when a schedule has neither tasks nor a weekly
// hours profile.
var ErrNoHours = errors.New("schedule has no tasks and no hours profile")

// Plan is a schedule prepared for repeated evaluation: the CPM network is
// built once and shared read-only by every scenario.
type Plan struct {
	Schedule    model.Schedule
	BaseWeeks   int
	Baseline    model.HoursProfile
	Disciplines []string
	Fingerprint uint64

	network *cpm.Network
	rates   map[string]model.Discipline
	unknown []string

	minMu    sync.Mutex
	minWeeks map[model.OvertimeMode]int
}

// Prepare validates a schedule and builds its baseline.
func Prepare(s model.Schedule) (*Plan, error) {
	if !s.HasGraph() && s.Profile.Weeks() == 0 {
		return nil, ErrNoHours
	}
	fp, err := fingerprint(s)
	if err != nil {
		return nil, fmt.Errorf("fingerprint schedule: %w", err)
	}
	p := &Plan{
		Schedule:    s,
		Fingerprint: fp,
		rates:       make(map[string]model.Discipline, len(s.Disciplines)),
		minWeeks:    make(map[model.OvertimeMode]int),
	}
	for _, d := range s.Disciplines {
		p.rates[d.ID] = d
	}
	if s.HasGraph() {
		p.network = cpm.NewNetwork(s.Tasks, s.Relationships)
		base := compress.Compress(p.network, s.BaseWeeks(), s.BaseWeeks(), model.OvertimeNone)
		p.BaseWeeks = base.AchievedWeeks
		p.Baseline = compress.WeeklyHours(base.Network, p.BaseWeeks)
	} else {
		p.BaseWeeks = s.Profile.Weeks()
		p.Baseline = s.Profile.Clone()
	}
	p.Disciplines, p.unknown = disciplineOrder(s, p.Baseline)
	return p, nil
}

// HasGraph reports whether the plan is driven by a CPM network.
func (p *Plan) HasGraph() bool { return p.network != nil }

// Cyclic reports whether the task graph contains a dependency cycle.
func (p *Plan) Cyclic() bool { return p.network != nil && p.network.Cyclic() }

// UnknownDisciplines lists discipline ids carrying hours without a rate.
func (p *Plan) UnknownDisciplines() []string { return p.unknown }

// Network returns the baseline CPM network, nil in profile mode.
func (p *Plan) Network() *cpm.Network { return p.network }

// MinWeeks returns the shortest duration reachable under mode. With a
// task graph the critical path is crashed to its floor; without one the
// overtime capacity bounds the whole profile: max(4, ceil(base × 5/(5+extra))).
func (p *Plan) MinWeeks(mode model.OvertimeMode) int {
	p.minMu.Lock()
	defer p.minMu.Unlock()
	if w, ok := p.minWeeks[mode]; ok {
		return w
	}
	var w int
	if p.network != nil {
		w = compress.MinWeeks(p.network, p.BaseWeeks, mode)
	} else {
		den := model.BaseDaysPerWeek + mode.ExtraDays()
		w = max(compress.MinAchievableWeeks, (p.BaseWeeks*model.BaseDaysPerWeek+den-1)/den)
	}
	w = min(w, max(p.BaseWeeks, compress.MinAchievableWeeks))
	p.minWeeks[mode] = w
	return w
}

// Limits is the baseline duration and the shortest reachable duration of
// every overtime mode.
type Limits struct {
	Schedule  string                     `json:"schedule"`
	BaseWeeks int                        `json:"base_weeks"`
	MinWeeks  map[model.OvertimeMode]int `json:"min_weeks"`
	Cyclic    bool                       `json:"cyclic"`
}

// Limits computes the reachable duration of every overtime mode.
func (p *Plan) Limits() Limits {
	l := Limits{
		Schedule:  p.Schedule.Name,
		BaseWeeks: p.BaseWeeks,
		MinWeeks:  make(map[model.OvertimeMode]int, 3),
		Cyclic:    p.Cyclic(),
	}
	for _, m := range model.OvertimeModes() {
		l.MinWeeks[m] = p.MinWeeks(m)
	}
	return l
}

// rate returns the rates of a discipline; unknown ids cost nothing.
func (p *Plan) rate(id string) model.Discipline {
	if d, ok := p.rates[id]; ok {
		return d
	}
	return model.Discipline{ID: id, Name: id}
}

// disciplineOrder returns the declared disciplines followed by any
// discipline found only in the hours, sorted. The second value lists the
// latter.
func disciplineOrder(s model.Schedule, hours model.HoursProfile) ([]string, []string) {
	ids := s.DisciplineIDs()
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	var extra []string
	for id := range hours {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	for _, t := range s.Tasks {
		if !seen[t.DisciplineID] && hours[t.DisciplineID] == nil {
			seen[t.DisciplineID] = true
			extra = append(extra, t.DisciplineID)
		}
	}
	sort.Strings(extra)
	return append(ids, extra...), extra
}

func fingerprint(s model.Schedule) (uint64, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(b), nil
}
