package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// DaysPerWeek converts day offsets into calendar weeks.
const DaysPerWeek = 7

// RelationType defines the logic link between two tasks.
type RelationType int

const (
	FinishStart RelationType = iota
	StartStart
	FinishFinish
	StartFinish
)

// ErrUnknownRelationType is returned when a relationship type cannot be parsed.
var ErrUnknownRelationType = errors.New("unknown relationship type")

// String returns the scheduling abbreviation of the relationship type.
func (t RelationType) String() string {
	switch t {
	case FinishStart:
		return "FS"
	case StartStart:
		return "SS"
	case FinishFinish:
		return "FF"
	case StartFinish:
		return "SF"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t RelationType) MarshalText() ([]byte, error) {
	if t < FinishStart || t > StartFinish {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRelationType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty value means FS.
func (t *RelationType) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "", "FS", "PR_FS":
		*t = FinishStart
	case "SS", "PR_SS":
		*t = StartStart
	case "FF", "PR_FF":
		*t = FinishFinish
	case "SF", "PR_SF":
		*t = StartFinish
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRelationType, string(b))
	}
	return nil
}

// Task is one activity of the baseline schedule. Start and End are day
// offsets from the project start.
type Task struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	DisciplineID string  `json:"discipline_id" yaml:"discipline_id"`
	Start        int     `json:"start" yaml:"start"`
	End          int     `json:"end" yaml:"end"`
	Hours        float64 `json:"hours" yaml:"hours"`
}

// OrigDays returns the baseline duration of the task in days.
func (t Task) OrigDays() int {
	if t.End < t.Start {
		return 0
	}
	return t.End - t.Start
}

// Relationship links a predecessor to a successor. Lag is a physical
// constraint in days and is never compressed.
type Relationship struct {
	From string       `json:"from" yaml:"from"`
	To   string       `json:"to" yaml:"to"`
	Type RelationType `json:"type" yaml:"type"`
	Lag  int          `json:"lag" yaml:"lag"`
}

// Discipline is a labor trade with its own rates.
type Discipline struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	BaseRate float64 `json:"base_rate" yaml:"base_rate"`
	OTRate   float64 `json:"ot_rate" yaml:"ot_rate"`
}

// HoursProfile maps a discipline id to its weekly labor hours.
type HoursProfile map[string][]float64

// Weeks returns the length of the longest discipline series.
func (p HoursProfile) Weeks() int {
	n := 0
	for _, s := range p {
		if len(s) > n {
			n = len(s)
		}
	}
	return n
}

// Total returns the sum of all hours in the profile.
func (p HoursProfile) Total() float64 {
	var sum float64
	for _, s := range p {
		for _, h := range s {
			sum += h
		}
	}
	return sum
}

// Clone returns a deep copy of the profile.
func (p HoursProfile) Clone() HoursProfile {
	cp := make(HoursProfile, len(p))
	for k, s := range p {
		cp[k] = append([]float64(nil), s...)
	}
	return cp
}

// Schedule is the immutable input of one forecast: the task graph, the
// disciplines and an optional aggregate weekly profile used when no task
// graph is available.
type Schedule struct {
	Name          string         `json:"name" yaml:"name"`
	Tasks         []Task         `json:"tasks" yaml:"tasks"`
	Relationships []Relationship `json:"relationships" yaml:"relationships"`
	Disciplines   []Discipline   `json:"disciplines" yaml:"disciplines"`
	Profile       HoursProfile   `json:"profile" yaml:"profile"`
}

// HasGraph reports whether the schedule carries a task graph.
func (s Schedule) HasGraph() bool { return len(s.Tasks) > 0 }

// BaselineDays returns the latest baseline finish offset.
func (s Schedule) BaselineDays() int {
	end := 0
	for _, t := range s.Tasks {
		if t.End > end {
			end = t.End
		}
	}
	return end
}

// BaseWeeks returns the baseline duration in weeks. Task graphs take
// precedence over the aggregate profile.
func (s Schedule) BaseWeeks() int {
	if s.HasGraph() {
		w := int(math.Ceil(float64(s.BaselineDays()) / DaysPerWeek))
		if w < 1 {
			w = 1
		}
		return w
	}
	return s.Profile.Weeks()
}

// Discipline returns the discipline with the given id.
func (s Schedule) Discipline(id string) (Discipline, bool) {
	for _, d := range s.Disciplines {
		if d.ID == id {
			return d, true
		}
	}
	return Discipline{}, false
}

// DisciplineIDs returns the ids of all disciplines in declaration order.
func (s Schedule) DisciplineIDs() []string {
	ids := make([]string, len(s.Disciplines))
	for i, d := range s.Disciplines {
		ids[i] = d.ID
	}
	return ids
}
