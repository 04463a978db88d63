package cpm

import "github.com/kilianp07/crunch/core/model"

// Node is the per-run working record of one task. All CPM fields are
// mutated in place during a run and never shared across runs.
type Node struct {
	ID           string
	DisciplineID string
	Hours        float64
	OrigDays     int
	Days         int // working duration, shortened while crashing

	ES, EF     int // earliest start/finish
	LS, LF     int // latest start/finish
	Float      int
	IsCritical bool
}

type link struct {
	node int
	typ  model.RelationType
	lag  int
}

// Wave groups tasks sharing the same early start.
type Wave struct {
	Start      int      `json:"start"`
	TaskIDs    []string `json:"task_ids"`
	IsCritical bool     `json:"critical"`
}
