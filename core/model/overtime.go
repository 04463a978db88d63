package model

import (
	"errors"
	"fmt"
	"strings"
)

// Base work week: five days of ten hours.
const (
	BaseDaysPerWeek  = 5
	BaseHoursPerDay  = 10
	BaseHoursPerWeek = BaseDaysPerWeek * BaseHoursPerDay
)

// OvertimeMode selects how many extra workdays per week are scheduled.
type OvertimeMode int

const (
	OvertimeNone OvertimeMode = iota
	OvertimeOneExtraDay
	OvertimeTwoExtraDays
)

// ErrUnknownOvertimeMode is returned for unsupported overtime modes.
var ErrUnknownOvertimeMode = errors.New("unknown overtime mode")

// ExtraDays returns the number of workdays added to the base week.
func (m OvertimeMode) ExtraDays() int {
	switch m {
	case OvertimeOneExtraDay:
		return 1
	case OvertimeTwoExtraDays:
		return 2
	default:
		return 0
	}
}

// Floor is the physical compression limit of the mode: base workdays
// divided by extended workdays.
func (m OvertimeMode) Floor() float64 {
	return float64(BaseDaysPerWeek) / float64(BaseDaysPerWeek+m.ExtraDays())
}

// HoursPerWeek returns the scheduled hours of one week in this mode.
func (m OvertimeMode) HoursPerWeek() float64 {
	return float64(BaseHoursPerWeek + m.ExtraHours())
}

// ExtraHours returns the overtime hours worked per week.
func (m OvertimeMode) ExtraHours() int {
	return m.ExtraDays() * BaseHoursPerDay
}

// Factor is the capacity multiplier relative to the base week.
func (m OvertimeMode) Factor() float64 {
	return m.HoursPerWeek() / BaseHoursPerWeek
}

func (m OvertimeMode) String() string {
	switch m {
	case OvertimeNone:
		return "none"
	case OvertimeOneExtraDay:
		return "one-day"
	case OvertimeTwoExtraDays:
		return "two-days"
	default:
		return "unknown"
	}
}

// ParseOvertimeMode converts a textual mode.
func ParseOvertimeMode(s string) (OvertimeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return OvertimeNone, nil
	case "one-day", "sat", "6x10":
		return OvertimeOneExtraDay, nil
	case "two-days", "satsun", "7x10":
		return OvertimeTwoExtraDays, nil
	default:
		return OvertimeNone, fmt.Errorf("%w: %q", ErrUnknownOvertimeMode, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m OvertimeMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *OvertimeMode) UnmarshalText(b []byte) error {
	v, err := ParseOvertimeMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// OvertimeModes lists all supported modes.
func OvertimeModes() []OvertimeMode {
	return []OvertimeMode{OvertimeNone, OvertimeOneExtraDay, OvertimeTwoExtraDays}
}

// OvertimeScope defines which disciplines work the overtime window.
type OvertimeScope int

const (
	// ScopeProjectWide applies overtime to every discipline.
	ScopeProjectWide OvertimeScope = iota
	// ScopeTaskSpecific applies overtime only to disciplines whose tasks
	// were compressed.
	ScopeTaskSpecific
)

func (s OvertimeScope) String() string {
	if s == ScopeTaskSpecific {
		return "task-specific"
	}
	return "project-wide"
}

// ParseOvertimeScope converts a textual scope.
func ParseOvertimeScope(s string) (OvertimeScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "project", "project-wide":
		return ScopeProjectWide, nil
	case "task", "task-specific":
		return ScopeTaskSpecific, nil
	default:
		return ScopeProjectWide, fmt.Errorf("unknown overtime scope %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s OvertimeScope) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *OvertimeScope) UnmarshalText(b []byte) error {
	v, err := ParseOvertimeScope(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
