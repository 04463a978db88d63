// Package costmodel holds the productivity, overtime fatigue, trade
// stacking and risk band models used to turn a compressed schedule into a
// cost. All empirical constants live in Params so they can be calibrated
// from configuration or replaced in tests.
package costmodel

import (
	"errors"
	"fmt"
)

// Params are the model parameters. The zero value is not usable; start from
// DefaultParams.
type Params struct {
	// PFAlpha is the exponent of the productivity power curve.
	PFAlpha float64 `json:"pf_alpha"`
	// AccelPF is the productivity factor at full compression.
	AccelPF float64 `json:"accel_pf"`

	StackingK   float64 `json:"stacking_k"`
	StackingCap float64 `json:"stacking_cap"`

	// PIOneDay and PITwoDays are the MCAA productivity index per consecutive
	// overtime week for 6x10 and 7x10 schedules.
	PIOneDay  []float64 `json:"pi_one_day"`
	PITwoDays []float64 `json:"pi_two_days"`
	PIFloor   float64   `json:"pi_floor"`

	Bands Bands `json:"bands"`
}

// DefaultParams returns the documented empirical values.
func DefaultParams() Params {
	return Params{
		PFAlpha:     1.8,
		AccelPF:     0.85,
		StackingK:   0.03,
		StackingCap: 0.25,
		PIOneDay: []float64{
			0.96, 0.93, 0.90, 0.87, 0.84, 0.82, 0.80, 0.78, 0.76,
			0.74, 0.73, 0.72, 0.71, 0.70, 0.69, 0.68, 0.67,
		},
		PITwoDays: []float64{
			0.93, 0.88, 0.84, 0.80, 0.77, 0.74, 0.71, 0.69, 0.67,
			0.65, 0.63, 0.61, 0.60, 0.59, 0.58, 0.57, 0.56,
		},
		PIFloor: 0.35,
		Bands:   DefaultBands(),
	}
}

// SetDefaults fills unset fields with the default values.
func (p *Params) SetDefaults() {
	d := DefaultParams()
	if p.PFAlpha == 0 {
		p.PFAlpha = d.PFAlpha
	}
	if p.AccelPF == 0 {
		p.AccelPF = d.AccelPF
	}
	if p.StackingK == 0 {
		p.StackingK = d.StackingK
	}
	if p.StackingCap == 0 {
		p.StackingCap = d.StackingCap
	}
	if len(p.PIOneDay) == 0 {
		p.PIOneDay = d.PIOneDay
	}
	if len(p.PITwoDays) == 0 {
		p.PITwoDays = d.PITwoDays
	}
	if p.PIFloor == 0 {
		p.PIFloor = d.PIFloor
	}
	p.Bands.SetDefaults()
}

// ErrInvalidParams is wrapped by every validation failure.
var ErrInvalidParams = errors.New("invalid model parameters")

// Validate checks the parameters are usable.
func (p Params) Validate() error {
	if p.PFAlpha <= 0 {
		return fmt.Errorf("%w: pf_alpha must be positive", ErrInvalidParams)
	}
	if p.AccelPF <= 0 || p.AccelPF > 1 {
		return fmt.Errorf("%w: accel_pf must be in (0,1]", ErrInvalidParams)
	}
	if p.StackingK < 0 || p.StackingCap < 0 {
		return fmt.Errorf("%w: stacking parameters must not be negative", ErrInvalidParams)
	}
	if len(p.PIOneDay) < 2 || len(p.PITwoDays) < 2 {
		return fmt.Errorf("%w: productivity index tables need at least 2 entries", ErrInvalidParams)
	}
	if p.PIFloor <= 0 || p.PIFloor > 1 {
		return fmt.Errorf("%w: pi_floor must be in (0,1]", ErrInvalidParams)
	}
	return p.Bands.Validate()
}

// minFactor keeps band-scaled productivity factors strictly positive.
const minFactor = 0.05

// ScaleLoss amplifies the loss (1 - v) of a factor by m.
func ScaleLoss(v, m float64) float64 {
	s := 1 - (1-v)*m
	if s < minFactor {
		return minFactor
	}
	return s
}
