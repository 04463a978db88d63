package costmodel

import (
	"fmt"

	"github.com/kilianp07/crunch/core/model"
)

// BandMultipliers scale the productivity loss, the fatigue loss and the
// stacking penalty of one risk band.
type BandMultipliers struct {
	Productivity float64 `json:"productivity"`
	Fatigue      float64 `json:"fatigue"`
	Stacking     float64 `json:"stacking"`
}

// Bands holds the multipliers of the P50, P80 and P90 estimates.
type Bands struct {
	P50 BandMultipliers `json:"p50"`
	P80 BandMultipliers `json:"p80"`
	P90 BandMultipliers `json:"p90"`
}

// DefaultBands returns the calibrated multipliers.
func DefaultBands() Bands {
	return Bands{
		P50: BandMultipliers{Productivity: 1.0, Fatigue: 1.0, Stacking: 1.0},
		P80: BandMultipliers{Productivity: 1.25, Fatigue: 1.15, Stacking: 1.20},
		P90: BandMultipliers{Productivity: 1.50, Fatigue: 1.30, Stacking: 1.40},
	}
}

// SetDefaults fills bands left entirely unset.
func (b *Bands) SetDefaults() {
	d := DefaultBands()
	if b.P50 == (BandMultipliers{}) {
		b.P50 = d.P50
	}
	if b.P80 == (BandMultipliers{}) {
		b.P80 = d.P80
	}
	if b.P90 == (BandMultipliers{}) {
		b.P90 = d.P90
	}
}

// Validate rejects negative multipliers.
func (b Bands) Validate() error {
	for _, band := range model.RiskBands() {
		m := b.For(band)
		if m.Productivity < 0 || m.Fatigue < 0 || m.Stacking < 0 {
			return fmt.Errorf("%w: negative multiplier for %s", ErrInvalidParams, band)
		}
	}
	return nil
}

// For returns the multipliers of a band. Unknown bands map to P50.
func (b Bands) For(band model.RiskBand) BandMultipliers {
	switch band {
	case model.P80:
		return b.P80
	case model.P90:
		return b.P90
	default:
		return b.P50
	}
}
