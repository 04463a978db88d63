package model

import (
	"errors"
	"fmt"
	"strings"
)

// RiskBand selects the confidence level of a cost estimate.
type RiskBand int

const (
	P50 RiskBand = iota
	P80
	P90
)

// ErrUnknownRiskBand is returned for unsupported risk bands.
var ErrUnknownRiskBand = errors.New("unknown risk band")

// RiskBands lists all bands in ascending order of conservatism.
func RiskBands() []RiskBand { return []RiskBand{P50, P80, P90} }

func (b RiskBand) String() string {
	switch b {
	case P50:
		return "P50"
	case P80:
		return "P80"
	case P90:
		return "P90"
	default:
		return "unknown"
	}
}

// ParseRiskBand converts a textual band.
func ParseRiskBand(s string) (RiskBand, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "P50":
		return P50, nil
	case "P80":
		return P80, nil
	case "P90":
		return P90, nil
	default:
		return P50, fmt.Errorf("%w: %q", ErrUnknownRiskBand, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b RiskBand) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *RiskBand) UnmarshalText(b2 []byte) error {
	v, err := ParseRiskBand(string(b2))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
