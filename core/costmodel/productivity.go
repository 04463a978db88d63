package costmodel

import (
	"math"

	"github.com/kilianp07/crunch/core/compress"
	"github.com/kilianp07/crunch/core/model"
)

// fullCompressionRatio is the duration ratio of a 7-day week versus the
// 5-day base week. It defines "full compression" independently of the
// overtime mode in use.
const fullCompressionRatio = float64(model.BaseDaysPerWeek) / model.DaysPerWeek

// AbsoluteMinWeeks is the physical 7-day-week floor of a baseline:
// max(4, ceil(base × 5/7)).
func AbsoluteMinWeeks(baseWeeks int) int {
	w := (baseWeeks*model.BaseDaysPerWeek + model.DaysPerWeek - 1) / model.DaysPerWeek
	return max(compress.MinAchievableWeeks, w)
}

// PF evaluates the productivity power curve at compression fraction c,
// clamped to [0,1]: 1 + (AccelPF − 1) × c^α.
func (p Params) PF(c float64) float64 {
	c = clamp01(c)
	return 1 + (p.AccelPF-1)*math.Pow(c, p.PFAlpha)
}

// GlobalPF returns the project-level productivity factor of running the
// baseline in weeks. Extension never improves productivity.
func (p Params) GlobalPF(baseWeeks, weeks int) float64 {
	if weeks >= baseWeeks {
		return 1
	}
	span := baseWeeks - AbsoluteMinWeeks(baseWeeks)
	if span <= 0 {
		return p.PF(1)
	}
	return p.PF(float64(baseWeeks-weeks) / float64(span))
}

// DisciplinePF maps a discipline compression ratio (Σ new days / Σ original
// days) onto the same curve, with a 5/7 ratio meaning full compression.
func (p Params) DisciplinePF(ratio float64) float64 {
	if ratio >= 1 {
		return 1
	}
	return p.PF((1 - ratio) / (1 - fullCompressionRatio))
}

// Productivity resolves the effective productivity factor of every
// discipline. When ratios is non-nil (task-level compression data) each
// discipline uses its own ratio and disciplines without one get 1.0;
// otherwise the global factor applies. An override multiplies the model
// factor; it never replaces it.
func (p Params) Productivity(disciplines []string, baseWeeks, weeks int, ratios, overrides map[string]float64) map[string]float64 {
	global := p.GlobalPF(baseWeeks, weeks)
	out := make(map[string]float64, len(disciplines))
	for _, id := range disciplines {
		pf := global
		if ratios != nil {
			pf = 1
			if r, ok := ratios[id]; ok {
				pf = p.DisciplinePF(r)
			}
		}
		if o, ok := overrides[id]; ok && o > 0 {
			pf *= o
		}
		out[id] = pf
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
