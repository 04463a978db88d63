// Package export writes forecast results as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/kilianp07/crunch/core/forecast"
	"github.com/kilianp07/crunch/core/model"
)

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCurveCSV writes one row per candidate duration with the total cost
// of every risk band.
func WriteCurveCSV(w io.Writer, c *forecast.DurationCostCurve) error {
	cw := csv.NewWriter(w)
	header := []string{"target_weeks", "achieved_weeks", "num_ot_weeks", "global_pf", "time_cost"}
	for _, b := range model.RiskBands() {
		header = append(header, "direct_"+b.String(), "total_"+b.String())
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range c.Points {
		rec := []string{
			strconv.Itoa(p.TargetWeeks),
			strconv.Itoa(p.AchievedWeeks),
			strconv.Itoa(p.NumOTWeeks),
			formatFloat(p.GlobalPF),
			formatFloat(p.TimeCost),
		}
		for _, b := range model.RiskBands() {
			rec = append(rec, formatFloat(p.DirectCost[b]), formatFloat(p.Total[b]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBreakdownCSV writes the weekly cost rows of one band.
func WriteBreakdownCSV(w io.Writer, b *forecast.CostBreakdown) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"week", "hours", "direct", "time", "total", "cumulative"}); err != nil {
		return err
	}
	for _, wk := range b.Weeks {
		rec := []string{
			strconv.Itoa(wk.Week),
			formatFloat(wk.Hours),
			formatFloat(wk.Direct),
			formatFloat(wk.Time),
			formatFloat(wk.Total),
			formatFloat(wk.Cumulative),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHoursCSV writes a weekly hours matrix with one column per
// discipline, in sorted order.
func WriteHoursCSV(w io.Writer, h model.HoursProfile) error {
	ids := make([]string, 0, len(h))
	for id := range h {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"week"}, ids...)); err != nil {
		return err
	}
	for wk := 0; wk < h.Weeks(); wk++ {
		rec := []string{strconv.Itoa(wk + 1)}
		for _, id := range ids {
			var v float64
			if wk < len(h[id]) {
				v = h[id][wk]
			}
			rec = append(rec, formatFloat(v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
