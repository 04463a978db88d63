package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/kilianp07/crunch/app"
	"github.com/kilianp07/crunch/core/compress"
	coreforecast "github.com/kilianp07/crunch/core/forecast"
	"github.com/kilianp07/crunch/core/model"
	"github.com/kilianp07/crunch/core/project"
	"github.com/kilianp07/crunch/pkg/export"
)

// scenarioFlags are shared by the commands evaluating scenarios.
type scenarioFlags struct {
	mode      string
	scope     string
	overrides map[string]string
}

func (f *scenarioFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "none", "overtime mode: none, one-day or two-days")
	cmd.Flags().StringVar(&f.scope, "scope", "project", "overtime scope: project or task-specific")
	cmd.Flags().StringToStringVar(&f.overrides, "override", nil, "productivity override per discipline, e.g. civil=0.9")
}

func (f *scenarioFlags) parse() (model.OvertimeMode, model.OvertimeScope, map[string]float64, error) {
	mode, err := model.ParseOvertimeMode(f.mode)
	if err != nil {
		return 0, 0, nil, err
	}
	scope, err := model.ParseOvertimeScope(f.scope)
	if err != nil {
		return 0, 0, nil, err
	}
	var overrides map[string]float64
	for id, raw := range f.overrides {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			return 0, 0, nil, fmt.Errorf("override %s: %q is not a positive number", id, raw)
		}
		if overrides == nil {
			overrides = make(map[string]float64, len(f.overrides))
		}
		overrides[id] = v
	}
	return mode, scope, overrides, nil
}

var (
	forecastFlags    scenarioFlags
	forecastWeeks    int
	forecastBand     string
	forecastStaffing bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast <project-file>",
	Short: "Evaluate the cost of running a schedule in a target duration",
	Args:  cobra.ExactArgs(1),
	RunE:  runForecast,
}

func init() {
	forecastFlags.register(forecastCmd)
	forecastCmd.Flags().IntVarP(&forecastWeeks, "weeks", "w", 0, "target duration in weeks (default: baseline)")
	forecastCmd.Flags().StringVarP(&forecastBand, "band", "b", "P50", "risk band of the detailed breakdown")
	forecastCmd.Flags().BoolVar(&forecastStaffing, "staffing", false, "print the weekly headcount plan")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	sched, err := project.Load(args[0])
	if err != nil {
		return err
	}
	mode, scope, overrides, err := forecastFlags.parse()
	if err != nil {
		return err
	}
	band, err := model.ParseRiskBand(forecastBand)
	if err != nil {
		return err
	}
	return withService(func(ctx context.Context, svc *app.Service) error {
		weeks := forecastWeeks
		if weeks == 0 {
			l, err := svc.Limits(sched)
			if err != nil {
				return err
			}
			weeks = max(l.BaseWeeks, 4)
		}
		f, err := svc.Forecast(ctx, sched, coreforecast.Scenario{
			TargetWeeks: weeks,
			Mode:        mode,
			Scope:       scope,
			Overrides:   overrides,
		})
		if err != nil {
			return err
		}
		switch output {
		case outputJSON:
			if forecastStaffing {
				plan := coreforecast.Staffing(f)
				return export.WriteJSON(out(cmd), struct {
					*coreforecast.Forecast
					Staffing coreforecast.StaffingPlan `json:"staffing"`
				}{f, plan})
			}
			return export.WriteJSON(out(cmd), f)
		case outputCSV:
			return export.WriteBreakdownCSV(out(cmd), f.Breakdown(band))
		}
		renderForecast(cmd, f, band)
		if f.Compression != nil {
			renderWaves(cmd, f.Compression)
		}
		if forecastStaffing {
			renderStaffing(cmd, coreforecast.Staffing(f))
		}
		return nil
	})
}

func renderForecast(cmd *cobra.Command, f *coreforecast.Forecast, band model.RiskBand) {
	summary := table.NewWriter()
	summary.SetOutputMirror(out(cmd))
	summary.SetTitle(fmt.Sprintf("%s: %d weeks requested, %d achieved (baseline %d)", f.Schedule, f.Scenario.TargetWeeks, f.AchievedWeeks, f.BaseWeeks))
	summary.AppendHeader(table.Row{"Band", "Direct", "Time", "EAC", "vs baseline"})
	for _, b := range model.RiskBands() {
		bd := f.Breakdown(b)
		if bd == nil {
			continue
		}
		summary.AppendRow(table.Row{b, money(bd.DirectCost), money(bd.TimeCost), money(bd.Total), signedMoney(bd.Total - f.BaselineEAC)})
	}
	summary.AppendFooter(table.Row{"", "", "", "OT weeks", f.NumOTWeeks})
	summary.AppendFooter(table.Row{"", "", "", "Global PF", fmt.Sprintf("%.3f", f.GlobalPF)})
	summary.Render()

	bd := f.Breakdown(band)
	if bd == nil {
		return
	}
	disc := table.NewWriter()
	disc.SetOutputMirror(out(cmd))
	disc.SetTitle(fmt.Sprintf("Disciplines at %s", band))
	disc.AppendHeader(table.Row{"Discipline", "Hours", "PF", "Overtime", "Base cost", "Adjusted cost"})
	for _, d := range bd.Disciplines {
		name := d.Name
		if name == "" {
			name = d.ID
		}
		disc.AppendRow(table.Row{name, fmt.Sprintf("%.0f", d.Hours), fmt.Sprintf("%.3f", d.PF), d.Overtime, money(d.BaseCost), money(d.AdjustedCost)})
	}
	disc.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	disc.Render()
}

// renderWaves prints the adjusted schedule as groups of tasks sharing an
// early start, critical ones marked with an asterisk.
func renderWaves(cmd *cobra.Command, res *compress.Result) {
	critical := make(map[string]bool, len(res.CriticalPath))
	for _, id := range res.CriticalPath {
		critical[id] = true
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(out(cmd))
	tw.SetTitle(fmt.Sprintf("Critical path: %s", strings.Join(res.CriticalPath, " > ")))
	tw.AppendHeader(table.Row{"Day", "Tasks"})
	for _, w := range res.Waves {
		ids := make([]string, len(w.TaskIDs))
		for i, id := range w.TaskIDs {
			ids[i] = id
			if critical[id] {
				ids[i] += "*"
			}
		}
		tw.AppendRow(table.Row{w.Start, strings.Join(ids, ", ")})
	}
	tw.Render()
}

func renderStaffing(cmd *cobra.Command, plan coreforecast.StaffingPlan) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out(cmd))
	tw.SetTitle(fmt.Sprintf("Staffing: peak %d in week %d", plan.Peak, plan.PeakWeek))
	tw.AppendHeader(table.Row{"Week", "Headcount"})
	for _, w := range plan.Weeks {
		tw.AppendRow(table.Row{w.Week, w.Total})
	}
	tw.Render()
}

func money(v float64) string { return fmt.Sprintf("$%.0f", v) }

func signedMoney(v float64) string { return fmt.Sprintf("%+.0f", v) }
