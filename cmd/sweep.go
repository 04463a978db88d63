package cmd

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kilianp07/crunch/app"
	coreforecast "github.com/kilianp07/crunch/core/forecast"
	"github.com/kilianp07/crunch/core/model"
	"github.com/kilianp07/crunch/core/project"
	"github.com/kilianp07/crunch/pkg/export"
)

var (
	sweepFlags scenarioFlags
	sweepMin   int
	sweepMax   int
)

var sweepCmd = &cobra.Command{
	Use:   "sweep <project-file>",
	Short: "Evaluate every candidate duration and report the cheapest one",
	Args:  cobra.ExactArgs(1),
	RunE:  runSweep,
}

func init() {
	sweepFlags.register(sweepCmd)
	sweepCmd.Flags().IntVar(&sweepMin, "min", 0, "shortest duration to evaluate (default: reachable minimum)")
	sweepCmd.Flags().IntVar(&sweepMax, "max", 0, "longest duration to evaluate (default: extension cap)")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	sched, err := project.Load(args[0])
	if err != nil {
		return err
	}
	mode, scope, overrides, err := sweepFlags.parse()
	if err != nil {
		return err
	}
	return withService(func(ctx context.Context, svc *app.Service) error {
		id, curve, err := svc.Sweep(ctx, sched, coreforecast.SweepRequest{
			Mode:      mode,
			Scope:     scope,
			Overrides: overrides,
			MinWeeks:  sweepMin,
			MaxWeeks:  sweepMax,
		})
		if err != nil {
			return err
		}
		switch output {
		case outputJSON:
			return export.WriteJSON(out(cmd), struct {
				RunID string `json:"run_id"`
				*coreforecast.DurationCostCurve
			}{id, curve})
		case outputCSV:
			return export.WriteCurveCSV(out(cmd), curve)
		}
		renderCurve(cmd, id, curve)
		return nil
	})
}

func renderCurve(cmd *cobra.Command, id string, c *coreforecast.DurationCostCurve) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out(cmd))
	tw.SetTitle(fmt.Sprintf("%s (%s, %s) baseline %d weeks, run %s", c.Schedule, c.Mode, c.Scope, c.BaseWeeks, id))
	header := table.Row{"Weeks", "Achieved", "OT weeks", "PF", "Time"}
	for _, b := range model.RiskBands() {
		header = append(header, b.String())
	}
	tw.AppendHeader(header)
	for _, p := range c.Points {
		row := table.Row{p.TargetWeeks, p.AchievedWeeks, p.NumOTWeeks, fmt.Sprintf("%.3f", p.GlobalPF), money(p.TimeCost)}
		for _, b := range model.RiskBands() {
			cell := money(p.Total[b])
			if c.Optimal[b] == p.TargetWeeks {
				cell += " *"
			}
			row = append(row, cell)
		}
		tw.AppendRow(row)
	}
	footer := table.Row{"optimum", "", "", "", ""}
	for _, b := range model.RiskBands() {
		footer = append(footer, fmt.Sprintf("%d wk", c.Optimal[b]))
	}
	tw.AppendFooter(footer)
	tw.Render()
}
