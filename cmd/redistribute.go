package cmd

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	coreforecast "github.com/kilianp07/crunch/core/forecast"
	"github.com/kilianp07/crunch/core/model"
	"github.com/kilianp07/crunch/core/project"
	"github.com/kilianp07/crunch/core/redistribute"
	"github.com/kilianp07/crunch/pkg/export"
)

var redistributeWeeks int

var redistributeCmd = &cobra.Command{
	Use:   "redistribute <project-file>",
	Short: "Rescale the baseline weekly hours onto a new duration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if redistributeWeeks < 1 {
			return fmt.Errorf("--weeks must be at least 1")
		}
		sched, err := project.Load(args[0])
		if err != nil {
			return err
		}
		p, err := coreforecast.Prepare(sched)
		if err != nil {
			return err
		}
		hours := redistribute.Matrix(p.Baseline, redistributeWeeks)
		switch output {
		case outputJSON:
			return export.WriteJSON(out(cmd), hours)
		case outputCSV:
			return export.WriteHoursCSV(out(cmd), hours)
		}
		renderHours(cmd, hours)
		return nil
	},
}

func init() {
	redistributeCmd.Flags().IntVarP(&redistributeWeeks, "weeks", "w", 0, "new duration in weeks")
	rootCmd.AddCommand(redistributeCmd)
}

func renderHours(cmd *cobra.Command, h model.HoursProfile) {
	ids := make([]string, 0, len(h))
	for id := range h {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	tw := table.NewWriter()
	tw.SetOutputMirror(out(cmd))
	header := table.Row{"Week"}
	for _, id := range ids {
		header = append(header, id)
	}
	tw.AppendHeader(header)
	for w := 0; w < h.Weeks(); w++ {
		row := table.Row{w + 1}
		for _, id := range ids {
			var v float64
			if w < len(h[id]) {
				v = h[id][w]
			}
			row = append(row, v)
		}
		tw.AppendRow(row)
	}
	footer := table.Row{"total"}
	for _, id := range ids {
		footer = append(footer, model.HoursProfile{id: h[id]}.Total())
	}
	tw.AppendFooter(footer)
	tw.Render()
}
