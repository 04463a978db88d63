package cmd

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kilianp07/crunch/app"
	"github.com/kilianp07/crunch/core/model"
	"github.com/kilianp07/crunch/core/project"
	"github.com/kilianp07/crunch/pkg/export"
)

var minWeeksCmd = &cobra.Command{
	Use:     "minweeks <project-file>",
	Aliases: []string{"limits"},
	Short:   "Report the shortest reachable duration under every overtime mode",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sched, err := project.Load(args[0])
		if err != nil {
			return err
		}
		return withService(func(_ context.Context, svc *app.Service) error {
			l, err := svc.Limits(sched)
			if err != nil {
				return err
			}
			switch output {
			case outputJSON:
				return export.WriteJSON(out(cmd), l)
			case outputCSV:
				return unsupportedOutput("limits")
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(out(cmd))
			tw.SetTitle(l.Schedule)
			tw.AppendHeader(table.Row{"Overtime", "Min weeks", "Saved weeks"})
			for _, m := range model.OvertimeModes() {
				tw.AppendRow(table.Row{m, l.MinWeeks[m], l.BaseWeeks - l.MinWeeks[m]})
			}
			tw.AppendFooter(table.Row{"baseline", l.BaseWeeks, ""})
			tw.Render()
			if l.Cyclic {
				cmd.PrintErrln("warning: the task graph contains a dependency cycle")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(minWeeksCmd)
}
