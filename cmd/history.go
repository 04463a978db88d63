package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kilianp07/crunch/app"
	"github.com/kilianp07/crunch/core/forecast/history"
	"github.com/kilianp07/crunch/core/model"
	"github.com/kilianp07/crunch/pkg/export"
)

var (
	historySchedule string
	historyLimit    int
	historySince    time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded sweeps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := history.Query{Schedule: historySchedule, Limit: historyLimit}
		if historySince > 0 {
			q.Since = time.Now().Add(-historySince)
		}
		return withService(func(ctx context.Context, svc *app.Service) error {
			runs, err := svc.History(ctx, q)
			if err != nil {
				return err
			}
			switch output {
			case outputJSON:
				for i := range runs {
					runs[i].Curve = nil
				}
				return export.WriteJSON(out(cmd), runs)
			case outputCSV:
				return unsupportedOutput("history")
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(out(cmd))
			tw.AppendHeader(table.Row{"Run", "Time", "Schedule", "Mode", "Baseline", "P50 optimum", "P90 optimum"})
			for _, r := range runs {
				tw.AppendRow(table.Row{
					r.ID, r.Time.Local().Format(time.DateTime), r.Schedule, r.Mode, r.BaseWeeks,
					fmt.Sprintf("%d wk %s", r.Optimal[model.P50], money(r.OptimalEAC[model.P50])),
					fmt.Sprintf("%d wk %s", r.Optimal[model.P90], money(r.OptimalEAC[model.P90])),
				})
			}
			tw.Render()
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historySchedule, "schedule", "s", "", "only runs of this schedule")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of most recent runs (0 for all)")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only runs newer than this age, e.g. 72h")
	rootCmd.AddCommand(historyCmd)
}
