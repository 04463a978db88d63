package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kilianp07/crunch/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the forecast HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *app.Service) error {
			return svc.Serve(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
