package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/crunch/app"
	"github.com/kilianp07/crunch/config"
	"github.com/kilianp07/crunch/infra/logger"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputCSV   = "csv"
)

var (
	cfgPath string
	output  string
)

var rootCmd = &cobra.Command{
	Use:           "crunch",
	Short:         "Forecast the cost of compressing or extending a construction schedule",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch output {
		case outputTable, outputJSON, outputCSV:
			return nil
		default:
			return fmt.Errorf("unknown output format %q (want table, json or csv)", output)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or csv")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// withService loads the configuration, builds the service and runs fn
// with a context cancelled on SIGINT or SIGTERM.
func withService(fn func(ctx context.Context, svc *app.Service) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return fn(ctx, svc)
}

// out returns the command's standard output.
func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }

func unsupportedOutput(what string) error {
	return fmt.Errorf("%s cannot be written as %s", what, strings.ToUpper(output))
}
