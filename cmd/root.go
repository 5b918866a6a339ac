package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/npiscenarios/app"
	"github.com/kilianp07/npiscenarios/config"
	"github.com/kilianp07/npiscenarios/infra/logger"
)

var (
	cfgPath string
	format  string
)

var rootCmd = &cobra.Command{
	Use:               "npiscenarios",
	Short:             "Evaluate intervention scenarios over an epidemic model",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: checkFormat,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "table", "output format: table, csv or json")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// withService loads the configuration, builds the service and closes it
// once fn returns.
func withService(fn func(ctx context.Context, cmd *cobra.Command, svc *app.Service) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
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
		return fn(ctx, cmd, svc)
	}
}

func checkFormat(*cobra.Command, []string) error {
	switch format {
	case "table", "csv", "json":
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
