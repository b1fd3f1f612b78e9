package cmd

import (
	"fmt"

	"github.com/mselser95/kalshi-edge/internal/app"
	"github.com/mselser95/kalshi-edge/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the edge-detection service",
	Long: `Starts the Kalshi edge-detection service, which will:
1. Scan open markets on the configured schedule
2. Screen and research candidates with the price-blind AI pipeline
3. Store recommendations and place paper/live trades
4. Reconcile fills, check resolutions and send daily digests

The HTTP surface exposes /scan, /config, /health and /metrics.`,
	RunE: runService,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runService(cmd *cobra.Command, args []string) error {
	// Load config
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create logger
	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	// Run app
	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
