package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mselser95/kalshi-edge/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var resolutionsCmd = &cobra.Command{
	Use:   "resolutions",
	Short: "Run a single resolution check",
	Long: `Checks every tracked market past its close time against the venue,
records outcomes for resolved markets, settles their open trades and
writes performance rows.`,
	RunE: runResolutions,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(resolutionsCmd)
}

func runResolutions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pipeline, cleanup, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	err = pipeline.RunResolutionCheck(context.Background())
	if err != nil {
		return fmt.Errorf("run resolution check: %w", err)
	}

	fmt.Printf("Resolution check complete\n")

	return nil
}
