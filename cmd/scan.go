package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mselser95/kalshi-edge/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single full market scan",
	Long: `Runs the full scan pipeline once and exits: fetch open markets,
screen candidates, research estimates price-blind, evaluate edges and
store recommendations. Use --premium to research with the premium model.`,
	RunE: runScan,
}

//nolint:gochecknoglobals // Cobra boilerplate
var scanPremium bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&scanPremium, "premium", false, "Research with the premium model")
}

func runScan(cmd *cobra.Command, args []string) error {
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

	summary, err := pipeline.RunFullScan(context.Background(), scanPremium)
	if err != nil {
		return fmt.Errorf("run scan: %w", err)
	}

	fmt.Printf("\n=== Scan Summary ===\n\n")
	fmt.Printf("Scan ID:         %s\n", summary.ScanID)
	fmt.Printf("Markets found:   %d\n", summary.MarketsFound)
	fmt.Printf("Screened out:    %d\n", summary.ScreenedOut)
	fmt.Printf("Cache hits:      %d\n", summary.CacheHits)
	fmt.Printf("Estimated:       %d\n", summary.Estimated)
	fmt.Printf("Recommended:     %d\n", summary.Recommended)
	fmt.Printf("Trades placed:   %d\n", summary.TradesPlaced)
	fmt.Printf("Errors:          %d\n", summary.Errors)
	fmt.Printf("Research cost:   $%.2f\n", summary.CostUSD)
	fmt.Printf("Duration:        %s\n", summary.Duration.Round(time.Second))

	return nil
}
