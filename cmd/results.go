package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show prediction performance and calibration",
	Long: `Summarizes resolved recommendations: hit rate, Brier score, realized
PnL and edge, plus a calibration table comparing predicted probabilities
to actual outcome frequencies per bucket.`,
	RunE: runResults,
}

//nolint:gochecknoglobals // Cobra boilerplate
var resultsBucketSize float64

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(resultsCmd)

	resultsCmd.Flags().Float64Var(&resultsBucketSize, "bucket-size", 0.1, "Calibration bucket width")
}

func runResults(cmd *cobra.Command, args []string) error {
	if resultsBucketSize <= 0 || resultsBucketSize > 1 {
		return fmt.Errorf("bucket size must be in (0, 1], got %g", resultsBucketSize)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := newStore(cfg, nil)
	if err != nil {
		return fmt.Errorf("connect storage: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	agg, err := store.PerformanceAggregate(ctx)
	if err != nil {
		return fmt.Errorf("load performance: %w", err)
	}

	fmt.Printf("=== Prediction Performance ===\n\n")

	if agg.TotalResolved == 0 {
		fmt.Printf("No resolved recommendations yet\n")
		return nil
	}

	fmt.Printf("Resolved markets: %d\n", agg.TotalResolved)
	fmt.Printf("Hit rate: %.1f%%\n", agg.HitRate*100)
	fmt.Printf("Avg Brier score: %.4f\n", agg.AvgBrier)
	fmt.Printf("Avg edge: %.1f%%\n", agg.AvgEdge*100)
	fmt.Printf("Total PnL: $%.2f\n", agg.TotalPnL)

	buckets, err := store.CalibrationBuckets(ctx, resultsBucketSize)
	if err != nil {
		return fmt.Errorf("load calibration: %w", err)
	}

	if len(buckets) == 0 {
		return nil
	}

	fmt.Printf("\n=== Calibration ===\n\n")
	fmt.Printf("%-14s %10s %10s %6s\n", "Bucket", "Predicted", "Actual", "N")
	for _, b := range buckets {
		fmt.Printf("[%.2f, %.2f)  %9.1f%% %9.1f%% %6d\n",
			b.BucketMin, b.BucketMax, b.PredictedAvg*100, b.ActualFrequency*100, b.Count)
	}

	return nil
}
