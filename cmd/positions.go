package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List open venue positions",
	Long: `Display the open contract positions held at the venue. Positive
counts are YES contracts, negative counts are NO contracts.`,
	RunE: runPositions,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(positionsCmd)
}

func runPositions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	venue, err := newVenueClient(cfg, nil)
	if err != nil {
		return fmt.Errorf("create venue client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	positions, err := venue.FetchPositions(ctx)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}

	fmt.Printf("=== Open Positions ===\n\n")

	if len(positions) == 0 {
		fmt.Printf("No open positions\n")
		return nil
	}

	totalExposure := 0.0
	for _, pos := range positions {
		side := "YES"
		count := pos.Position
		if count < 0 {
			side = "NO"
			count = -count
		}

		fmt.Printf("%s\n", pos.Ticker)
		fmt.Printf("  Side: %s\n", side)
		fmt.Printf("  Contracts: %d\n", count)
		fmt.Printf("  Exposure: $%.2f\n\n", float64(pos.MarketExposure)/100)

		totalExposure += float64(pos.MarketExposure) / 100
	}

	fmt.Printf("Total exposure: $%.2f\n", totalExposure)

	return nil
}
