package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Check your venue account balance",
	Long: `Display the available cash balance of the configured venue account,
plus a summary of open market exposure.`,
	RunE: runBalance,
}

//nolint:gochecknoglobals // Cobra boilerplate
var balanceShowPositions bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balanceCmd)

	balanceCmd.Flags().BoolVarP(&balanceShowPositions, "positions", "p", true, "Show open position exposure")
}

func runBalance(cmd *cobra.Command, args []string) error {
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

	balance, err := venue.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}

	fmt.Printf("=== Account Balance ===\n\n")
	fmt.Printf("Available cash: $%.2f\n", balance)

	if balanceShowPositions {
		positions, err := venue.FetchPositions(ctx)
		if err != nil {
			return fmt.Errorf("fetch positions: %w", err)
		}

		exposure := 0.0
		for _, pos := range positions {
			exposure += float64(pos.MarketExposure) / 100
		}

		fmt.Printf("Open positions: %d\n", len(positions))
		fmt.Printf("Market exposure: $%.2f\n", exposure)
	}

	return nil
}
