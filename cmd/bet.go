package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mselser95/kalshi-edge/internal/calc"
	"github.com/mselser95/kalshi-edge/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var betCmd = &cobra.Command{
	Use:   "bet",
	Short: "Place a manual limit order on a market",
	Long: `Places a buy limit order at the market's current price for the chosen
side, sized by a dollar amount. Shows the order before placing it.

Example:
  kalshi-edge bet --ticker KXHIGHNY-26AUG24 --side yes --amount 25`,
	RunE: runBet,
}

//nolint:gochecknoglobals // Cobra boilerplate
var (
	betTicker string
	betSide   string
	betAmount float64
	betDryRun bool
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(betCmd)

	betCmd.Flags().StringVar(&betTicker, "ticker", "", "Market ticker (required)")
	betCmd.Flags().StringVar(&betSide, "side", "", "Side to buy: yes or no (required)")
	betCmd.Flags().Float64Var(&betAmount, "amount", 0, "Dollar amount to spend (required)")
	betCmd.Flags().BoolVar(&betDryRun, "dry-run", false, "Show the order without placing it")

	_ = betCmd.MarkFlagRequired("ticker")
	_ = betCmd.MarkFlagRequired("side")
	_ = betCmd.MarkFlagRequired("amount")
}

func runBet(cmd *cobra.Command, args []string) error {
	side := strings.ToLower(betSide)
	if side != "yes" && side != "no" {
		return fmt.Errorf("side must be yes or no, got %q", betSide)
	}
	if betAmount <= 0 {
		return fmt.Errorf("amount must be positive, got %.2f", betAmount)
	}

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

	market, err := venue.GetMarket(ctx, betTicker)
	if err != nil {
		return fmt.Errorf("get market: %w", err)
	}

	dir := types.DirectionYes
	entry := market.PriceYes
	if side == "no" {
		dir = types.DirectionNo
		entry = 1 - market.PriceYes
	}

	entryCents := calc.EntryCents(entry)
	contracts := calc.Contracts(betAmount, market.PriceYes, dir)
	if contracts < 1 {
		return fmt.Errorf("$%.2f buys no contracts at %d cents", betAmount, entryCents)
	}

	cost := float64(contracts*entryCents) / 100
	potentialWin := float64(contracts*(100-entryCents)) / 100

	fmt.Printf("=== Order Preview ===\n\n")
	fmt.Printf("Market: %s\n", market.Question)
	fmt.Printf("Ticker: %s\n", market.Ticker)
	fmt.Printf("Side: %s @ %d cents\n", strings.ToUpper(side), entryCents)
	fmt.Printf("Contracts: %d\n", contracts)
	fmt.Printf("Cost: $%.2f\n", cost)
	fmt.Printf("Potential win: $%.2f\n", potentialWin)

	if betDryRun {
		fmt.Printf("\nDry run, no order placed\n")
		return nil
	}

	// PlaceOrder prices in YES cents regardless of side.
	yesCents := calc.EntryCents(market.PriceYes)
	order, err := venue.PlaceOrder(ctx, market.Ticker, side, contracts, yesCents)
	if err != nil {
		return fmt.Errorf("place order: %w", err)
	}

	fmt.Printf("\nOrder placed!\n")
	fmt.Printf("  ID: %s\n", order.OrderID)
	fmt.Printf("  Status: %s\n", order.Status)

	return nil
}
