package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "kalshi-edge",
	Short: "AI edge detection for Kalshi prediction markets",
	Long: `Kalshi edge-detection service that scans binary prediction markets,
asks a price-blind AI researcher for independent probability estimates,
and surfaces markets where the estimate diverges from the market price.

The service runs scheduled scans, tracks recommendations and trades in
Postgres, reconciles fills with the venue, and sends email/Slack digests.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
