package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "futuresbot",
	Short: "A single-symbol crypto futures trading bot",
	Long: `futuresbot watches one Kraken Futures contract, computes VWAP and a
fast and slow EMA on recent candles, and trades when the averages line up.

It provides tools for:
  - Running the bot in simulate or live mode
  - Replaying a CSV of candles against a paper exchange
  - Generating and validating configuration files
  - Querying the trade journal and rendering PnL reports`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
