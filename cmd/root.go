package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "edgeline",
	Short: "Automated sports-betting decision engine",
	Long: `Edgeline runs a continuous betting cycle: it pulls model win
probabilities and sportsbook odds, computes the expected-value edge on
every game, sizes stakes with fractional Kelly, risk-validates the
batch against the bankroll ledger, and submits approved bets in paper
or live mode.

A circuit breaker halts approvals when the bankroll drops below the
configured floor, and settled outcomes are reconciled back into the
ledger between cycles.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
