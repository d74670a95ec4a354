package cmd

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgeline/edgeline/internal/ledger"
	"github.com/edgeline/edgeline/internal/pipeline"
	"github.com/edgeline/edgeline/internal/pricing"
	"github.com/edgeline/edgeline/internal/risk"
	"github.com/edgeline/edgeline/internal/sizing"
	"github.com/edgeline/edgeline/pkg/config"
	"github.com/edgeline/edgeline/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [slate.json]",
	Short: "Evaluate a slate fixture without submitting anything",
	Long: `Runs the decision pipeline and risk validation over a JSON
slate file and prints the resulting decisions. Nothing is submitted
and the ledger is not persisted.

The slate file is an array of events, each with a model belief and
market quotes:

  [{"id": "evt-1", "home_team": "Lakers", "away_team": "Celtics",
    "belief": {"event_id": "evt-1",
               "outcome_probabilities": {"home": 0.58, "away": 0.42},
               "confidence": 0.8},
    "quotes": [{"event_id": "evt-1", "outcome": "home",
                "book_id": "pinnacle", "price": -104}]}]`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().Float64("bankroll", 0, "Override BANKROLL for this evaluation")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if override, _ := cmd.Flags().GetFloat64("bankroll"); override > 0 {
		cfg.Bankroll = override
	}

	events, err := loadSlate(args[0])
	if err != nil {
		return err
	}

	decisions := evaluateSlate(cfg, events)

	out, err := json.MarshalIndent(decisions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode decisions: %w", err)
	}
	fmt.Println(string(out))

	return nil
}

func loadSlate(path string) ([]*types.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read slate: %w", err)
	}

	var events []*types.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse slate: %w", err)
	}
	return events, nil
}

// evaluateSlate runs one reasoning plus risk-validation pass over the
// events against a fresh ledger, the same path the live cycle takes.
func evaluateSlate(cfg *config.Config, events []*types.Event) []*types.Decision {
	logger := zap.NewNop()

	calc := pricing.New(logger)
	sizer := sizing.New(sizing.Config{
		MaxKellyFraction: cfg.MaxKellyFraction,
		MinBet:           cfg.MinBet,
		MaxBet:           cfg.MaxBet,
		Logger:           logger,
	})
	pipe := pipeline.New(pipeline.Config{
		MinEVThreshold: cfg.MinEVThreshold,
		Logger:         logger,
	}, calc, sizer)
	validator := risk.New(risk.Config{
		MinEVThreshold:  cfg.MinEVThreshold,
		MinBet:          cfg.MinBet,
		MaxBet:          cfg.MaxBet,
		DailyBetLimit:   cfg.DailyBetLimit,
		DailyLossLimit:  cfg.DailyLossLimit,
		PortfolioCapPct: cfg.PortfolioCapPct,
		Logger:          logger,
	}, nil)
	bankroll := ledger.New(cfg.Bankroll, logger)

	decisions := make([]*types.Decision, 0, len(events))
	for _, e := range events {
		decisions = append(decisions, pipe.Evaluate(e, bankroll.Balance()))
	}

	return validator.ValidateBatch(decisions, bankroll.Snapshot())
}
