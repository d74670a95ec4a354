package sizing

import "go.uber.org/zap"

// Config holds the stake sizing parameters.
type Config struct {
	MaxKellyFraction float64
	MinBet           float64
	MaxBet           float64
	Logger           *zap.Logger
}

// Sizer converts an edge and a market price into a bounded stake using
// a fractional Kelly rule. The sizer never rejects: a non-positive
// edge sizes to zero and the pipeline handles the rejection.
type Sizer struct {
	config Config
	logger *zap.Logger
}

// New creates a stake sizer.
func New(cfg Config) *Sizer {
	return &Sizer{config: cfg, logger: cfg.Logger}
}

// SizeStake computes the stake for a given edge and market-implied
// probability against the current bankroll.
//
// kelly = max(0, edge / (1/marketProb - 1)) for marketProb > 0, else 0.
// The fraction actually used is capped at MaxKellyFraction, and the
// resulting stake is clamped to [MinBet, MaxBet].
func (s *Sizer) SizeStake(edge, marketProb, bankroll float64) float64 {
	if edge <= 0 || marketProb <= 0 {
		return 0
	}

	kelly := edge / (1/marketProb - 1)
	if kelly < 0 {
		kelly = 0
	}

	fraction := kelly
	if fraction > s.config.MaxKellyFraction {
		fraction = s.config.MaxKellyFraction
	}

	stake := clamp(fraction*bankroll, s.config.MinBet, s.config.MaxBet)

	KellyFractionUsed.Observe(fraction)
	StakeSizedUSD.Observe(stake)

	s.logger.Debug("stake-sized",
		zap.Float64("edge", edge),
		zap.Float64("market-probability", marketProb),
		zap.Float64("kelly", kelly),
		zap.Float64("fraction-used", fraction),
		zap.Float64("stake", stake))

	return stake
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
