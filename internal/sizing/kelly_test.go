package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestSizer() *Sizer {
	return New(Config{
		MaxKellyFraction: 0.25,
		MinBet:           10,
		MaxBet:           100,
		Logger:           zap.NewNop(),
	})
}

func TestSizeStake_NonPositiveEdgeReturnsZero(t *testing.T) {
	s := newTestSizer()

	probs := []float64{0.01, 0.1, 0.25, 0.5, 0.75, 0.9, 0.99}
	edges := []float64{0, -0.01, -0.05, -0.5}

	for _, p := range probs {
		for _, e := range edges {
			assert.Zero(t, s.SizeStake(e, p, 1000),
				"edge=%f marketProb=%f must size to zero", e, p)
		}
	}
}

func TestSizeStake_ZeroMarketProbabilityReturnsZero(t *testing.T) {
	s := newTestSizer()
	assert.Zero(t, s.SizeStake(0.05, 0, 1000))
	assert.Zero(t, s.SizeStake(0.05, -0.1, 1000))
}

func TestSizeStake_PositiveEdgeWithinBounds(t *testing.T) {
	s := newTestSizer()

	probs := []float64{0.05, 0.2, 0.4, 0.5, 0.6, 0.8, 0.95}
	edges := []float64{0.001, 0.01, 0.03, 0.07, 0.2, 0.5}

	for _, p := range probs {
		for _, e := range edges {
			stake := s.SizeStake(e, p, 1000)
			assert.GreaterOrEqual(t, stake, 10.0, "edge=%f prob=%f", e, p)
			assert.LessOrEqual(t, stake, 100.0, "edge=%f prob=%f", e, p)
		}
	}
}

func TestSizeStake_KellyFormula(t *testing.T) {
	tests := []struct {
		name       string
		edge       float64
		marketProb float64
		bankroll   float64
		want       float64
	}{
		{
			// kelly = 0.07 / (1/0.51 - 1) = 0.0729, below the 0.25 cap,
			// so stake = 0.0729 * 1000 = 72.86.
			name:       "uncapped-kelly",
			edge:       0.07,
			marketProb: 0.51,
			bankroll:   1000,
			want:       72.857142857,
		},
		{
			// kelly = 0.2 / (1/0.8 - 1) = 0.8, capped to 0.25; raw 250
			// clamps to max bet 100.
			name:       "capped-then-clamped",
			edge:       0.2,
			marketProb: 0.8,
			bankroll:   1000,
			want:       100,
		},
		{
			// Tiny kelly on a tiny bankroll clamps up to min bet.
			name:       "clamped-to-min-bet",
			edge:       0.005,
			marketProb: 0.5,
			bankroll:   100,
			want:       10,
		},
	}

	s := newTestSizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.SizeStake(tt.edge, tt.marketProb, tt.bankroll), 1e-6)
		})
	}
}
