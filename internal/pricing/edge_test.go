package pricing

import (
	"testing"

	"github.com/edgeline/edgeline/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMoneylineToProbability(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		want  float64
	}{
		{name: "negative-favorite", price: -150, want: 0.6},
		{name: "positive-underdog", price: 150, want: 0.4},
		{name: "even-money-negative", price: -100, want: 0.5},
		{name: "even-money-positive", price: 100, want: 0.5},
		{name: "heavy-favorite", price: -400, want: 0.8},
		{name: "missing-price-falls-back", price: 0, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, types.MoneylineToProbability(tt.price), 1e-9)
		})
	}
}

func TestComputeEdges_BestBookSelection(t *testing.T) {
	calc := New(zap.NewNop())

	belief := &types.Belief{
		EventID: "game-1",
		OutcomeProbabilities: map[string]float64{
			types.OutcomeHome: 0.58,
			types.OutcomeAway: 0.42,
		},
		Confidence: 0.75,
	}

	// Two books quote home: -110 implies ~0.5238, -104 implies ~0.5098.
	// The -104 quote yields the larger edge and must win.
	quotes := []types.MarketQuote{
		{EventID: "game-1", Outcome: types.OutcomeHome, BookID: "draftkings", Price: -110},
		{EventID: "game-1", Outcome: types.OutcomeHome, BookID: "pinnacle", Price: -104},
		{EventID: "game-1", Outcome: types.OutcomeAway, BookID: "draftkings", Price: +120},
	}

	results := calc.ComputeEdges(belief, quotes)
	require.Len(t, results, 2)

	home := results[types.OutcomeHome]
	assert.Equal(t, "pinnacle", home.BestBook)
	assert.False(t, home.Fallback)
	assert.InDelta(t, 0.58-104.0/204.0, home.Edge, 1e-9)

	away := results[types.OutcomeAway]
	assert.Equal(t, "draftkings", away.BestBook)
	assert.InDelta(t, 0.42-100.0/220.0, away.Edge, 1e-9)
}

func TestComputeEdges_NoQuotesUsesFallback(t *testing.T) {
	calc := New(zap.NewNop())

	belief := &types.Belief{
		EventID: "game-2",
		OutcomeProbabilities: map[string]float64{
			types.OutcomeHome: 0.55,
			types.OutcomeAway: 0.45,
		},
	}

	results := calc.ComputeEdges(belief, nil)
	require.Len(t, results, 2)

	home := results[types.OutcomeHome]
	assert.True(t, home.Fallback)
	assert.Equal(t, "", home.BestBook)
	assert.InDelta(t, 0.05, home.Edge, 1e-9)
	assert.InDelta(t, 0.5, home.MarketProbability, 1e-9)

	away := results[types.OutcomeAway]
	assert.True(t, away.Fallback)
	assert.InDelta(t, -0.05, away.Edge, 1e-9)
}

func TestComputeEdges_QuotesForOtherOutcomesIgnored(t *testing.T) {
	calc := New(zap.NewNop())

	belief := &types.Belief{
		EventID:              "game-3",
		OutcomeProbabilities: map[string]float64{types.OutcomeHome: 0.5},
	}

	quotes := []types.MarketQuote{
		{EventID: "game-3", Outcome: types.OutcomeAway, BookID: "pinnacle", Price: -200},
	}

	results := calc.ComputeEdges(belief, quotes)
	require.Len(t, results, 1)
	assert.True(t, results[types.OutcomeHome].Fallback)
}

func TestComputeEdges_NegativeEdgeQuoteStillBeatsFallbackFlag(t *testing.T) {
	calc := New(zap.NewNop())

	belief := &types.Belief{
		EventID:              "game-4",
		OutcomeProbabilities: map[string]float64{types.OutcomeHome: 0.40},
	}

	// Real quote with negative edge must still be preferred over the
	// synthetic fallback: flagging is about data presence, not sign.
	quotes := []types.MarketQuote{
		{EventID: "game-4", Outcome: types.OutcomeHome, BookID: "pinnacle", Price: -150},
	}

	results := calc.ComputeEdges(belief, quotes)
	home := results[types.OutcomeHome]
	assert.False(t, home.Fallback)
	assert.Equal(t, "pinnacle", home.BestBook)
	assert.InDelta(t, 0.40-0.6, home.Edge, 1e-9)
}
