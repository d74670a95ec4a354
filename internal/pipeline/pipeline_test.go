package pipeline

import (
	"testing"
	"time"

	"github.com/edgeline/edgeline/internal/pricing"
	"github.com/edgeline/edgeline/internal/sizing"
	"github.com/edgeline/edgeline/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPipeline(t *testing.T, minEVThreshold float64) *Pipeline {
	t.Helper()

	logger := zap.NewNop()

	return New(
		Config{MinEVThreshold: minEVThreshold, Logger: logger},
		pricing.New(logger),
		sizing.New(sizing.Config{
			MaxKellyFraction: 0.25,
			MinBet:           10,
			MaxBet:           100,
			Logger:           logger,
		}),
	)
}

func testEvent(homeProb float64, quotes []types.MarketQuote) *types.Event {
	return &types.Event{
		ID:       "evt-lal-bos",
		HomeTeam: "Lakers",
		AwayTeam: "Celtics",
		Belief: &types.Belief{
			EventID: "evt-lal-bos",
			OutcomeProbabilities: map[string]float64{
				types.OutcomeHome: homeProb,
				types.OutcomeAway: 1 - homeProb,
			},
			Confidence:  0.8,
			GeneratedAt: time.Now(),
		},
		Quotes: quotes,
	}
}

func TestEvaluate_EdgeAboveThresholdProposesStake(t *testing.T) {
	p := newTestPipeline(t, 2.0)

	// -104 implies 104/204 ≈ 0.5098; model 0.58 gives a 7.0% edge.
	event := testEvent(0.58, []types.MarketQuote{
		{EventID: "evt-lal-bos", Outcome: types.OutcomeHome, BookID: "pinnacle", Price: -104},
	})

	d := p.Evaluate(event, 1000)

	require.Equal(t, types.StatusProposed, d.Status)
	assert.Equal(t, types.OutcomeHome, d.Outcome)
	assert.InDelta(t, 7.02, d.EdgePct, 0.05)
	assert.Equal(t, "pinnacle", d.SourceBook)
	assert.False(t, d.Fallback)
	assert.Greater(t, d.Stake, 0.0)
	assert.GreaterOrEqual(t, d.Stake, 10.0)
	assert.LessOrEqual(t, d.Stake, 100.0)
	assert.NotEmpty(t, d.Reasoning)
}

func TestEvaluate_EdgeBelowThresholdRejects(t *testing.T) {
	p := newTestPipeline(t, 2.0)

	// Model 0.515 against ~0.5098 implied is roughly a 0.5% edge.
	event := testEvent(0.515, []types.MarketQuote{
		{EventID: "evt-lal-bos", Outcome: types.OutcomeHome, BookID: "pinnacle", Price: -104},
	})

	d := p.Evaluate(event, 1000)

	require.True(t, d.Rejected())
	assert.Equal(t, RejectReasonEdgeBelowThreshold, d.RejectionReason)
	assert.Zero(t, d.Stake)
	assert.Contains(t, d.Reasoning, "threshold")
}

func TestEvaluate_PicksLargestAbsoluteEdge(t *testing.T) {
	p := newTestPipeline(t, 2.0)

	// Home edge is 0.58-0.5098 ≈ +0.070; away edge is 0.42-0.4902 ≈ -0.070.
	// An away quote at +150 implies 0.40, making the away edge +0.02,
	// so home's +0.070 still wins on absolute size.
	event := testEvent(0.58, []types.MarketQuote{
		{EventID: "evt-lal-bos", Outcome: types.OutcomeHome, BookID: "pinnacle", Price: -104},
		{EventID: "evt-lal-bos", Outcome: types.OutcomeAway, BookID: "draftkings", Price: 150},
	})

	d := p.Evaluate(event, 1000)

	assert.Equal(t, types.OutcomeHome, d.Outcome)
}

func TestEvaluate_TieBreaksOnCanonicalOrder(t *testing.T) {
	p := newTestPipeline(t, 2.0)

	// With no quotes both outcomes fall back to 0.5 implied, so the
	// edges are +0.05 and -0.05: equal in absolute size. Home wins the
	// tie by canonical order.
	event := testEvent(0.55, nil)

	d := p.Evaluate(event, 1000)

	assert.Equal(t, types.OutcomeHome, d.Outcome)
	assert.True(t, d.Fallback)
	assert.Empty(t, d.SourceBook)
}

func TestEvaluate_NegativeBestEdgeRejects(t *testing.T) {
	p := newTestPipeline(t, 2.0)

	// Model slightly favors home but the market is priced well past it,
	// so the largest absolute edge is negative and below threshold.
	event := testEvent(0.52, []types.MarketQuote{
		{EventID: "evt-lal-bos", Outcome: types.OutcomeHome, BookID: "pinnacle", Price: -250},
		{EventID: "evt-lal-bos", Outcome: types.OutcomeAway, BookID: "pinnacle", Price: 190},
	})

	d := p.Evaluate(event, 1000)

	require.True(t, d.Rejected())
	assert.Equal(t, RejectReasonEdgeBelowThreshold, d.RejectionReason)
	assert.Zero(t, d.Stake)
}

func TestEvaluate_MissingBeliefRejects(t *testing.T) {
	p := newTestPipeline(t, 2.0)

	event := &types.Event{ID: "evt-no-belief"}

	d := p.Evaluate(event, 1000)

	require.True(t, d.Rejected())
	assert.Equal(t, "no model belief available", d.RejectionReason)
}
