package risk

import (
	"testing"
	"time"

	"github.com/edgeline/edgeline/internal/ledger"
	"github.com/edgeline/edgeline/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubHalter struct{ halted bool }

func (s *stubHalter) Halted() bool { return s.halted }

func testConfig() Config {
	return Config{
		MinEVThreshold:  2.0,
		MinBet:          10,
		MaxBet:          100,
		DailyBetLimit:   5,
		DailyLossLimit:  100,
		PortfolioCapPct: 0.10,
		Logger:          zap.NewNop(),
	}
}

func testSnapshot(balance float64, daily ledger.DailyAggregate) ledger.Snapshot {
	return ledger.Snapshot{Balance: balance, Daily: daily, TakenAt: time.Now()}
}

func proposedDecision(id string, edgePct, stake float64) *types.Decision {
	d := types.NewDecision("evt-"+id, types.OutcomeHome)
	d.EdgePct = edgePct
	d.Stake = stake
	return d
}

func TestValidateBatch_ApprovesWithinLimits(t *testing.T) {
	v := New(testConfig(), nil)

	decisions := []*types.Decision{
		proposedDecision("a", 5.0, 50),
		proposedDecision("b", 3.0, 30),
	}

	v.ValidateBatch(decisions, testSnapshot(1000, ledger.DailyAggregate{}))

	for _, d := range decisions {
		assert.Equal(t, types.StatusApproved, d.Status, d.EventID)
	}
}

func TestValidateBatch_RejectsBelowEdgeThreshold(t *testing.T) {
	v := New(testConfig(), nil)

	decisions := []*types.Decision{proposedDecision("a", 1.5, 50)}

	v.ValidateBatch(decisions, testSnapshot(1000, ledger.DailyAggregate{}))

	require.True(t, decisions[0].Rejected())
	assert.Equal(t, RejectReasonEdgeThreshold, decisions[0].RejectionReason)
	assert.Zero(t, decisions[0].Stake)
}

func TestValidateBatch_ClampsStakeWithNote(t *testing.T) {
	v := New(testConfig(), nil)

	decisions := []*types.Decision{
		proposedDecision("over", 5.0, 150),
		proposedDecision("under", 5.0, 4),
	}

	v.ValidateBatch(decisions, testSnapshot(10000, ledger.DailyAggregate{}))

	require.Equal(t, types.StatusApproved, decisions[0].Status)
	assert.Equal(t, 100.0, decisions[0].Stake)
	assert.Contains(t, decisions[0].RiskNote, "bet limits")

	require.Equal(t, types.StatusApproved, decisions[1].Status)
	assert.Equal(t, 10.0, decisions[1].Stake)
}

func TestValidateBatch_DailyBetLimitCountsBatchApprovals(t *testing.T) {
	v := New(testConfig(), nil)

	// Three placed today plus a batch of three: the first two fill the
	// limit of five, the third is rejected.
	decisions := []*types.Decision{
		proposedDecision("a", 5.0, 20),
		proposedDecision("b", 5.0, 20),
		proposedDecision("c", 5.0, 20),
	}

	v.ValidateBatch(decisions, testSnapshot(1000, ledger.DailyAggregate{BetsPlaced: 3}))

	assert.Equal(t, types.StatusApproved, decisions[0].Status)
	assert.Equal(t, types.StatusApproved, decisions[1].Status)
	require.True(t, decisions[2].Rejected())
	assert.Equal(t, RejectReasonDailyBetLimit, decisions[2].RejectionReason)
}

func TestValidateBatch_RejectsAtDailyLossLimit(t *testing.T) {
	tests := []struct {
		name       string
		daily      ledger.DailyAggregate
		wantReject bool
	}{
		{
			name:       "losses-over-limit",
			daily:      ledger.DailyAggregate{AmountLost: 120},
			wantReject: true,
		},
		{
			// Wins do not offset the gross-loss budget
			name:       "losses-over-limit-despite-wins",
			daily:      ledger.DailyAggregate{AmountLost: 120, AmountWon: 50},
			wantReject: true,
		},
		{
			name:       "losses-at-limit",
			daily:      ledger.DailyAggregate{AmountLost: 100},
			wantReject: true,
		},
		{
			name:       "losses-under-limit",
			daily:      ledger.DailyAggregate{AmountLost: 99.99, AmountWon: 10},
			wantReject: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(testConfig(), nil)
			decisions := []*types.Decision{proposedDecision("a", 5.0, 50)}

			v.ValidateBatch(decisions, testSnapshot(1000, tt.daily))

			if tt.wantReject {
				require.True(t, decisions[0].Rejected())
				assert.Equal(t, RejectReasonDailyLossLimit, decisions[0].RejectionReason)
			} else {
				assert.Equal(t, types.StatusApproved, decisions[0].Status)
			}
		})
	}
}

func TestValidateBatch_ScalesToPortfolioCap(t *testing.T) {
	v := New(testConfig(), nil)

	// Cap is 10% of 1000 = 100; the batch proposes 160 in total.
	decisions := []*types.Decision{
		proposedDecision("a", 5.0, 100),
		proposedDecision("b", 5.0, 60),
	}

	v.ValidateBatch(decisions, testSnapshot(1000, ledger.DailyAggregate{}))

	total := decisions[0].Stake + decisions[1].Stake
	assert.InDelta(t, 100.0, total, 1e-9)
	assert.InDelta(t, 62.5, decisions[0].Stake, 1e-9)
	assert.InDelta(t, 37.5, decisions[1].Stake, 1e-9)
	assert.Contains(t, decisions[0].RiskNote, "portfolio cap")
}

func TestValidateBatch_HaltedRejectsEverything(t *testing.T) {
	v := New(testConfig(), &stubHalter{halted: true})

	decisions := []*types.Decision{
		proposedDecision("a", 5.0, 50),
		proposedDecision("b", 5.0, 50),
	}

	v.ValidateBatch(decisions, testSnapshot(1000, ledger.DailyAggregate{}))

	for _, d := range decisions {
		require.True(t, d.Rejected())
		assert.Equal(t, RejectReasonApprovalsHalted, d.RejectionReason)
	}
}

func TestValidateBatch_AlreadyRejectedPassesThrough(t *testing.T) {
	v := New(testConfig(), nil)

	d := proposedDecision("a", 5.0, 50)
	d.Reject("edge below threshold")

	v.ValidateBatch([]*types.Decision{d}, testSnapshot(1000, ledger.DailyAggregate{}))

	assert.Equal(t, "edge below threshold", d.RejectionReason)
}
