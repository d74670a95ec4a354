package ledger

import (
	"testing"
	"time"

	"github.com/edgeline/edgeline/pkg/types"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLedger_OpeningBalance(t *testing.T) {
	l := New(1000, zap.NewNop())
	assert.Equal(t, 1000.0, l.Balance())

	snap := l.Snapshot()
	assert.Equal(t, 1000.0, snap.Balance)
	assert.Zero(t, snap.Daily.BetsPlaced)
}

func TestLedger_RecordStake(t *testing.T) {
	l := New(1000, zap.NewNop())

	l.RecordStake(50)
	l.RecordStake(25)

	snap := l.Snapshot()
	assert.Equal(t, 2, snap.Daily.BetsPlaced)
	assert.Equal(t, 75.0, snap.Daily.TotalStaked)
	// Stakes do not move the balance; only settlements do.
	assert.Equal(t, 1000.0, snap.Balance)
}

func TestLedger_ApplySettlement(t *testing.T) {
	l := New(1000, zap.NewNop())

	// Win: staked 50 at a payout of 95 -> net +45.
	l.ApplySettlement(types.Settlement{
		DecisionID: "d1",
		Stake:      50,
		Payout:     95,
		Won:        true,
	})
	assert.InDelta(t, 1045.0, l.Balance(), 1e-9)

	// Loss: staked 30 -> net -30.
	l.ApplySettlement(types.Settlement{
		DecisionID: "d2",
		Stake:      30,
		Won:        false,
	})
	assert.InDelta(t, 1015.0, l.Balance(), 1e-9)

	snap := l.Snapshot()
	assert.InDelta(t, 45.0, snap.Daily.AmountWon, 1e-9)
	assert.InDelta(t, 30.0, snap.Daily.AmountLost, 1e-9)
	assert.InDelta(t, 15.0, snap.Daily.NetProfit(), 1e-9)
}

func TestLedger_DailyRollover(t *testing.T) {
	l := New(1000, zap.NewNop())

	current := time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }
	l.daily.Date = current.Format("2006-01-02")

	l.RecordStake(40)
	l.ApplySettlement(types.Settlement{DecisionID: "d1", Stake: 40, Won: false})

	snap := l.Snapshot()
	assert.Equal(t, 1, snap.Daily.BetsPlaced)
	assert.Equal(t, 40.0, snap.Daily.AmountLost)

	// Cross midnight: aggregates reset, balance carries over.
	current = current.Add(4 * time.Hour)

	snap = l.Snapshot()
	assert.Zero(t, snap.Daily.BetsPlaced)
	assert.Zero(t, snap.Daily.AmountLost)
	assert.Equal(t, "2026-03-15", snap.Daily.Date)
	assert.InDelta(t, 960.0, snap.Balance, 1e-9)
}

func TestLedger_SnapshotIsACopy(t *testing.T) {
	l := New(1000, zap.NewNop())

	snap := l.Snapshot()
	l.ApplySettlement(types.Settlement{DecisionID: "d1", Stake: 100, Won: false})

	// The snapshot taken before the settlement is unchanged.
	assert.Equal(t, 1000.0, snap.Balance)
	assert.Zero(t, snap.Daily.AmountLost)
	assert.Equal(t, 900.0, l.Balance())
}
