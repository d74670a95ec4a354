package circuitbreaker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSource struct{ balance atomic.Value }

func newStubSource(balance float64) *stubSource {
	s := &stubSource{}
	s.balance.Store(balance)
	return s
}

func (s *stubSource) Balance() float64 { return s.balance.Load().(float64) }

func (s *stubSource) set(balance float64) { s.balance.Store(balance) }

func newTestBreaker(t *testing.T, source BalanceSource) *BankrollCircuitBreaker {
	t.Helper()

	b, err := New(&Config{
		CheckInterval:   time.Minute,
		StakeMultiplier: 2.0,
		Floor:           100,
		HysteresisRatio: 1.2,
		Source:          source,
		Logger:          zap.NewNop(),
	})
	require.NoError(t, err)

	return b
}

func TestNew_ValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"nil source", func(c *Config) { c.Source = nil }},
		{"nil logger", func(c *Config) { c.Logger = nil }},
		{"zero interval", func(c *Config) { c.CheckInterval = 0 }},
		{"zero multiplier", func(c *Config) { c.StakeMultiplier = 0 }},
		{"zero floor", func(c *Config) { c.Floor = 0 }},
		{"hysteresis below one", func(c *Config) { c.HysteresisRatio = 0.9 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				CheckInterval:   time.Minute,
				StakeMultiplier: 2.0,
				Floor:           100,
				HysteresisRatio: 1.2,
				Source:          newStubSource(1000),
				Logger:          zap.NewNop(),
			}
			tt.mutate(cfg)

			_, err := New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestCheckBalance_HaltsBelowFloor(t *testing.T) {
	source := newStubSource(1000)
	b := newTestBreaker(t, source)

	b.CheckBalance()
	assert.False(t, b.Halted())

	source.set(50)
	b.CheckBalance()
	assert.True(t, b.Halted())
}

func TestCheckBalance_HysteresisPreventsFlapping(t *testing.T) {
	source := newStubSource(50)
	b := newTestBreaker(t, source)

	b.CheckBalance()
	require.True(t, b.Halted())

	// Floor is 100, clear threshold is 120. Recovering to just above
	// the floor is not enough.
	source.set(105)
	b.CheckBalance()
	assert.True(t, b.Halted())

	source.set(125)
	b.CheckBalance()
	assert.False(t, b.Halted())
}

func TestRecordStake_RaisesThreshold(t *testing.T) {
	source := newStubSource(1000)
	b := newTestBreaker(t, source)

	// Average stake 90 with multiplier 2 lifts the halt threshold to
	// 180, above the 100 floor.
	b.RecordStake(80)
	b.RecordStake(100)

	status := b.GetStatus()
	assert.InDelta(t, 180.0, status.HaltThreshold, 1e-9)
	assert.InDelta(t, 216.0, status.ClearThreshold, 1e-9)

	source.set(150)
	b.CheckBalance()
	assert.True(t, b.Halted())
}

func TestRecordStake_IgnoresNonPositive(t *testing.T) {
	b := newTestBreaker(t, newStubSource(1000))

	b.RecordStake(0)
	b.RecordStake(-5)

	assert.Zero(t, b.GetStatus().RecentStakeCount)
}

func TestTrip_HaltsUntilCleared(t *testing.T) {
	source := newStubSource(1000)
	b := newTestBreaker(t, source)

	b.Trip("ledger invariant violation")
	assert.True(t, b.Halted())

	// A healthy balance does not clear a manual trip.
	b.CheckBalance()
	assert.True(t, b.Halted())

	status := b.GetStatus()
	assert.True(t, status.Tripped)
	assert.Equal(t, "ledger invariant violation", status.TripReason)

	b.Clear()
	assert.False(t, b.Halted())
	assert.False(t, b.GetStatus().Tripped)
}

func TestClear_StaysHaltedWhenBalanceStillLow(t *testing.T) {
	source := newStubSource(50)
	b := newTestBreaker(t, source)

	b.Trip("manual")
	b.Clear()

	// Clearing re-evaluates the balance; 50 is below the floor. The
	// halt is now balance-driven, not trip-driven.
	assert.True(t, b.Halted())
	assert.False(t, b.GetStatus().Tripped)
}

func TestGetStatus_ReportsWindow(t *testing.T) {
	b := newTestBreaker(t, newStubSource(1000))

	for i := 0; i < 25; i++ {
		b.RecordStake(10)
	}

	status := b.GetStatus()
	assert.Equal(t, 20, status.RecentStakeCount)
	assert.InDelta(t, 10.0, status.AvgStakeSize, 1e-9)
}
