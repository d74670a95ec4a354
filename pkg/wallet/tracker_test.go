package wallet

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()

	tracker, err := New(&Config{
		RPCEndpoint:  "https://polygon-rpc.com",
		Address:      common.HexToAddress("0x1234567890123456789012345678901234567890"),
		PollInterval: time.Minute,
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)

	return tracker
}

func TestNew(t *testing.T) {
	logger := zap.NewNop()
	address := common.HexToAddress("0x1234567890123456789012345678901234567890")

	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name: "valid-config",
			cfg: &Config{
				RPCEndpoint:  "https://polygon-rpc.com",
				Address:      address,
				PollInterval: time.Minute,
				Logger:       logger,
			},
		},
		{
			name:    "nil-config",
			cfg:     nil,
			wantErr: true,
		},
		{
			name: "nil-logger",
			cfg: &Config{
				RPCEndpoint:  "https://polygon-rpc.com",
				Address:      address,
				PollInterval: time.Minute,
			},
			wantErr: true,
		},
		{
			name: "empty-rpc-endpoint",
			cfg: &Config{
				Address:      address,
				PollInterval: time.Minute,
				Logger:       logger,
			},
			wantErr: true,
		},
		{
			name: "non-positive-poll-interval",
			cfg: &Config{
				RPCEndpoint:  "https://polygon-rpc.com",
				Address:      address,
				PollInterval: 0,
				Logger:       logger,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, tracker.client)
			assert.Equal(t, tt.cfg.Address, tracker.address)
			assert.Equal(t, tt.cfg.PollInterval, tracker.pollInterval)
		})
	}
}

func TestTracker_Run_ContextCancellation(t *testing.T) {
	tracker := newTestTracker(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- tracker.Run(ctx)
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after context cancellation")
	}
}

func TestTracker_BalanceFollowsObservedUSDC(t *testing.T) {
	tracker := newTestTracker(t)

	// Zero before any successful poll
	assert.Equal(t, 0.0, tracker.Balance())

	tracker.updateMetrics(&Balances{
		MATIC:         big.NewInt(5e18),
		USDC:          big.NewInt(250e6),
		USDCAllowance: big.NewInt(1000e6),
	}, nil)

	assert.Equal(t, 250.0, tracker.Balance())

	// A later poll replaces the cached balance
	tracker.updateMetrics(&Balances{
		MATIC:         big.NewInt(5e18),
		USDC:          big.NewInt(180e6),
		USDCAllowance: big.NewInt(1000e6),
	}, nil)

	assert.Equal(t, 180.0, tracker.Balance())
}

func TestTracker_UpdateMetricsAggregatesPositions(t *testing.T) {
	tracker := newTestTracker(t)

	balances := &Balances{
		MATIC:         big.NewInt(2e18),
		USDC:          big.NewInt(100e6),
		USDCAllowance: big.NewInt(500e6),
	}
	positions := []Position{
		{MarketSlug: "lakers-celtics-moneyline", Value: 110.00, InitialValue: 100.00, CashPnL: 10.00},
		{MarketSlug: "knicks-heat-moneyline", Value: 48.00, InitialValue: 50.00, CashPnL: -2.00},
	}

	tracker.updateMetrics(balances, positions)

	assert.Equal(t, 2.0, testutil.ToFloat64(MATICBalance))
	assert.Equal(t, 100.0, testutil.ToFloat64(USDCBalance))
	assert.Equal(t, 500.0, testutil.ToFloat64(USDCAllowance))
	assert.Equal(t, 2.0, testutil.ToFloat64(ActivePositions))
	assert.Equal(t, 158.0, testutil.ToFloat64(TotalPositionValue))
	assert.Equal(t, 150.0, testutil.ToFloat64(TotalPositionCost))
	assert.Equal(t, 8.0, testutil.ToFloat64(UnrealizedPnL))
	assert.InDelta(t, 5.333, testutil.ToFloat64(UnrealizedPnLPercent), 0.001)
	assert.Equal(t, 258.0, testutil.ToFloat64(PortfolioValue))
}

func TestTracker_UpdateMetricsZeroCostBook(t *testing.T) {
	tracker := newTestTracker(t)

	// A free position must not divide P&L percent by zero
	tracker.updateMetrics(&Balances{
		MATIC:         big.NewInt(0),
		USDC:          big.NewInt(0),
		USDCAllowance: big.NewInt(0),
	}, []Position{
		{Value: 10.00, InitialValue: 0.00, CashPnL: 10.00},
	})

	assert.Equal(t, 0.0, testutil.ToFloat64(UnrealizedPnLPercent))
}
