package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Tracker periodically fetches venue wallet data and updates
// Prometheus metrics. It also caches the latest USDC balance so the
// bankroll circuit breaker can watch the on-chain balance in live
// mode.
type Tracker struct {
	client       *Client
	address      common.Address
	pollInterval time.Duration
	logger       *zap.Logger

	mu       sync.RWMutex
	lastUSDC float64
}

// Config holds tracker configuration.
type Config struct {
	RPCEndpoint  string
	DataAPIURL   string // empty uses the venue default
	Address      common.Address
	PollInterval time.Duration
	Logger       *zap.Logger
}

// New creates a new wallet tracker.
func New(cfg *Config) (t *Tracker, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.RPCEndpoint == "" {
		return nil, errors.New("RPC endpoint cannot be empty")
	}

	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	client, err := NewClient(cfg.RPCEndpoint, cfg.DataAPIURL, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	tracker := &Tracker{
		client:       client,
		address:      cfg.Address,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
	}

	return tracker, nil
}

// Balance returns the last observed USDC balance in whole dollars.
// Zero until the first successful poll.
func (t *Tracker) Balance() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastUSDC
}

// Run starts the tracker polling loop (blocking).
func (t *Tracker) Run(ctx context.Context) (err error) {
	t.logger.Info("wallet-tracker-starting",
		zap.Duration("poll-interval", t.pollInterval),
		zap.String("address", t.address.Hex()))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	// Initial poll
	pollErr := t.poll(ctx)
	if pollErr != nil {
		t.logger.Error("initial-poll-failed", zap.Error(pollErr))
		UpdateErrorsTotal.Inc()
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("wallet-tracker-stopping")
			return ctx.Err()
		case <-ticker.C:
			pollErr = t.poll(ctx)
			if pollErr != nil {
				t.logger.Error("poll-failed", zap.Error(pollErr))
				UpdateErrorsTotal.Inc()
			}
		}
	}
}

const fetchTimeout = 15 * time.Second

// poll performs a single polling cycle.
func (t *Tracker) poll(ctx context.Context) error {
	start := time.Now()
	defer func() {
		UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	pollCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	balances, err := t.client.GetBalances(pollCtx, t.address)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	positions, err := t.client.GetPositions(pollCtx, t.address.Hex())
	if err != nil {
		return fmt.Errorf("get positions: %w", err)
	}

	t.updateMetrics(balances, positions)
	LastUpdateTimestamp.Set(float64(time.Now().Unix()))

	t.logger.Debug("poll-complete",
		zap.Int("position-count", len(positions)),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// toUnits converts a raw token amount to whole units.
func toUnits(amount *big.Int, decimals float64) float64 {
	f := new(big.Float).Quo(new(big.Float).SetInt(amount), big.NewFloat(decimals))
	val, _ := f.Float64()
	return val
}

// updateMetrics publishes wallet gauges and caches the USDC balance
// for the circuit breaker.
func (t *Tracker) updateMetrics(balances *Balances, positions []Position) {
	matic := toUnits(balances.MATIC, 1e18)
	usdc := toUnits(balances.USDC, 1e6)
	allowance := toUnits(balances.USDCAllowance, 1e6)

	MATICBalance.Set(matic)
	USDCBalance.Set(usdc)
	USDCAllowance.Set(allowance)

	t.mu.Lock()
	t.lastUSDC = usdc
	t.mu.Unlock()

	var totalValue, totalCost, totalPnL float64
	for _, pos := range positions {
		totalValue += pos.Value
		totalCost += pos.InitialValue
		totalPnL += pos.CashPnL
	}

	ActivePositions.Set(float64(len(positions)))
	TotalPositionValue.Set(totalValue)
	TotalPositionCost.Set(totalCost)
	UnrealizedPnL.Set(totalPnL)

	pnlPct := 0.0
	if totalCost > 0 {
		pnlPct = (totalPnL / totalCost) * 100
	}
	UnrealizedPnLPercent.Set(pnlPct)

	PortfolioValue.Set(usdc + totalValue)
}
