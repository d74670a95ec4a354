package circuitbreaker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// BalanceSource reports the current bankroll balance in dollars. The
// ledger satisfies this directly; live deployments can wire a
// wallet-backed source instead.
type BalanceSource interface {
	Balance() float64
}

// BankrollCircuitBreaker monitors the bankroll and halts decision
// approvals when it drops below a floor. The floor adapts to recent
// stake sizes, and hysteresis keeps the breaker from flapping when
// the balance hovers near the threshold. A breaker tripped manually
// (or by a ledger invariant violation) stays tripped until Clear is
// called, regardless of balance.
type BankrollCircuitBreaker struct {
	halted  atomic.Bool
	tripped atomic.Bool // manual trip, balance recovery does not clear it

	checkInterval   time.Duration
	source          BalanceSource
	logger          *zap.Logger
	stakeMultiplier float64 // multiplier for avg recent stake
	floor           float64 // absolute minimum balance
	hysteresisRatio float64 // resume at ratio * halt threshold

	mu             sync.RWMutex
	lastBalance    float64
	lastCheck      time.Time
	recentStakes   []float64
	haltThreshold  float64
	clearThreshold float64
	tripReason     string
}

// Config holds circuit breaker configuration.
type Config struct {
	CheckInterval   time.Duration
	StakeMultiplier float64
	Floor           float64
	HysteresisRatio float64
	Source          BalanceSource
	Logger          *zap.Logger
}

// Status holds current breaker state for the ops endpoints.
type Status struct {
	Halted           bool      `json:"halted"`
	Tripped          bool      `json:"tripped"`
	TripReason       string    `json:"trip_reason,omitempty"`
	LastBalance      float64   `json:"last_balance"`
	LastCheck        time.Time `json:"last_check"`
	HaltThreshold    float64   `json:"halt_threshold"`
	ClearThreshold   float64   `json:"clear_threshold"`
	AvgStakeSize     float64   `json:"avg_stake_size"`
	RecentStakeCount int       `json:"recent_stake_count"`
}

// New creates a bankroll circuit breaker.
func New(cfg *Config) (*BankrollCircuitBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("balance source cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.StakeMultiplier <= 0 {
		return nil, fmt.Errorf("stake multiplier must be positive")
	}
	if cfg.Floor <= 0 {
		return nil, fmt.Errorf("floor must be positive")
	}
	if cfg.HysteresisRatio < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}

	b := &BankrollCircuitBreaker{
		checkInterval:   cfg.CheckInterval,
		source:          cfg.Source,
		logger:          cfg.Logger,
		stakeMultiplier: cfg.StakeMultiplier,
		floor:           cfg.Floor,
		hysteresisRatio: cfg.HysteresisRatio,
		recentStakes:    make([]float64, 0, 20),
		haltThreshold:   cfg.Floor,
		clearThreshold:  cfg.Floor * cfg.HysteresisRatio,
	}

	BreakerHalted.Set(0)
	BreakerHaltThreshold.Set(b.haltThreshold)
	BreakerClearThreshold.Set(b.clearThreshold)
	BreakerAvgStakeSize.Set(0)

	return b, nil
}

// Halted reports whether approvals are currently halted. Lock-free,
// safe from hot paths.
func (b *BankrollCircuitBreaker) Halted() bool {
	return b.halted.Load()
}

// Trip halts approvals unconditionally. Used when the ledger detects
// an invariant violation. Only Clear re-enables approvals.
func (b *BankrollCircuitBreaker) Trip(reason string) {
	b.mu.Lock()
	b.tripReason = reason
	b.mu.Unlock()

	b.tripped.Store(true)
	if !b.halted.Swap(true) {
		BreakerHalted.Set(1)
		BreakerStateChanges.Inc()
	}
	BreakerTripsTotal.Inc()

	b.logger.Warn("breaker-tripped", zap.String("reason", reason))
}

// Clear removes a manual trip and re-evaluates the balance thresholds.
// If the balance is still below the halt threshold the breaker stays
// halted.
func (b *BankrollCircuitBreaker) Clear() {
	b.tripped.Store(false)
	b.mu.Lock()
	b.tripReason = ""
	b.mu.Unlock()

	b.logger.Info("breaker-cleared")
	b.CheckBalance()
}

// RecordStake adds a stake to the rolling window and recalculates the
// thresholds. Call after successful submission.
func (b *BankrollCircuitBreaker) RecordStake(stake float64) {
	if stake <= 0 {
		b.logger.Warn("invalid-stake-size", zap.Float64("stake", stake))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Rolling window of the last 20 stakes.
	b.recentStakes = append(b.recentStakes, stake)
	if len(b.recentStakes) > 20 {
		b.recentStakes = b.recentStakes[1:]
	}

	sum := 0.0
	for _, s := range b.recentStakes {
		sum += s
	}
	avgStake := sum / float64(len(b.recentStakes))

	b.haltThreshold = math.Max(avgStake*b.stakeMultiplier, b.floor)
	b.clearThreshold = b.haltThreshold * b.hysteresisRatio

	BreakerAvgStakeSize.Set(avgStake)
	BreakerHaltThreshold.Set(b.haltThreshold)
	BreakerClearThreshold.Set(b.clearThreshold)

	b.logger.Debug("thresholds-updated",
		zap.Float64("avg-stake", avgStake),
		zap.Int("stake-count", len(b.recentStakes)),
		zap.Float64("halt-threshold", b.haltThreshold),
		zap.Float64("clear-threshold", b.clearThreshold))
}

// CheckBalance reads the current balance and updates the halted state.
// A manual trip always wins: the breaker stays halted until cleared
// even if the balance has recovered.
func (b *BankrollCircuitBreaker) CheckBalance() {
	start := time.Now()
	defer func() {
		BreakerCheckDuration.Observe(time.Since(start).Seconds())
	}()

	balance := b.source.Balance()

	b.mu.Lock()
	b.lastBalance = balance
	b.lastCheck = time.Now()
	haltThreshold := b.haltThreshold
	clearThreshold := b.clearThreshold
	b.mu.Unlock()

	BreakerBalance.Set(balance)

	if b.tripped.Load() {
		return
	}

	currentlyHalted := b.halted.Load()

	shouldHalt := !currentlyHalted && balance < haltThreshold
	shouldClear := currentlyHalted && balance >= clearThreshold

	switch {
	case shouldHalt:
		b.halted.Store(true)
		BreakerHalted.Set(1)
		BreakerStateChanges.Inc()

		b.logger.Warn("breaker-halted",
			zap.Float64("balance", balance),
			zap.Float64("halt-threshold", haltThreshold),
			zap.Float64("clear-threshold", clearThreshold))
	case shouldClear:
		b.halted.Store(false)
		BreakerHalted.Set(0)
		BreakerStateChanges.Inc()

		b.logger.Info("breaker-resumed",
			zap.Float64("balance", balance),
			zap.Float64("halt-threshold", haltThreshold),
			zap.Float64("clear-threshold", clearThreshold))
	default:
		b.logger.Debug("balance-checked",
			zap.Float64("balance", balance),
			zap.Bool("halted", currentlyHalted),
			zap.Float64("halt-threshold", haltThreshold),
			zap.Float64("clear-threshold", clearThreshold))
	}
}

// Start checks the balance once, then begins the background monitor
// loop. The loop runs until the context is cancelled.
func (b *BankrollCircuitBreaker) Start(ctx context.Context) {
	b.logger.Info("breaker-started",
		zap.Duration("check-interval", b.checkInterval),
		zap.Float64("stake-multiplier", b.stakeMultiplier),
		zap.Float64("floor", b.floor),
		zap.Float64("hysteresis-ratio", b.hysteresisRatio))

	b.CheckBalance()

	go b.monitorLoop(ctx)
}

func (b *BankrollCircuitBreaker) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(b.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("breaker-stopped")
			return
		case <-ticker.C:
			b.CheckBalance()
		}
	}
}

// GetStatus returns the current breaker state for the ops endpoints.
func (b *BankrollCircuitBreaker) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	avgStake := 0.0
	if len(b.recentStakes) > 0 {
		sum := 0.0
		for _, s := range b.recentStakes {
			sum += s
		}
		avgStake = sum / float64(len(b.recentStakes))
	}

	return Status{
		Halted:           b.halted.Load(),
		Tripped:          b.tripped.Load(),
		TripReason:       b.tripReason,
		LastBalance:      b.lastBalance,
		LastCheck:        b.lastCheck,
		HaltThreshold:    b.haltThreshold,
		ClearThreshold:   b.clearThreshold,
		AvgStakeSize:     avgStake,
		RecentStakeCount: len(b.recentStakes),
	}
}
