package websocket

import (
	"math/rand"
	"sync"
	"time"
)

// BackoffConfig parameterizes the redial backoff schedule.
type BackoffConfig struct {
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	JitterPercent float64 // 0.2 = up to 20% added
}

// Backoff produces a jittered exponential delay schedule. Next reads
// the current delay, Advance grows it toward the cap, Reset returns it
// to the initial delay after a successful dial.
type Backoff struct {
	cfg BackoffConfig

	mu      sync.Mutex
	current time.Duration
}

// NewBackoff creates a backoff starting at the configured initial delay.
func NewBackoff(cfg BackoffConfig) *Backoff {
	return &Backoff{
		cfg:     cfg,
		current: cfg.InitialDelay,
	}
}

// Next returns the current delay with jitter applied. Jitter spreads
// redials out so every client of a bounced feed does not hammer it on
// the same schedule.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	jitter := 1.0 + rand.Float64()*b.cfg.JitterPercent
	return time.Duration(float64(b.current) * jitter)
}

// Advance grows the delay by the multiplier, capped at MaxDelay.
func (b *Backoff) Advance() {
	b.mu.Lock()
	defer b.mu.Unlock()

	grown := time.Duration(float64(b.current) * b.cfg.Multiplier)
	if grown > b.cfg.MaxDelay {
		grown = b.cfg.MaxDelay
	}
	b.current = grown
}

// Reset returns the delay to the initial value.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = b.cfg.InitialDelay
}
