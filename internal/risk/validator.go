package risk

import (
	"fmt"

	"github.com/edgeline/edgeline/internal/ledger"
	"github.com/edgeline/edgeline/pkg/types"
	"go.uber.org/zap"
)

// Rejection reasons attached by the validator. Kept as constants so
// the controller and tests can match on them.
const (
	RejectReasonApprovalsHalted = "approvals halted by circuit breaker"
	RejectReasonEdgeThreshold   = "edge below approval threshold"
	RejectReasonDailyBetLimit   = "daily bet limit reached"
	RejectReasonDailyLossLimit  = "daily loss limit reached"
)

// Halter reports whether decision approvals are currently halted. The
// bankroll circuit breaker satisfies this.
type Halter interface {
	Halted() bool
}

// Config holds the risk limits.
type Config struct {
	MinEVThreshold  float64 // percentage points
	MinBet          float64
	MaxBet          float64
	DailyBetLimit   int
	DailyLossLimit  float64
	PortfolioCapPct float64 // fraction of bankroll the batch may stake in total
	Logger          *zap.Logger
}

// Validator applies the risk checks to a batch of proposed decisions.
// All checks read from a single ledger snapshot taken at batch start,
// so validation is deterministic: nothing settling mid-batch can
// change the outcome.
type Validator struct {
	config Config
	halter Halter
	logger *zap.Logger
}

// New creates a risk validator. halter may be nil when no circuit
// breaker is wired (dry runs, tests).
func New(cfg Config, halter Halter) *Validator {
	return &Validator{
		config: cfg,
		halter: halter,
		logger: cfg.Logger,
	}
}

// ValidateBatch runs the per-decision checks in order, then scales the
// surviving stakes to the portfolio cap. Decisions are mutated in
// place and returned for convenience. Already rejected decisions pass
// through untouched.
//
// Per-decision check order: edge threshold, stake clamp, daily bet
// count, daily loss limit. The daily bet count includes approvals made
// earlier in the same batch.
func (v *Validator) ValidateBatch(decisions []*types.Decision, snap ledger.Snapshot) []*types.Decision {
	if v.halter != nil && v.halter.Halted() {
		for _, d := range decisions {
			if d.Rejected() {
				continue
			}
			d.Reject(RejectReasonApprovalsHalted)
			RejectionsTotal.WithLabelValues("halted").Inc()
		}

		v.logger.Warn("risk-batch-halted",
			zap.Int("decisions", len(decisions)))

		return decisions
	}

	approvedInBatch := 0
	for _, d := range decisions {
		if d.Rejected() {
			continue
		}

		if v.checkDecision(d, snap, approvedInBatch) {
			d.Status = types.StatusApproved
			approvedInBatch++
			ApprovalsTotal.Inc()
		}
	}

	v.scaleToPortfolioCap(decisions, snap)

	return decisions
}

// checkDecision runs the ordered per-decision checks. It returns true
// when the decision survives all of them.
func (v *Validator) checkDecision(d *types.Decision, snap ledger.Snapshot, approvedInBatch int) bool {
	if d.EdgePct < v.config.MinEVThreshold {
		d.Reject(RejectReasonEdgeThreshold)
		RejectionsTotal.WithLabelValues("edge").Inc()
		return false
	}

	if clamped := clamp(d.Stake, v.config.MinBet, v.config.MaxBet); clamped != d.Stake {
		d.RiskNote = fmt.Sprintf("stake adjusted from %.2f to %.2f to fit bet limits", d.Stake, clamped)
		d.Stake = clamped
		StakesClampedTotal.Inc()
	}

	if snap.Daily.BetsPlaced+approvedInBatch >= v.config.DailyBetLimit {
		d.Reject(RejectReasonDailyBetLimit)
		RejectionsTotal.WithLabelValues("bet-limit").Inc()
		return false
	}

	// Gross losses only: a winning streak does not buy back loss budget
	if snap.Daily.AmountLost >= v.config.DailyLossLimit {
		d.Reject(RejectReasonDailyLossLimit)
		RejectionsTotal.WithLabelValues("loss-limit").Inc()
		return false
	}

	return true
}

// scaleToPortfolioCap shrinks every approved stake proportionally when
// the batch total exceeds the configured fraction of the bankroll.
func (v *Validator) scaleToPortfolioCap(decisions []*types.Decision, snap ledger.Snapshot) {
	capAmount := v.config.PortfolioCapPct * snap.Balance

	total := 0.0
	for _, d := range decisions {
		if d.Status == types.StatusApproved {
			total += d.Stake
		}
	}

	if total <= capAmount || total == 0 {
		return
	}

	factor := capAmount / total
	for _, d := range decisions {
		if d.Status != types.StatusApproved {
			continue
		}
		scaled := d.Stake * factor
		d.RiskNote = appendNote(d.RiskNote,
			fmt.Sprintf("stake scaled from %.2f to %.2f to fit portfolio cap", d.Stake, scaled))
		d.Stake = scaled
	}

	BatchesScaledTotal.Inc()
	v.logger.Info("risk-portfolio-scaled",
		zap.Float64("total-staked", total),
		zap.Float64("cap", capAmount),
		zap.Float64("factor", factor))
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
