package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/edgeline/edgeline/internal/pricing"
	"github.com/edgeline/edgeline/internal/sizing"
	"github.com/edgeline/edgeline/pkg/types"
	"go.uber.org/zap"
)

// RejectReasonEdgeBelowThreshold is the canonical reason attached to
// decisions whose best edge does not clear the configured threshold.
const RejectReasonEdgeBelowThreshold = "edge below threshold"

// Config holds pipeline configuration.
type Config struct {
	MinEVThreshold float64 // percentage points
	Logger         *zap.Logger
}

// Pipeline composes the edge calculator and the stake sizer into a
// single per-event decision. Evaluate is a pure function of its
// inputs: no stored state, no side effects beyond metrics and logs.
type Pipeline struct {
	calculator *pricing.Calculator
	sizer      *sizing.Sizer
	config     Config
	logger     *zap.Logger
}

// New creates a decision pipeline.
func New(cfg Config, calculator *pricing.Calculator, sizer *sizing.Sizer) *Pipeline {
	return &Pipeline{
		calculator: calculator,
		sizer:      sizer,
		config:     cfg,
		logger:     cfg.Logger,
	}
}

// Evaluate turns one event's belief and quotes into a decision against
// the given bankroll. Events without a belief produce a rejected
// decision rather than an error: partial research data must never
// stall the cycle.
func (p *Pipeline) Evaluate(event *types.Event, bankroll float64) *types.Decision {
	start := time.Now()
	defer func() {
		EvaluationDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	if event.Belief == nil || len(event.Belief.OutcomeProbabilities) == 0 {
		d := types.NewDecision(event.ID, "")
		d.Reject("no model belief available")
		d.Reasoning = "no model belief was produced for this event"
		DecisionsTotal.WithLabelValues("rejected").Inc()
		return d
	}

	edges := p.calculator.ComputeEdges(event.Belief, event.Quotes)
	outcome, result := selectOutcome(edges)

	d := types.NewDecision(event.ID, outcome)
	d.EdgePct = result.Edge * 100
	d.ModelProbability = result.ModelProbability
	d.MarketProbability = result.MarketProbability
	d.Confidence = event.Belief.Confidence
	d.SourceBook = result.BestBook
	d.Fallback = result.Fallback

	if d.EdgePct < p.config.MinEVThreshold {
		d.Reject(RejectReasonEdgeBelowThreshold)
		d.Reasoning = fmt.Sprintf(
			"best edge %.2f%% on %s is below the %.2f%% threshold",
			d.EdgePct, outcome, p.config.MinEVThreshold)

		p.logger.Info("decision-rejected",
			zap.String("event-id", event.ID),
			zap.String("outcome", outcome),
			zap.Float64("edge-pct", d.EdgePct),
			zap.String("reason", d.RejectionReason))
		DecisionsTotal.WithLabelValues("rejected").Inc()
		return d
	}

	d.Stake = p.sizer.SizeStake(result.Edge, result.MarketProbability, bankroll)
	d.Reasoning = fmt.Sprintf(
		"%s has a %.2f%% edge (model %.3f vs market %.3f), above the %.2f%% threshold; best price at %s",
		outcome, d.EdgePct, d.ModelProbability, d.MarketProbability,
		p.config.MinEVThreshold, bookOrFallback(d))

	p.logger.Info("decision-proposed",
		zap.String("event-id", event.ID),
		zap.String("decision-id", d.ID),
		zap.String("outcome", outcome),
		zap.Float64("edge-pct", d.EdgePct),
		zap.Float64("stake", d.Stake),
		zap.String("source-book", d.SourceBook),
		zap.Bool("fallback", d.Fallback))
	DecisionsTotal.WithLabelValues("proposed").Inc()

	return d
}

// selectOutcome picks the outcome with the largest absolute edge.
// Exact ties break on the canonical outcome order (home, away, then
// lexicographic) so evaluation is deterministic regardless of map
// iteration order.
func selectOutcome(edges map[string]pricing.EdgeResult) (string, pricing.EdgeResult) {
	outcomes := make([]string, 0, len(edges))
	for outcome := range edges {
		outcomes = append(outcomes, outcome)
	}

	sort.Slice(outcomes, func(i, j int) bool {
		oi, oj := types.OutcomeOrder(outcomes[i]), types.OutcomeOrder(outcomes[j])
		if oi != oj {
			return oi < oj
		}
		return outcomes[i] < outcomes[j]
	})

	best := outcomes[0]
	for _, outcome := range outcomes[1:] {
		if abs(edges[outcome].Edge) > abs(edges[best].Edge) {
			best = outcome
		}
	}

	return best, edges[best]
}

func bookOrFallback(d *types.Decision) string {
	if d.SourceBook == "" {
		return "no book (fallback price)"
	}
	return d.SourceBook
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
