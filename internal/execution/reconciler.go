package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edgeline/edgeline/pkg/types"
)

// ResultSource reports final outcomes for events: a map of event id
// to winning outcome, containing only events whose result is final.
// Implemented by the research client.
type ResultSource interface {
	FetchResults(ctx context.Context, eventIDs []string) (map[string]string, error)
}

// pendingSubmission is a submitted decision awaiting its game result.
// The reconciler copies the fields it needs instead of retaining the
// decision pointer: decisions are per-cycle objects and settlement
// can land many cycles later.
type pendingSubmission struct {
	decisionID   string
	eventID      string
	outcome      string
	stake        float64
	marketProb   float64
	submissionID string
	trackedAt    time.Time
	attempts     int
}

// Reconciler turns submitted decisions into settlements. It keeps the
// set of unsettled submissions and, on each poll, asks the result
// source which of their games have gone final. A submission settles
// exactly once; games still in progress stay pending across polls.
type Reconciler struct {
	mu      sync.Mutex
	source  ResultSource
	pending map[string]*pendingSubmission // by decision ID
	logger  *zap.Logger
}

// NewReconciler creates a reconciler over a result source.
func NewReconciler(source ResultSource, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		source:  source,
		pending: make(map[string]*pendingSubmission),
		logger:  logger,
	}
}

// Track registers a submitted decision for reconciliation.
func (r *Reconciler) Track(d *types.Decision, res *types.SubmissionResult) {
	r.mu.Lock()
	r.pending[d.ID] = &pendingSubmission{
		decisionID:   d.ID,
		eventID:      d.EventID,
		outcome:      d.Outcome,
		stake:        d.Stake,
		marketProb:   d.MarketProbability,
		submissionID: res.SubmissionID,
		trackedAt:    time.Now(),
	}
	n := len(r.pending)
	r.mu.Unlock()

	PendingSubmissions.Set(float64(n))

	r.logger.Debug("submission-tracked",
		zap.String("decision-id", d.ID),
		zap.String("submission-id", res.SubmissionID),
		zap.String("event-id", d.EventID))
}

// PendingCount returns the number of unsettled submissions.
func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Poll fetches results for all pending events and settles the
// submissions whose games are final. A fetch failure is transient:
// nothing settles and everything stays pending for the next poll.
func (r *Reconciler) Poll(ctx context.Context) ([]types.Settlement, error) {
	r.mu.Lock()
	if len(r.pending) == 0 {
		r.mu.Unlock()
		return nil, nil
	}
	seen := make(map[string]struct{}, len(r.pending))
	eventIDs := make([]string, 0, len(r.pending))
	for _, p := range r.pending {
		if _, ok := seen[p.eventID]; ok {
			continue
		}
		seen[p.eventID] = struct{}{}
		eventIDs = append(eventIDs, p.eventID)
	}
	r.mu.Unlock()

	results, err := r.source.FetchResults(ctx, eventIDs)
	if err != nil {
		r.logger.Warn("result-fetch-failed-retrying",
			zap.Error(err),
			zap.Int("pending", len(eventIDs)))
		return nil, fmt.Errorf("fetch results: %w", err)
	}

	now := time.Now()
	var settlements []types.Settlement

	r.mu.Lock()
	for id, p := range r.pending {
		winner, ok := results[p.eventID]
		if !ok {
			p.attempts++
			continue
		}

		won := winner == p.outcome

		// Gross return at the implied decimal odds the stake was
		// placed at
		var payout float64
		if won && p.marketProb > 0 {
			payout = p.stake / p.marketProb
		}

		s := types.Settlement{
			DecisionID: p.decisionID,
			EventID:    p.eventID,
			Outcome:    p.outcome,
			Stake:      p.stake,
			Payout:     payout,
			Won:        won,
			SettledAt:  now,
		}
		settlements = append(settlements, s)
		delete(r.pending, id)

		result := "lost"
		if won {
			result = "won"
		}
		SettlementsTotal.WithLabelValues(result).Inc()

		r.logger.Info("submission-settled",
			zap.String("decision-id", p.decisionID),
			zap.String("event-id", p.eventID),
			zap.String("outcome", p.outcome),
			zap.String("winner", winner),
			zap.Bool("won", won),
			zap.Float64("stake", p.stake),
			zap.Float64("payout", payout),
			zap.Duration("held", now.Sub(p.trackedAt)),
			zap.Int("polls", p.attempts+1))
	}
	n := len(r.pending)
	r.mu.Unlock()

	PendingSubmissions.Set(float64(n))

	return settlements, nil
}
