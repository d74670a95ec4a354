package execution

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/edgeline/edgeline/pkg/types"
)

// StakeRecorder observes stakes that actually reached the venue. The
// bankroll ledger and the circuit breaker both implement it.
type StakeRecorder interface {
	RecordStake(stake float64)
}

// Executor pushes approved decisions to a venue and tracks the
// accepted ones for reconciliation. A failed submission leaves the
// decision untouched: it never reached the venue, and the event gets
// evaluated fresh on a later cycle.
type Executor struct {
	venue      Venue
	reconciler *Reconciler
	recorders  []StakeRecorder
	logger     *zap.Logger
}

// NewExecutor creates an executor over a venue. Recorders are
// notified of every stake the venue accepts.
func NewExecutor(venue Venue, reconciler *Reconciler, logger *zap.Logger, recorders ...StakeRecorder) *Executor {
	return &Executor{
		venue:      venue,
		reconciler: reconciler,
		recorders:  recorders,
		logger:     logger,
	}
}

// Mode returns the underlying venue mode.
func (e *Executor) Mode() string { return e.venue.Mode() }

// Execute submits every approved decision in the batch and returns
// how many the venue accepted. Non-approved decisions pass through
// untouched.
func (e *Executor) Execute(ctx context.Context, decisions []*types.Decision) int {
	mode := e.venue.Mode()
	submitted := 0

	for _, d := range decisions {
		if d.Status != types.StatusApproved {
			continue
		}

		start := time.Now()
		res, err := e.venue.Submit(ctx, d)
		SubmitDurationSeconds.WithLabelValues(mode).Observe(time.Since(start).Seconds())

		if err != nil {
			var subErr *types.SubmissionError
			if errors.As(err, &subErr) {
				SubmissionsTotal.WithLabelValues(mode, "rejected").Inc()
				e.logger.Warn("submission-rejected-by-venue",
					zap.String("decision-id", d.ID),
					zap.String("event-id", d.EventID),
					zap.String("code", subErr.Code),
					zap.String("message", subErr.Message))
			} else {
				SubmissionsTotal.WithLabelValues(mode, "error").Inc()
				e.logger.Error("submission-failed",
					zap.String("decision-id", d.ID),
					zap.String("event-id", d.EventID),
					zap.Error(err))
			}
			continue
		}

		if !res.Accepted {
			SubmissionsTotal.WithLabelValues(mode, "rejected").Inc()
			e.logger.Warn("submission-declined",
				zap.String("decision-id", d.ID),
				zap.String("submission-id", res.SubmissionID))
			continue
		}

		d.Status = types.StatusSubmitted
		for _, rec := range e.recorders {
			rec.RecordStake(d.Stake)
		}
		e.reconciler.Track(d, res)
		submitted++

		SubmissionsTotal.WithLabelValues(mode, "submitted").Inc()
		e.logger.Info("bet-submitted",
			zap.String("decision-id", d.ID),
			zap.String("submission-id", res.SubmissionID),
			zap.String("event-id", d.EventID),
			zap.String("outcome", d.Outcome),
			zap.Float64("stake", d.Stake),
			zap.Float64("price", res.Price),
			zap.String("mode", mode))
	}

	return submitted
}

// Reconcile polls the result source and returns any new settlements.
func (e *Executor) Reconcile(ctx context.Context) ([]types.Settlement, error) {
	return e.reconciler.Poll(ctx)
}

// PendingCount returns the number of unsettled submissions.
func (e *Executor) PendingCount() int {
	return e.reconciler.PendingCount()
}

// Close closes the venue.
func (e *Executor) Close() error {
	return e.venue.Close()
}
