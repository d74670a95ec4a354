package execution

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edgeline/edgeline/pkg/types"
)

// PaperSubmission is a bet recorded by the paper venue.
type PaperSubmission struct {
	SubmissionID string          `json:"submission_id"`
	Decision     *types.Decision `json:"decision"`
	SubmittedAt  time.Time       `json:"submitted_at"`
}

// PaperVenue records submissions without touching a real venue. It is
// the dry-run executor: every structurally valid decision is accepted
// at the market-implied price it was decided on.
type PaperVenue struct {
	mu          sync.Mutex
	submissions []PaperSubmission
	logger      *zap.Logger
}

// NewPaperVenue creates a paper venue.
func NewPaperVenue(logger *zap.Logger) *PaperVenue {
	return &PaperVenue{logger: logger}
}

// Submit records the decision as a paper bet.
func (v *PaperVenue) Submit(_ context.Context, d *types.Decision) (*types.SubmissionResult, error) {
	if d.Stake <= 0 {
		return nil, &types.SubmissionError{
			Code:       "INVALID_STAKE",
			Message:    "stake must be positive",
			DecisionID: d.ID,
		}
	}

	sub := PaperSubmission{
		SubmissionID: uuid.New().String(),
		Decision:     d,
		SubmittedAt:  time.Now(),
	}

	v.mu.Lock()
	v.submissions = append(v.submissions, sub)
	v.mu.Unlock()

	v.logger.Info("paper-bet-recorded",
		zap.String("submission-id", sub.SubmissionID),
		zap.String("event-id", d.EventID),
		zap.String("outcome", d.Outcome),
		zap.Float64("stake", d.Stake),
		zap.Float64("price", d.MarketProbability))

	return &types.SubmissionResult{
		SubmissionID: sub.SubmissionID,
		Accepted:     true,
		Price:        d.MarketProbability,
	}, nil
}

// Submissions returns a copy of all recorded paper bets.
func (v *PaperVenue) Submissions() []PaperSubmission {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]PaperSubmission, len(v.submissions))
	copy(out, v.submissions)
	return out
}

// Mode returns the venue mode.
func (v *PaperVenue) Mode() string { return ModePaper }

// Close releases nothing; paper venues hold no connections.
func (v *PaperVenue) Close() error { return nil }
