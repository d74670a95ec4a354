package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DecisionStatus tracks a decision through its lifecycle. A decision
// is created proposed, flips to approved or rejected during risk
// validation, to submitted at the venue boundary, and to settled once
// the outcome is known. Settled decisions are immutable.
type DecisionStatus string

const (
	StatusProposed  DecisionStatus = "proposed"
	StatusApproved  DecisionStatus = "approved"
	StatusRejected  DecisionStatus = "rejected"
	StatusSubmitted DecisionStatus = "submitted"
	StatusSettled   DecisionStatus = "settled"
)

// Decision is the central entity of the pipeline: one stake decision
// for one outcome of one event, carrying the numeric basis it was
// made on.
type Decision struct {
	ID                string         `json:"id"`
	EventID           string         `json:"event_id"`
	Outcome           string         `json:"outcome"`
	EdgePct           float64        `json:"edge_pct"` // edge in percentage points
	ModelProbability  float64        `json:"model_probability"`
	MarketProbability float64        `json:"market_probability"`
	Stake             float64        `json:"stake"`
	Confidence        float64        `json:"confidence"`
	Status            DecisionStatus `json:"status"`
	RejectionReason   string         `json:"rejection_reason,omitempty"`
	RiskNote          string         `json:"risk_note,omitempty"`
	SourceBook        string         `json:"source_book"`
	Fallback          bool           `json:"fallback"` // market probability came from the 0.5 fallback
	Reasoning         string         `json:"reasoning"`
	CreatedAt         time.Time      `json:"created_at"`
}

// NewDecision creates a proposed decision with a fresh ID.
func NewDecision(eventID, outcome string) *Decision {
	return &Decision{
		ID:        uuid.New().String(),
		EventID:   eventID,
		Outcome:   outcome,
		Status:    StatusProposed,
		CreatedAt: time.Now(),
	}
}

// Reject flips the decision to rejected with a reason. Rejecting an
// already rejected decision keeps the original reason (idempotent).
func (d *Decision) Reject(reason string) {
	if d.Status == StatusRejected {
		return
	}
	d.Status = StatusRejected
	d.RejectionReason = reason
	d.Stake = 0
}

// Rejected reports whether the decision has been rejected.
func (d *Decision) Rejected() bool {
	return d.Status == StatusRejected
}

// String returns a compact human-readable summary.
func (d *Decision) String() string {
	return fmt.Sprintf(
		"Decision[%s] event=%s outcome=%s edge=%.2f%% stake=$%.2f status=%s",
		shortID(d.ID), d.EventID, d.Outcome, d.EdgePct, d.Stake, d.Status,
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
