package types

import (
	"errors"
	"fmt"
)

// ErrApprovalsHalted is returned by components that refuse work while
// the bankroll circuit breaker is tripped. It signals a halt, not a
// crash: the controller keeps cycling and rejects every decision
// until the breaker is manually cleared.
var ErrApprovalsHalted = errors.New("stake approvals halted by bankroll circuit breaker")

// SubmissionError represents a failure while submitting a decision to
// the venue. A rejection (Accepted=false) and a transport error are
// treated identically by the controller: the decision stays
// non-settled and is re-evaluated fresh in a future cycle.
type SubmissionError struct {
	Code       string // venue error code or internal code
	Message    string
	DecisionID string
}

func (e *SubmissionError) Error() string {
	if e.DecisionID != "" {
		return fmt.Sprintf("submission failed (decision %s): %s (%s)", e.DecisionID, e.Message, e.Code)
	}
	return fmt.Sprintf("submission failed: %s (%s)", e.Message, e.Code)
}

// Known venue error codes.
const (
	ErrNotEnoughBalance = "INVALID_ORDER_NOT_ENOUGH_BALANCE"
	ErrMarketNotReady   = "MARKET_NOT_READY"
	ErrUnmatched        = "UNMATCHED"
	ErrUnknownStatus    = "UNKNOWN_STATUS"
)
