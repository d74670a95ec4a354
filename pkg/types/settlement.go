package types

import "time"

// Settlement is the resolution of a previously submitted decision
// into a known win/loss outcome. Settlements are the only inputs that
// mutate the bankroll ledger.
type Settlement struct {
	DecisionID string    `json:"decision_id"`
	EventID    string    `json:"event_id"`
	Outcome    string    `json:"outcome"`
	Stake      float64   `json:"stake"`
	Payout     float64   `json:"payout"` // gross amount returned on a win, 0 on a loss
	Won        bool      `json:"won"`
	SettledAt  time.Time `json:"settled_at"`
}

// Net returns the bankroll delta: payout minus stake on a win, minus
// the stake on a loss.
func (s Settlement) Net() float64 {
	if s.Won {
		return s.Payout - s.Stake
	}
	return -s.Stake
}

// SubmissionResult is the venue's answer to a submit call.
type SubmissionResult struct {
	SubmissionID string  `json:"submission_id"`
	Accepted     bool    `json:"accepted"`
	Price        float64 `json:"price"`
}
