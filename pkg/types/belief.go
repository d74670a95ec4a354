package types

import "time"

// Canonical outcome identifiers for two-sided game markets.
const (
	OutcomeHome = "home"
	OutcomeAway = "away"
)

// Belief is a model-produced per-event probability estimate.
// Probabilities for mutually exclusive outcomes should sum to ~1;
// the pipeline consumes beliefs as-is and never renormalizes.
type Belief struct {
	EventID              string             `json:"event_id"`
	OutcomeProbabilities map[string]float64 `json:"outcome_probabilities"`
	Confidence           float64            `json:"confidence"`
	GeneratedAt          time.Time          `json:"generated_at"`
}

// Probability returns the model probability for an outcome, or 0 if the
// model produced nothing for it.
func (b *Belief) Probability(outcome string) float64 {
	if b == nil {
		return 0
	}
	return b.OutcomeProbabilities[outcome]
}

// Event bundles everything the decision pipeline needs for one game:
// the model belief and whatever market quotes research could gather.
// Partial data is expected; Quotes may be empty and Belief may cover
// only some outcomes.
type Event struct {
	ID        string        `json:"id"`
	HomeTeam  string        `json:"home_team"`
	AwayTeam  string        `json:"away_team"`
	StartTime time.Time     `json:"start_time"`
	Belief    *Belief       `json:"belief"`
	Quotes    []MarketQuote `json:"quotes"`
}

// OutcomeOrder returns the canonical, documented outcome ordering used
// for deterministic tie-breaks: home before away, anything else
// lexicographic after those.
func OutcomeOrder(outcome string) int {
	switch outcome {
	case OutcomeHome:
		return 0
	case OutcomeAway:
		return 1
	default:
		return 2
	}
}
