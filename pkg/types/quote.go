package types

import (
	"math"
	"time"
)

// FallbackImpliedProbability is used when no quote exists for an
// outcome. Edges computed against it are flagged, not dropped.
const FallbackImpliedProbability = 0.5

// MarketQuote is a single book's moneyline price for one outcome of
// one event. Multiple quotes may exist per event/outcome.
type MarketQuote struct {
	EventID   string    `json:"event_id"`
	Outcome   string    `json:"outcome"`
	BookID    string    `json:"book_id"`
	Price     float64   `json:"price"` // American moneyline, e.g. -150 or +130
	FetchedAt time.Time `json:"fetched_at"`
}

// ImpliedProbability converts the moneyline price to an implied
// probability assuming no bookmaker margin. A zero price (missing
// data) resolves to the 0.5 fallback rather than an error.
func (q MarketQuote) ImpliedProbability() float64 {
	return MoneylineToProbability(q.Price)
}

// MoneylineToProbability converts an American moneyline quote to an
// implied probability. Negative price -150 means "risk 150 to win
// 100"; positive price +130 means "risk 100 to win 130".
func MoneylineToProbability(price float64) float64 {
	if price == 0 {
		return FallbackImpliedProbability
	}
	if price > 0 {
		return 100 / (price + 100)
	}
	return math.Abs(price) / (math.Abs(price) + 100)
}
