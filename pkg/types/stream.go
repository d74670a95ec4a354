package types

import "time"

// Quote stream event types.
const (
	EventTypeOddsUpdate = "odds_update"
	EventTypeHeartbeat  = "heartbeat"
)

// QuoteMessage is one odds update from the streaming feed. Feeds send
// arrays of these per frame.
type QuoteMessage struct {
	EventType string  `json:"event_type"`
	EventID   string  `json:"event_id"`
	Outcome   string  `json:"outcome"`
	BookID    string  `json:"book_id"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // unix millis
}

// Quote converts the wire message to a MarketQuote.
func (m *QuoteMessage) Quote() MarketQuote {
	fetched := time.Now()
	if m.Timestamp > 0 {
		fetched = time.UnixMilli(m.Timestamp)
	}

	return MarketQuote{
		EventID:   m.EventID,
		Outcome:   m.Outcome,
		BookID:    m.BookID,
		Price:     m.Price,
		FetchedAt: fetched,
	}
}
