package research

import (
	"context"
	"sync"

	"github.com/edgeline/edgeline/pkg/types"
	"github.com/edgeline/edgeline/pkg/websocket"
	"go.uber.org/zap"
)

// Stream maintains a live view of the freshest quote per
// event/outcome/book from the odds feed. REST research gives the
// slate a baseline; streamed updates keep prices current between
// polls.
type Stream struct {
	feed   *websocket.Feed
	logger *zap.Logger

	mu     sync.RWMutex
	quotes map[string]map[string]types.MarketQuote // eventID -> outcome|book -> quote

	wg sync.WaitGroup
}

// NewStream creates a quote stream over the given odds feed.
func NewStream(feed *websocket.Feed, logger *zap.Logger) *Stream {
	return &Stream{
		feed:   feed,
		logger: logger,
		quotes: make(map[string]map[string]types.MarketQuote),
	}
}

// Start connects the feed and begins consuming updates. Runs until
// Close is called.
func (s *Stream) Start(ctx context.Context) error {
	if err := s.feed.Start(); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.consume(ctx)

	return nil
}

// Track subscribes the feed to the given events.
func (s *Stream) Track(ctx context.Context, eventIDs []string) error {
	return s.feed.Subscribe(ctx, eventIDs)
}

// Untrack drops events that have finished.
func (s *Stream) Untrack(ctx context.Context, eventIDs []string) error {
	s.mu.Lock()
	for _, id := range eventIDs {
		delete(s.quotes, id)
	}
	s.mu.Unlock()

	return s.feed.Unsubscribe(ctx, eventIDs)
}

// Quotes returns the live quotes for an event, or nil when the stream
// has seen none.
func (s *Stream) Quotes(eventID string) []types.MarketQuote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey := s.quotes[eventID]
	if len(byKey) == 0 {
		return nil
	}

	out := make([]types.MarketQuote, 0, len(byKey))
	for _, q := range byKey {
		out = append(out, q)
	}

	return out
}

// Merge overlays live quotes onto an event's research baseline. A
// streamed quote replaces the REST quote for the same outcome/book;
// baseline quotes with no live counterpart survive.
func (s *Stream) Merge(event *types.Event) {
	live := s.Quotes(event.ID)
	if len(live) == 0 {
		return
	}

	merged := make(map[string]types.MarketQuote, len(event.Quotes)+len(live))
	for _, q := range event.Quotes {
		merged[quoteKey(q.Outcome, q.BookID)] = q
	}
	for _, q := range live {
		merged[quoteKey(q.Outcome, q.BookID)] = q
	}

	event.Quotes = event.Quotes[:0]
	for _, q := range merged {
		event.Quotes = append(event.Quotes, q)
	}
}

func (s *Stream) consume(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.feed.MessageChan():
			if !ok {
				return
			}
			if msg.EventType != types.EventTypeOddsUpdate {
				continue
			}

			quote := msg.Quote()

			s.mu.Lock()
			byKey := s.quotes[quote.EventID]
			if byKey == nil {
				byKey = make(map[string]types.MarketQuote)
				s.quotes[quote.EventID] = byKey
			}
			byKey[quoteKey(quote.Outcome, quote.BookID)] = quote
			s.mu.Unlock()

			StreamQuotesTotal.Inc()
		}
	}
}

// Close shuts down the feed and waits for the consumer to drain.
func (s *Stream) Close() error {
	err := s.feed.Close()
	s.wg.Wait()

	s.logger.Info("quote-stream-closed")

	return err
}

func quoteKey(outcome, bookID string) string {
	return outcome + "|" + bookID
}
