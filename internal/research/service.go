package research

import (
	"context"

	"go.uber.org/zap"

	"github.com/edgeline/edgeline/pkg/types"
)

// Service composes the REST client with the optional live quote
// stream. With a stream attached, every researched event is tracked
// on the feed and its REST quotes are overlaid with fresher streamed
// prices; without one, Service is a thin pass-through.
type Service struct {
	client *Client
	stream *Stream
	logger *zap.Logger
}

// NewService creates a research service. The stream may be nil.
func NewService(client *Client, stream *Stream, logger *zap.Logger) *Service {
	return &Service{
		client: client,
		stream: stream,
		logger: logger,
	}
}

// Start connects the live quote stream if one is attached.
func (s *Service) Start(ctx context.Context) error {
	if s.stream == nil {
		return nil
	}
	return s.stream.Start(ctx)
}

// Research fetches the slate and, when streaming, overlays live
// quotes on top of the REST baseline.
func (s *Service) Research(ctx context.Context, date string) ([]*types.Event, error) {
	events, err := s.client.Research(ctx, date)
	if err != nil {
		return nil, err
	}
	if s.stream == nil || len(events) == 0 {
		return events, nil
	}

	eventIDs := make([]string, 0, len(events))
	for _, e := range events {
		eventIDs = append(eventIDs, e.ID)
	}

	if err := s.stream.Track(ctx, eventIDs); err != nil {
		s.logger.Warn("stream-track-failed", zap.Error(err))
	}

	for _, e := range events {
		s.stream.Merge(e)
	}

	return events, nil
}

// FetchResults delegates to the REST client. Events with a final
// result are untracked from the stream: their quotes can never be bet
// again, so holding the feed subscription only leaks state.
func (s *Service) FetchResults(ctx context.Context, eventIDs []string) (map[string]string, error) {
	results, err := s.client.FetchResults(ctx, eventIDs)
	if err != nil {
		return nil, err
	}

	if s.stream != nil && len(results) > 0 {
		settled := make([]string, 0, len(results))
		for eventID := range results {
			settled = append(settled, eventID)
		}
		if err := s.stream.Untrack(ctx, settled); err != nil {
			s.logger.Warn("stream-untrack-failed", zap.Error(err))
		}
	}

	return results, nil
}

// Close closes the stream if one is attached.
func (s *Service) Close() error {
	if s.stream == nil {
		return nil
	}
	return s.stream.Close()
}
