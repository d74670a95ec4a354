package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/edgeline/edgeline/pkg/types"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Config holds research client configuration.
type Config struct {
	ModelAPIURL string
	OddsAPIURL  string
	OddsAPIKey  string
	Timeout     time.Duration
	Books       []string
	Logger      *zap.Logger
}

// Client fetches the day's slate from the model API and moneyline
// quotes from the odds API. Both fetches tolerate partial data: an
// event without quotes is still returned and prices fall back
// downstream.
type Client struct {
	modelURL   string
	oddsURL    string
	oddsKey    string
	books      []string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a research client.
func NewClient(cfg Config) *Client {
	return &Client{
		modelURL: cfg.ModelAPIURL,
		oddsURL:  cfg.OddsAPIURL,
		oddsKey:  cfg.OddsAPIKey,
		books:    cfg.Books,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: cfg.Logger,
	}
}

// beliefResponse is the model API's per-event payload.
type beliefResponse struct {
	EventID       string             `json:"event_id"`
	HomeTeam      string             `json:"home_team"`
	AwayTeam      string             `json:"away_team"`
	StartTime     time.Time          `json:"start_time"`
	Probabilities map[string]float64 `json:"probabilities"`
	Confidence    float64            `json:"confidence"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

// quoteResponse is the odds API's per-quote payload.
type quoteResponse struct {
	EventID string  `json:"event_id"`
	Outcome string  `json:"outcome"`
	BookID  string  `json:"book_id"`
	Price   float64 `json:"price"`
}

// FetchSlate fetches the model's beliefs for a date (YYYY-MM-DD).
func (c *Client) FetchSlate(ctx context.Context, date string) ([]*types.Event, error) {
	start := time.Now()
	defer func() {
		FetchDurationSeconds.WithLabelValues("slate").Observe(time.Since(start).Seconds())
	}()

	endpoint := fmt.Sprintf("%s/v1/beliefs?date=%s", c.modelURL, url.QueryEscape(date))

	body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		FetchErrorsTotal.WithLabelValues("slate").Inc()
		return nil, fmt.Errorf("fetch slate: %w", err)
	}

	var beliefs []beliefResponse
	if err := json.Unmarshal(body, &beliefs); err != nil {
		FetchErrorsTotal.WithLabelValues("slate").Inc()
		return nil, fmt.Errorf("unmarshal slate: %w", err)
	}

	events := make([]*types.Event, 0, len(beliefs))
	for _, b := range beliefs {
		events = append(events, &types.Event{
			ID:        b.EventID,
			HomeTeam:  b.HomeTeam,
			AwayTeam:  b.AwayTeam,
			StartTime: b.StartTime,
			Belief: &types.Belief{
				EventID:              b.EventID,
				OutcomeProbabilities: b.Probabilities,
				Confidence:           b.Confidence,
				GeneratedAt:          b.GeneratedAt,
			},
		})
	}

	c.logger.Debug("slate-fetched",
		zap.String("date", date),
		zap.Int("events", len(events)))
	EventsFetchedTotal.Add(float64(len(events)))

	return events, nil
}

// FetchQuotes fetches moneyline quotes for a set of events from the
// configured books.
func (c *Client) FetchQuotes(ctx context.Context, eventIDs []string) ([]types.MarketQuote, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		FetchDurationSeconds.WithLabelValues("quotes").Observe(time.Since(start).Seconds())
	}()

	params := url.Values{}
	params.Add("events", strings.Join(eventIDs, ","))
	if len(c.books) > 0 {
		params.Add("books", strings.Join(c.books, ","))
	}
	params.Add("market", "moneyline")

	endpoint := fmt.Sprintf("%s/v1/odds?%s", c.oddsURL, params.Encode())

	headers := map[string]string{}
	if c.oddsKey != "" {
		headers["X-API-Key"] = c.oddsKey
	}

	body, err := c.get(ctx, endpoint, headers)
	if err != nil {
		FetchErrorsTotal.WithLabelValues("quotes").Inc()
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}

	var raw []quoteResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		FetchErrorsTotal.WithLabelValues("quotes").Inc()
		return nil, fmt.Errorf("unmarshal quotes: %w", err)
	}

	fetched := time.Now()
	quotes := make([]types.MarketQuote, 0, len(raw))
	for _, q := range raw {
		quotes = append(quotes, types.MarketQuote{
			EventID:   q.EventID,
			Outcome:   q.Outcome,
			BookID:    q.BookID,
			Price:     q.Price,
			FetchedAt: fetched,
		})
	}

	c.logger.Debug("quotes-fetched",
		zap.Int("events", len(eventIDs)),
		zap.Int("quotes", len(quotes)))
	QuotesFetchedTotal.Add(float64(len(quotes)))

	return quotes, nil
}

// resultResponse is the model API's per-event final result payload.
type resultResponse struct {
	EventID        string `json:"event_id"`
	Final          bool   `json:"final"`
	WinningOutcome string `json:"winning_outcome"`
}

// FetchResults fetches final results for a set of events. Only events
// whose result is final appear in the returned map of event id to
// winning outcome; in-progress games are simply absent.
func (c *Client) FetchResults(ctx context.Context, eventIDs []string) (map[string]string, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		FetchDurationSeconds.WithLabelValues("results").Observe(time.Since(start).Seconds())
	}()

	endpoint := fmt.Sprintf("%s/v1/results?events=%s", c.modelURL, url.QueryEscape(strings.Join(eventIDs, ",")))

	body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		FetchErrorsTotal.WithLabelValues("results").Inc()
		return nil, fmt.Errorf("fetch results: %w", err)
	}

	var raw []resultResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		FetchErrorsTotal.WithLabelValues("results").Inc()
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}

	results := make(map[string]string, len(raw))
	for _, r := range raw {
		if !r.Final || r.WinningOutcome == "" {
			continue
		}
		results[r.EventID] = r.WinningOutcome
	}

	c.logger.Debug("results-fetched",
		zap.Int("requested", len(eventIDs)),
		zap.Int("final", len(results)))

	return results, nil
}

// Research fetches the slate and attaches quotes per event. A quotes
// failure degrades to an unquoted slate instead of failing the cycle.
func (c *Client) Research(ctx context.Context, date string) ([]*types.Event, error) {
	events, err := c.FetchSlate(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	eventIDs := make([]string, 0, len(events))
	for _, e := range events {
		eventIDs = append(eventIDs, e.ID)
	}

	quotes, err := c.FetchQuotes(ctx, eventIDs)
	if err != nil {
		c.logger.Warn("quotes-unavailable-continuing-without",
			zap.Error(err),
			zap.Int("events", len(events)))
		return events, nil
	}

	byEvent := make(map[string][]types.MarketQuote, len(events))
	for _, q := range quotes {
		byEvent[q.EventID] = append(byEvent[q.EventID], q)
	}
	for _, e := range events {
		e.Quotes = byEvent[e.ID]
	}

	return events, nil
}

func (c *Client) get(ctx context.Context, endpoint string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "edgeline/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}
