package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// TokenClient resolves event/outcome pairs to venue outcome token ids
// through the odds API's market metadata endpoint. Live submission
// needs the token id to build a signed order.
type TokenClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewTokenClient creates a token metadata client.
func NewTokenClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *TokenClient {
	return &TokenClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// tokenResponse is the metadata endpoint's payload.
type tokenResponse struct {
	EventID string `json:"event_id"`
	Outcome string `json:"outcome"`
	TokenID string `json:"token_id"`
}

// ResolveToken returns the venue token id for an event outcome, or an
// error when no venue market exists for it.
func (c *TokenClient) ResolveToken(eventID, outcome string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
	defer cancel()

	params := url.Values{}
	params.Add("event", eventID)
	params.Add("outcome", outcome)
	endpoint := fmt.Sprintf("%s/v1/markets/token?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("no venue market for %s/%s", eventID, outcome)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("unmarshal token: %w", err)
	}
	if token.TokenID == "" {
		return "", fmt.Errorf("empty token id for %s/%s", eventID, outcome)
	}

	c.logger.Debug("token-resolved",
		zap.String("event-id", eventID),
		zap.String("outcome", outcome),
		zap.String("token-id", token.TokenID))

	return token.TokenID, nil
}
