package rank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPLookup implements Lookup against the rank lookup service's HTTP API.
// The service owns the scraping and selector heuristics; this client only
// speaks its JSON contract.
type HTTPLookup struct {
	baseURL string
	client  *http.Client
}

// NewHTTPLookup creates an HTTPLookup. A non-positive timeout falls back to
// DefaultLookupTimeout.
func NewHTTPLookup(baseURL string, timeout time.Duration) (*HTTPLookup, error) {
	if baseURL == "" {
		return nil, errors.New("rank lookup base URL is required")
	}
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &HTTPLookup{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

type rankResponse struct {
	// Position is null when the target was not found in the scan window.
	Position *int `json:"position"`
}

// LookupRank queries the live position of targetID for the given keyword.
func (l *HTTPLookup) LookupRank(ctx context.Context, keyword, targetID string) (*int, error) {
	endpoint := fmt.Sprintf("%s/rank?keyword=%s&target=%s",
		l.baseURL, url.QueryEscape(keyword), url.QueryEscape(targetID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rank request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rank lookup returned %d", resp.StatusCode)
	}

	var body rankResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode rank response: %w", err)
	}
	return body.Position, nil
}
