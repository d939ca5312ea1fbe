package volume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jwkoo/keytier/internal/keyword"
)

// Metrics is one keyword's raw commercial signal as returned by the
// external volume source.
type Metrics struct {
	TotalVolume      int64   `json:"total_volume"`
	CompetitionIndex float64 `json:"competition_index"`
	AdDepth          int     `json:"ad_depth"`
	CPC              int64   `json:"cpc"`
}

// Source is the external search-volume provider. Implementations may return
// a partial map and must not fail on empty results.
type Source interface {
	// BatchLookup resolves metrics for the given keywords in one request.
	// The returned map is keyed by normalized keyword text.
	BatchLookup(ctx context.Context, keywords []string) (map[string]Metrics, error)
}

// HTTP source defaults.
const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = 500 * time.Millisecond
	DefaultMaxDelay       = 5 * time.Second
	DefaultJitterFactor   = 0.5
)

// ErrSourceExhausted is returned when every retry attempt failed.
var ErrSourceExhausted = errors.New("volume source retries exhausted")

// HTTPSourceConfig configures the HTTP volume source client.
type HTTPSourceConfig struct {
	// BaseURL of the volume API, e.g. the SearchAd keyword tool endpoint.
	BaseURL string
	// APIKey and CustomerID are sent as authentication headers.
	APIKey     string
	CustomerID string

	Timeout      time.Duration
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// HTTPSource implements Source against a batch keyword-metrics HTTP API.
// Transient failures (429 and 5xx) are retried with exponential backoff and
// jitter up to a bounded attempt count.
type HTTPSource struct {
	config HTTPSourceConfig
	client *http.Client
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand // protected by mu
}

// NewHTTPSource creates an HTTPSource. Outbound requests are instrumented
// with otelhttp so source latency shows up under the pipeline span.
func NewHTTPSource(config HTTPSourceConfig, logger *slog.Logger) (*HTTPSource, error) {
	if config.BaseURL == "" {
		return nil, errors.New("volume source base URL is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRequestTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultBaseDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultMaxDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSource{
		config: config,
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

type batchResponse struct {
	Keywords []struct {
		Keyword          string  `json:"keyword"`
		TotalVolume      int64   `json:"total_volume"`
		CompetitionIndex float64 `json:"competition_index"`
		AdDepth          int     `json:"ad_depth"`
		CPC              int64   `json:"cpc"`
	} `json:"keywords"`
}

// BatchLookup fetches metrics for all keywords in one request, retrying
// transient failures. On success the map may be partial; keywords absent
// from the response are simply missing.
func (s *HTTPSource) BatchLookup(ctx context.Context, keywords []string) (map[string]Metrics, error) {
	if len(keywords) == 0 {
		return map[string]Metrics{}, nil
	}

	endpoint := strings.TrimRight(s.config.BaseURL, "/") + "/keywords?hints=" +
		url.QueryEscape(strings.Join(keywords, ","))

	var lastErr error
	for attempt := 0; attempt < s.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := s.computeBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, retryable, err := s.doRequest(ctx, endpoint)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		s.logger.Warn("volume source request failed, retrying",
			"attempt", attempt+1,
			"max_attempts", s.config.MaxAttempts,
			"error", err)
	}
	return nil, fmt.Errorf("%w: %v", ErrSourceExhausted, lastErr)
}

func (s *HTTPSource) doRequest(ctx context.Context, endpoint string) (map[string]Metrics, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build volume request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.config.APIKey)
	req.Header.Set("X-CUSTOMER", s.config.CustomerID)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// Network errors are worth retrying.
		return nil, true, fmt.Errorf("volume request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fallthrough to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("volume source returned %d", resp.StatusCode)
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, false, fmt.Errorf("volume source returned %d", resp.StatusCode)
	}

	var body batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("failed to decode volume response: %w", err)
	}

	result := make(map[string]Metrics, len(body.Keywords))
	for _, kw := range body.Keywords {
		result[keyword.NormalizeKey(kw.Keyword)] = Metrics{
			TotalVolume:      kw.TotalVolume,
			CompetitionIndex: kw.CompetitionIndex,
			AdDepth:          kw.AdDepth,
			CPC:              kw.CPC,
		}
	}
	return result, false, nil
}

// computeBackoff calculates the retry delay with exponential backoff and
// jitter: delay in [base*2^n * (1-j/2), base*2^n * (1+j/2)], capped at max.
func (s *HTTPSource) computeBackoff(attempt int) time.Duration {
	shift := uint(attempt - 1)
	if shift > 10 {
		shift = 10
	}
	backoff := float64(s.config.BaseDelay) * float64(uint64(1)<<shift)
	if backoff > float64(s.config.MaxDelay) {
		backoff = float64(s.config.MaxDelay)
	}
	if s.config.JitterFactor > 0 {
		s.mu.Lock()
		jitter := (s.rng.Float64() - 0.5) * s.config.JitterFactor
		s.mu.Unlock()
		backoff = backoff * (1 + jitter)
	}
	return time.Duration(backoff)
}
