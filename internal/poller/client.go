// Package poller fetches the match schedule feed on a timer and hands each
// successful fetch to the broadcast hub and the notification engine.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/albapepper/matchwatch/internal/match"
)

const maxBodyBytes = 8 << 20

// FetchError is a failed fetch: transport failure, non-2xx status or a
// malformed payload. It aborts the whole poll cycle.
type FetchError struct {
	URL    string
	Status int // zero when no response was received
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// feedResponse is the feed's top-level shape. Matches is a pointer so a
// missing key can be told apart from an empty list.
type feedResponse struct {
	Matches *[]json.RawMessage `json:"matches"`
}

// Client fetches the match feed.
type Client struct {
	httpClient *http.Client
	url        string
	limiter    *rate.Limiter
	parser     *match.Parser
	logger     *slog.Logger
}

// NewClient creates a feed client with rate limiting.
func NewClient(url string, requestsPerMinute int, timeout time.Duration, parser *match.Parser, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if parser == nil {
		parser = match.NewParser(time.UTC, match.DefaultDuration)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(float64(requestsPerMinute) / 60.0)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		limiter:    rate.NewLimiter(limit, 1),
		parser:     parser,
		logger:     logger,
	}
}

// FetchMatches performs a rate-limited GET of the feed and decodes it.
// Individual records that fail to parse are reported in Batch.Skipped.
func (c *Client) FetchMatches(ctx context.Context) (*match.Batch, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: c.url, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &FetchError{URL: c.url, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{URL: c.url, Status: resp.StatusCode, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: c.url, Status: resp.StatusCode, Err: fmt.Errorf("unexpected response: %s", truncate(body, 200))}
	}

	var feed feedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, &FetchError{URL: c.url, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if feed.Matches == nil {
		return nil, &FetchError{URL: c.url, Status: resp.StatusCode, Err: fmt.Errorf("response has no matches array")}
	}

	raw := *feed.Matches
	records, skipped := c.parser.ParseAll(raw)
	return &match.Batch{Raw: raw, Records: records, Skipped: skipped}, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
