// Package polymarket contains the REST clients for the three Polymarket
// upstream APIs: the CLOB API (trading data), the Gamma API (metadata and
// search), and the Data API (user positions and activity). All three share
// one retry-capable request primitive and map HTTP failures onto the domain
// sentinel errors.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cyoung/polydata/internal/domain"
)

const (
	// DefaultClobURL is the CLOB API root.
	DefaultClobURL = "https://clob.polymarket.com"
	// DefaultGammaURL is the Gamma API root.
	DefaultGammaURL = "https://gamma-api.polymarket.com"
	// DefaultDataURL is the Data API root.
	DefaultDataURL = "https://data-api.polymarket.com"

	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultRetryDelay = 1 * time.Second
	defaultUserAgent  = "polydata/1.0"
)

// TransportConfig controls the shared request primitive.
type TransportConfig struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	UserAgent  string
}

func (c *TransportConfig) fillDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
}

// transport is the retry-capable request primitive shared by all three
// clients. Each client owns exactly one transport (and therefore one HTTP
// client/connection pool) for its own base URL; transports are not shared.
type transport struct {
	baseURL    string
	cfg        TransportConfig
	logger     *slog.Logger
	httpClient *http.Client
}

func newTransport(baseURL string, cfg TransportConfig, logger *slog.Logger) *transport {
	cfg.fillDefaults()
	return &transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		cfg:     cfg,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// close releases the transport's idle connections. Called exactly once when
// the owning client is closed.
func (t *transport) close() {
	t.httpClient.CloseIdleConnections()
}

// get performs a GET with retry. Rate-limit responses (429) are retried with
// a delay that doubles per attempt; transport-level failures are retried with
// the fixed delay. Both share the same attempt ceiling. Semantic rejections
// (window too long, not found, bad request) are never retried here.
func (t *transport) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < t.cfg.MaxRetries; attempt++ {
		body, retryable, delay, err := t.doGet(ctx, path, query, attempt)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable || attempt == t.cfg.MaxRetries-1 {
			return nil, err
		}

		t.logger.Warn("request failed, retrying",
			slog.String("path", path),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// getJSON performs a GET and decodes the JSON response into out.
func (t *transport) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := t.get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// doGet performs one attempt. It reports whether a failure is retryable and
// the delay to apply before the next attempt.
func (t *transport) doGet(ctx context.Context, path string, query url.Values, attempt int) (body []byte, retryable bool, delay time.Duration, err error) {
	u := t.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.cfg.UserAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, 0, ctx.Err()
		}
		// Timeouts and connection failures get the fixed delay.
		return nil, true, t.cfg.RetryDelay, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, t.cfg.RetryDelay, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		// Exponential backoff for rate limits specifically.
		return nil, true, t.cfg.RetryDelay << attempt,
			fmt.Errorf("%w: %s", domain.ErrRateLimited, strings.TrimSpace(string(body)))
	}

	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, false, 0, err
	}
	return body, false, 0, nil
}

// checkStatus maps non-2xx status codes onto domain sentinel errors. The CLOB
// history endpoint signals an over-long window with a message containing
// "interval is too long" in an otherwise generic 400 body.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := strings.TrimSpace(string(body))
	if strings.Contains(strings.ToLower(bodyStr), "interval is too long") {
		return fmt.Errorf("%w: %s", domain.ErrWindowTooLong, bodyStr)
	}

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
