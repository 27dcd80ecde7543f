// Package loki queries a Loki-compatible log backend over HTTP and returns
// classified, time-ordered log entries.
package loki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/common/model"

	"github.com/Amazomic/loki-analyzer/internal/models"
)

const (
	labelsPath     = "/loki/api/v1/labels"
	queryRangePath = "/loki/api/v1/query_range"

	// ProbeTimeout bounds TestConnectivity.
	ProbeTimeout = 5 * time.Second

	maxErrorBody = 512
)

// Client talks to a Loki HTTP API. It holds no per-query state and is safe
// for concurrent use.
type Client struct {
	httpClient   *http.Client
	logger       *slog.Logger
	now          func() time.Time
	probeTimeout time.Duration
}

// Option configures Client behavior.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the time source used to compute lookback windows.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithProbeTimeout overrides the connectivity probe timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// NewClient creates a Client. The default HTTP client negotiates compressed
// responses and has no overall timeout; Fetch is bounded only by its context.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Transport: gzhttp.Transport(http.DefaultTransport),
		},
		logger:       slog.Default(),
		now:          time.Now,
		probeTimeout: ProbeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TestConnectivity issues a label listing request and reports whether the
// backend answered with a 2xx status. It never returns an error; failures,
// timeouts and non-2xx statuses all yield false.
func (c *Client) TestConnectivity(ctx context.Context, cfg models.QueryConfig) bool {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, cfg, labelsPath, nil)
	if err != nil {
		c.logger.Debug("loki probe request invalid", "error", err)
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("loki probe failed", "url", cfg.URL, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		c.logger.Debug("loki probe returned non-2xx", "url", cfg.URL, "status", resp.StatusCode)
	}
	return ok
}

// Fetch runs a backward range query and returns the classified entries,
// newest first. The result is re-sorted locally so correctness does not depend
// on backend ordering. An empty result is not an error. Fetch does not retry.
func (c *Client) Fetch(ctx context.Context, cfg models.QueryConfig) ([]models.LogEntry, error) {
	params := url.Values{}
	params.Set("query", cfg.Query)
	if cfg.Limit > 0 {
		params.Set("limit", strconv.Itoa(cfg.Limit))
	}
	params.Set("direction", "backward")

	if cfg.Range != "" {
		start, err := c.lookbackStart(cfg.Range)
		if err != nil {
			return nil, &FetchError{Message: err.Error(), Err: err}
		}
		params.Set("start", strconv.FormatInt(start.UnixNano(), 10))
	}

	req, err := c.newRequest(ctx, cfg, queryRangePath, params)
	if err != nil {
		return nil, transportError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("loki query failed", "url", cfg.URL, "error", err)
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Message: "reading response: " + err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Warn("loki query rejected", "url", cfg.URL, "status", resp.StatusCode)
		return nil, &FetchError{StatusCode: resp.StatusCode, Message: msg}
	}

	entries, err := decodeEntries(body)
	if err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Message: err.Error(), Err: err}
	}

	c.logger.Debug("loki query completed", "url", cfg.URL, "entries", len(entries))
	return entries, nil
}

func (c *Client) newRequest(ctx context.Context, cfg models.QueryConfig, path string, params url.Values) (*http.Request, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("log backend URL is required")
	}

	endpoint := base + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if auth := AuthorizationHeader(cfg.Token); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return req, nil
}

// lookbackStart converts a duration token such as "6h" or "7d" into an absolute start time.
func (c *Client) lookbackStart(token string) (time.Time, error) {
	d, err := ParseLookback(token)
	if err != nil {
		return time.Time{}, err
	}
	return c.now().Add(-d), nil
}

// ParseLookback parses a lookback window using Loki's duration syntax
// (ms, s, m, h, d, w, y units).
func ParseLookback(token string) (time.Duration, error) {
	d, err := model.ParseDuration(strings.TrimSpace(token))
	if err != nil {
		return 0, fmt.Errorf("invalid lookback window %q: %w", token, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid lookback window %q: must be positive", token)
	}
	return time.Duration(d), nil
}
