// Package api is the client for the platform's admin REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gabrielmiguelok/eventadmin/pkg/logging"
	"github.com/gabrielmiguelok/eventadmin/pkg/metrics"
	"github.com/gabrielmiguelok/eventadmin/pkg/retry"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 8 << 20

// Client calls the backend. All methods take a context; cancelling it aborts
// the request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      *retry.Config
	breaker    *Breaker
	location   *time.Location
	username   string
	password   string
	metrics    *metrics.Console
	logger     logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// WithRateLimit paces outgoing requests to rps with the given burst. A
// non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry sets the retry policy for idempotent reads.
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithBreaker guards the backend with b.
func WithBreaker(b *Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithLocation sets the zone that outgoing times are expressed in.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithBasicAuth authenticates every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithMetrics records every call in m.
func WithMetrics(m *metrics.Console) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("api: base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base URL %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      retry.DefaultConfig(),
		breaker:    NewBreaker(nil),
		location:   time.Local,
		logger:     logging.DefaultLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Location returns the zone outgoing times are expressed in.
func (c *Client) Location() *time.Location {
	return c.location
}

// Breaker returns the client's circuit breaker.
func (c *Client) Breaker() *Breaker {
	return c.breaker
}

func (c *Client) local(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.In(c.location)
}

// request is one backend call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, payload any) (request, error) {
	r := request{method: method, path: path}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return r, fmt.Errorf("api: failed to encode request body: %w", err)
		}
		r.body = bytes.NewReader(encoded)
		r.contentType = "application/json"
	}
	return r, nil
}

// do performs r once and returns the status and body. Non-2xx statuses are
// not errors here; callers decide which codes they accept.
func (c *Client) do(ctx context.Context, r request) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}
	if c.breaker != nil {
		if err := c.breaker.Allow(); err != nil {
			return 0, nil, err
		}
	}

	requestURL := c.baseURL + r.path
	if len(r.query) > 0 {
		requestURL += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, requestURL, r.body)
	if err != nil {
		return 0, nil, fmt.Errorf("api: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			c.recordFailure()
		}
		c.metrics.BackendCall(r.method, 0, time.Since(start))
		return 0, nil, fmt.Errorf("api: %s %s failed: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.recordFailure()
		return 0, nil, fmt.Errorf("api: failed to read response body: %w", err)
	}

	if resp.StatusCode >= 500 {
		c.recordFailure()
	} else if c.breaker != nil {
		c.breaker.RecordSuccess()
	}

	elapsed := time.Since(start)
	c.metrics.BackendCall(r.method, resp.StatusCode, elapsed)
	c.logger.Debug("backend call",
		logging.Endpoint(r.method, r.path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("duration", elapsed),
	)
	return resp.StatusCode, body, nil
}

func (c *Client) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordError()
	}
}

// getJSON reads path into out. Transient failures are retried; 4xx
// responses are not.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return retry.Do(ctx, c.retry, func(ctx context.Context) error {
		status, body, err := c.do(ctx, request{method: http.MethodGet, path: path, query: query})
		if err != nil {
			if errors.Is(err, ErrCircuitOpen) || ctx.Err() != nil {
				return retry.Permanent(err)
			}
			return err
		}
		if status != http.StatusOK {
			serr := newStatusError(http.MethodGet, path, status, body)
			if !serr.Temporary() {
				return retry.Permanent(serr)
			}
			return serr
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return retry.Permanent(fmt.Errorf("api: failed to parse %s response: %w", path, err))
		}
		return nil
	})
}

// send performs a mutation exactly once. It succeeds when the status is one
// of accept and decodes the body into out when out is non-nil.
func (c *Client) send(ctx context.Context, r request, out any, accept ...int) error {
	status, body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	for _, code := range accept {
		if status != code {
			continue
		}
		if out == nil || len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("api: failed to parse %s response: %w", r.path, err)
		}
		return nil
	}
	return newStatusError(r.method, r.path, status, body)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload, out any, accept ...int) error {
	r, err := jsonRequest(method, path, payload)
	if err != nil {
		return err
	}
	return c.send(ctx, r, out, accept...)
}

// Ping checks that the backend answers.
func (c *Client) Ping(ctx context.Context) error {
	status, body, err := c.do(ctx, request{method: http.MethodGet, path: PathHealth})
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return newStatusError(http.MethodGet, PathHealth, status, body)
	}
	return nil
}
