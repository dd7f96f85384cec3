// Package lookup queries the external coverage service for a single key and
// classifies the answer.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"coveragesync/internal/models"
	"coveragesync/internal/retry"
)

// Synthetic statuses recorded when retries run out without a usable HTTP status.
const (
	StatusTimeout        = http.StatusRequestTimeout
	StatusTransportError = http.StatusInternalServerError
)

const (
	defaultRegion  = "US"
	defaultTimeout = 8 * time.Second
	maxBodyBytes   = 1 << 20
	userAgent      = "coveragesync/1.0"
)

// ErrMalformedBody is returned when a 200 response cannot be decoded.
var ErrMalformedBody = errors.New("malformed response body")

// Waiter blocks until the next outbound call is allowed.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Observer is notified after every HTTP attempt. status is 0 when no response arrived.
type Observer interface {
	ObserveAttempt(status int, err error, elapsed time.Duration)
}

// Config holds the coverage API settings.
type Config struct {
	BaseURL    string
	APIKey     string
	Region     string
	Timeout    time.Duration
	StatusOnly bool // any 200 counts as covered, the body is not decoded
}

// Outcome is the classified result of looking up one key, retries included.
type Outcome struct {
	Key         string
	Kind        string // models.Outcome* constant
	IsValid     bool
	HasCoverage bool
	Status      *int
	Items       int
	Attempts    int
	Canceled    bool // ctx ended first; nothing should be recorded
	Err         error
}

// Record converts the outcome into a cache row checked at the given time.
func (o Outcome) Record(checkedAt time.Time) *models.CoverageRecord {
	return &models.CoverageRecord{
		Key:                o.Key,
		IsValid:            o.IsValid,
		HasCoverage:        o.IsValid && o.HasCoverage,
		LastCheckedAt:      checkedAt,
		LastAPICheckAt:     checkedAt,
		LastResponseStatus: o.Status,
	}
}

// Failed reports whether the key ended as isValid=false.
func (o Outcome) Failed() bool {
	return !o.Canceled && !o.IsValid
}

// StatusError is a non-success HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// retryableError marks failures worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// attempt is what a single HTTP call produced.
type attempt struct {
	status  int
	items   int
	covered bool
	timeout bool
}

// Client issues coverage lookups.
type Client struct {
	cfg      Config
	http     *http.Client
	limiter  Waiter
	retrier  *retry.Controller
	observer Observer
	logger   *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithObserver registers an attempt observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a lookup client. Every HTTP attempt, retries included,
// waits on limiter first.
func NewClient(cfg Config, limiter Waiter, retrier *retry.Controller, logger *zap.Logger, opts ...Option) *Client {
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{},
		limiter: limiter,
		retrier: retrier,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup resolves one key. Failures come back as data in the Outcome; it never panics
// and returns no error.
func (c *Client) Lookup(ctx context.Context, key string) Outcome {
	res := retry.Do(ctx, c.retrier, func(ctx context.Context, n int) (attempt, error) {
		return c.do(ctx, key)
	}, classify, zap.String("key", key))

	out := Outcome{Key: key, Attempts: res.Attempts, Err: res.Err}
	last := res.Value

	switch res.Kind {
	case retry.OK:
		out.IsValid = true
		out.HasCoverage = last.covered
		out.Items = last.items
		out.Status = intPtr(last.status)
		out.Kind = models.OutcomeNotCovered
		if last.covered {
			out.Kind = models.OutcomeCovered
		}
	case retry.Canceled:
		out.Canceled = true
	case retry.Retryable:
		out.Kind = models.OutcomeRetryable
		out.Status = intPtr(exhaustedStatus(last))
	default:
		out.Kind = models.OutcomeFatal
		status := last.status
		if status == 0 {
			status = StatusTransportError
		}
		out.Status = intPtr(status)
	}

	return out
}

func exhaustedStatus(last attempt) int {
	switch {
	case last.timeout:
		return StatusTimeout
	case last.status != 0:
		return last.status
	default:
		return StatusTransportError
	}
}

// do performs a single HTTP attempt.
func (c *Client) do(ctx context.Context, key string) (attempt, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return attempt{}, err
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.endpoint(key), nil)
	if err != nil {
		return attempt{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(0, err, start)
		if ctx.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return attempt{timeout: true}, &retryableError{err: fmt.Errorf("request timed out after %s", c.cfg.Timeout)}
		}
		return attempt{}, &retryableError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() {
		// Drain so the connection goes back to the pool between retries.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
	}()

	a, err := c.classifyResponse(resp)
	if err != nil && ctx.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		a.timeout = true
		err = &retryableError{err: fmt.Errorf("reading response timed out: %w", err)}
	}
	c.observe(resp.StatusCode, err, start)
	return a, err
}

func (c *Client) classifyResponse(resp *http.Response) (attempt, error) {
	a := attempt{status: resp.StatusCode}

	switch {
	case resp.StatusCode == http.StatusOK:
		if c.cfg.StatusOnly {
			a.covered = true
			return a, nil
		}
		var body struct {
			Items []json.RawMessage `json:"items"`
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return a, fmt.Errorf("failed to read response: %w", err)
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return a, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		a.items = len(body.Items)
		a.covered = a.items > 0
		return a, nil

	case resp.StatusCode == http.StatusNotFound:
		// Definitive "no coverage" answer.
		return a, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.Warn("rate limited by coverage API", zap.String("retry_after", resp.Header.Get("Retry-After")))
		return a, &retryableError{err: &StatusError{Code: resp.StatusCode}}

	case resp.StatusCode >= 500:
		return a, &retryableError{err: &StatusError{Code: resp.StatusCode}}

	default:
		return a, &StatusError{Code: resp.StatusCode}
	}
}

func (c *Client) endpoint(key string) string {
	q := url.Values{}
	q.Set("key", key)
	q.Set("region", c.cfg.Region)
	return c.cfg.BaseURL + "/v1/coverage?" + q.Encode()
}

func (c *Client) observe(status int, err error, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveAttempt(status, err, time.Since(start))
	}
}

func classify(err error) retry.Kind {
	var re *retryableError
	if errors.As(err, &re) {
		return retry.Retryable
	}
	return retry.Fatal
}

func intPtr(v int) *int { return &v }
