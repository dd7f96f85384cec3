// Package retry runs a fallible operation in a bounded loop with capped,
// jittered exponential backoff and reports the outcome as data.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Kind classifies the outcome of an attempt.
type Kind int

const (
	// OK means the operation produced a usable answer.
	OK Kind = iota
	// Retryable means the attempt failed transiently and may be repeated.
	Retryable
	// Fatal means the attempt failed and repeating it will not help.
	Fatal
	// Canceled means the context ended before an answer was reached.
	Canceled
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
	DefaultMultiplier  = 2.0
	DefaultMaxDelay    = 30 * time.Second
	DefaultJitter      = 0.25
)

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts int           // total attempts including the first, at least 1
	BaseDelay   time.Duration // delay before the second attempt
	Multiplier  float64       // growth factor per attempt
	MaxDelay    time.Duration // cap on any single delay, 0 for DefaultMaxDelay
	Jitter      float64       // randomization factor, 0.25 means ±25%
}

// DefaultPolicy returns the standard policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Multiplier:  DefaultMultiplier,
		MaxDelay:    DefaultMaxDelay,
		Jitter:      DefaultJitter,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.Jitter < 0 || p.Jitter >= 1 {
		p.Jitter = DefaultJitter
	}
	return p
}

// Result is the tagged outcome of a Do call.
// Value holds whatever the last attempt returned, even on failure.
type Result[T any] struct {
	Kind      Kind
	Value     T
	Err       error
	Attempts  int
	Exhausted bool // true when every attempt failed with Retryable
}

// Ok reports whether the operation succeeded.
func (r Result[T]) Ok() bool {
	return r.Kind == OK
}

// Operation is one attempt. attempt starts at 1.
type Operation[T any] func(ctx context.Context, attempt int) (T, error)

// Classifier maps an attempt's error to a Kind. It is only called with non-nil errors.
type Classifier func(err error) Kind

// Controller executes operations under a Policy.
type Controller struct {
	policy Policy
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewController creates a retry controller. logger may be nil.
func NewController(policy Policy, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		policy: policy.normalized(),
		logger: logger,
		sleep:  sleepContext,
	}
}

// Policy returns the normalized policy in effect.
func (c *Controller) Policy() Policy {
	return c.policy
}

func (c *Controller) newBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.policy.BaseDelay,
		RandomizationFactor: c.policy.Jitter,
		Multiplier:          c.policy.Multiplier,
		MaxInterval:         c.policy.MaxDelay,
	}
	b.Reset()
	return b
}

// Do runs op until it succeeds, fails fatally, the attempt budget is spent,
// or ctx ends. It never panics on failure and never loops unbounded.
func Do[T any](ctx context.Context, c *Controller, op Operation[T], classify Classifier, fields ...zap.Field) Result[T] {
	b := c.newBackOff()
	var res Result[T]

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			res.Kind, res.Err = Canceled, err
			return res
		}

		res.Attempts = attempt
		value, err := op(ctx, attempt)
		res.Value = value
		if err == nil {
			res.Kind, res.Err = OK, nil
			return res
		}

		res.Err = err
		kind := classify(err)
		if kind == OK {
			kind = Fatal
		}
		if ctx.Err() != nil {
			kind = Canceled
		}
		res.Kind = kind
		if kind != Retryable {
			return res
		}

		if attempt == c.policy.MaxAttempts {
			break
		}

		delay := min(b.NextBackOff(), c.policy.MaxDelay)
		c.logger.Debug("retrying after transient failure", withFields(fields,
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.policy.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)...)

		if err := c.sleep(ctx, delay); err != nil {
			res.Kind, res.Err = Canceled, err
			return res
		}
	}

	res.Exhausted = true
	c.logger.Debug("retries exhausted", withFields(fields,
		zap.Int("attempts", res.Attempts),
		zap.Error(res.Err),
	)...)
	return res
}

func withFields(base []zap.Field, extra ...zap.Field) []zap.Field {
	out := make([]zap.Field, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
