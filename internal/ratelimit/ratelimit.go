// Package ratelimit spaces outbound calls to a requests-per-second ceiling.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a fixed minimum interval of 1/R between calls.
// The underlying bucket has a burst of one, so there is no burst tolerance:
// the first call passes immediately and every later call waits its turn.
type Limiter struct {
	limiter *rate.Limiter
	perSec  float64
}

// New creates a limiter for perSecond calls. perSecond <= 0 disables limiting.
func New(perSecond float64) *Limiter {
	if perSecond <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		perSec:  perSecond,
	}
}

// Wait blocks until the next call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

// Interval returns the spacing between calls, 1000/R ms. Zero when unlimited.
func (l *Limiter) Interval() time.Duration {
	if l.perSec <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / l.perSec)
}

// Rate returns the configured ceiling in requests per second.
func (l *Limiter) Rate() float64 {
	return l.perSec
}
