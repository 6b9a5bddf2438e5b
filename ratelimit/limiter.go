// Package ratelimit provides a token-bucket limiter backed by
// golang.org/x/time/rate that throttles calls into the external renderer.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket limiter that gates render calls.
type Limiter struct {
	lim *rate.Limiter
}

// NewLimiter creates a Limiter that permits rps renders per second with the
// given burst size.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Allow reports whether a single render may proceed right now.
func (l *Limiter) Allow() bool {
	return l.lim.Allow()
}

// Wait blocks until a render may proceed or ctx is done. It returns an error
// immediately when the wait would outlast ctx's deadline.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.lim.Wait(ctx)
}
