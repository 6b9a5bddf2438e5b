package texcache

import (
	"errors"
	"time"

	"github.com/Keksclan/texcache/breaker"
	"github.com/Keksclan/texcache/retry"
)

// DefaultRetryConfig retries render errors twice with a short back-off.
// Errors from an open circuit breaker are not retried.
func DefaultRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts: 3,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    200 * time.Millisecond,
		Jitter:      0.2,
		Retryable:   Transient,
	}
}

// Transient is a retry predicate that accepts every error except
// [breaker.ErrOpen].
func Transient(err error) bool {
	return !errors.Is(err, breaker.ErrOpen)
}

// DefaultOptions returns the recommended set of options for production use:
// panic recovery, a circuit breaker and a short retry policy around the
// renderer.
func DefaultOptions() []Option {
	return []Option{
		WithRecovery(),
		WithCircuitBreaker(breaker.DefaultConfig()),
		WithRetry(DefaultRetryConfig()),
	}
}
