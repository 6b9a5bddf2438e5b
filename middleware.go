package texcache

import (
	"context"
	"fmt"

	"github.com/Keksclan/texcache/breaker"
	"github.com/Keksclan/texcache/ratelimit"
	"github.com/Keksclan/texcache/retry"
	"github.com/Keksclan/texcache/tex"
)

// Middleware priorities. Lower values wrap outermost, so every retry attempt
// passes the circuit breaker and waits for its own rate-limit token, and a
// panic becomes an error before the retry policy sees it.
const (
	orderRetry     = 100
	orderBreaker   = 150
	orderRateLimit = 200
	orderUser      = 300
	orderRecovery  = 400
)

// Recovery returns a middleware that turns a panic inside the renderer into
// an error wrapping [ErrRendererPanic].
func Recovery() Middleware {
	return func(next tex.Renderer) tex.Renderer {
		return tex.RendererFunc(func(ctx context.Context, formula string, conv tex.ConversionOptions, input tex.InputOptions) (out tex.Output, err error) {
			defer func() {
				if r := recover(); r != nil {
					out = tex.Output{}
					err = fmt.Errorf("%w: %v", ErrRendererPanic, r)
				}
			}()
			return next.Render(ctx, formula, conv, input)
		})
	}
}

// RateLimit returns a middleware that waits for a token from l before every
// render call.
func RateLimit(l *ratelimit.Limiter) Middleware {
	return func(next tex.Renderer) tex.Renderer {
		return tex.RendererFunc(func(ctx context.Context, formula string, conv tex.ConversionOptions, input tex.InputOptions) (tex.Output, error) {
			if err := l.Wait(ctx); err != nil {
				return tex.Output{}, fmt.Errorf("%w: %w", ErrRateLimited, err)
			}
			return next.Render(ctx, formula, conv, input)
		})
	}
}

// Retry returns a middleware that retries failed render calls according to
// cfg.
func Retry(cfg retry.Config) Middleware {
	return func(next tex.Renderer) tex.Renderer {
		return tex.RendererFunc(func(ctx context.Context, formula string, conv tex.ConversionOptions, input tex.InputOptions) (tex.Output, error) {
			return retry.Do(ctx, cfg, func(ctx context.Context) (tex.Output, error) {
				return next.Render(ctx, formula, conv, input)
			})
		})
	}
}

// CircuitBreaker returns a middleware that rejects render calls with an error
// wrapping [breaker.ErrOpen] while b is open.
func CircuitBreaker(b *breaker.Breaker) Middleware {
	return func(next tex.Renderer) tex.Renderer {
		return tex.RendererFunc(func(ctx context.Context, formula string, conv tex.ConversionOptions, input tex.InputOptions) (tex.Output, error) {
			return breaker.Do(ctx, b, func(ctx context.Context) (tex.Output, error) {
				return next.Render(ctx, formula, conv, input)
			})
		})
	}
}
