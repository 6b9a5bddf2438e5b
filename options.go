package texcache

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Keksclan/texcache/breaker"
	"github.com/Keksclan/texcache/cache"
	"github.com/Keksclan/texcache/ratelimit"
	"github.com/Keksclan/texcache/retry"
	"github.com/Keksclan/texcache/tex"
	"github.com/Keksclan/texcache/tracing"
)

// Option configures an Engine.
type Option func(*config)

// WithStore makes the engine use s instead of [cache.Shared].
func WithStore(s *cache.Store) Option {
	return func(c *config) {
		c.store = s
	}
}

// WithRasterizer enables [Engine.Image].
func WithRasterizer(r tex.Rasterizer) Option {
	return func(c *config) {
		c.rasterizer = r
	}
}

// WithMiddleware appends a renderer middleware. User middlewares run inside
// retries and rate limiting, in the order they were added.
func WithMiddleware(mw Middleware) Option {
	return func(c *config) {
		c.middlewares.Add(orderUser, mw)
	}
}

// WithRecovery converts renderer panics into errors instead of crashing the
// process.
func WithRecovery() Option {
	return func(c *config) {
		c.middlewares.Add(orderRecovery, Recovery())
	}
}

// WithRateLimit throttles render calls to rps per second with the given
// burst. Cache hits are never throttled.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *config) {
		c.middlewares.Add(orderRateLimit, RateLimit(ratelimit.NewLimiter(rps, burst)))
	}
}

// WithRetry retries failed render calls according to cfg.
func WithRetry(cfg retry.Config) Option {
	return func(c *config) {
		c.middlewares.Add(orderRetry, Retry(cfg))
	}
}

// WithCircuitBreaker stops calling the renderer after repeated failures. With
// [DefaultRetryConfig] an open breaker ends the retry loop early.
func WithCircuitBreaker(cfg breaker.Config) Option {
	return func(c *config) {
		c.middlewares.Add(orderBreaker, CircuitBreaker(breaker.New(cfg)))
	}
}

// WithOpenTelemetry enables spans for every SVG and image request.
func WithOpenTelemetry(cfg tracing.Config) Option {
	return func(c *config) {
		c.tracing = &cfg
	}
}

// WithLogger sets the engine's logger. If nil, a discard logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithRegisterer registers the engine's Prometheus collectors with reg
// instead of [prometheus.DefaultRegisterer]. If reg is also a
// [prometheus.Gatherer], [Engine.MetricsHandler] serves it.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = reg
	}
}
