package cache

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type config struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
}

// Option configures a Store.
type Option func(*config)

// WithLogger sets the logger used for debug output about fallback
// fingerprints and rejected writes. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRegisterer registers the store's Prometheus collectors with reg. By
// default the collectors are not registered.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = reg
	}
}
