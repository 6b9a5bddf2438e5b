package texcache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Keksclan/texcache/internal/core"
)

// Stages reported by the engine's metrics.
const (
	stageRender    = "render"
	stageParse     = "parse"
	stageRasterize = "rasterize"
)

type metrics struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		duration: core.Register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "texcache",
			Name:      "render_duration_seconds",
			Help:      "Time spent in the external renderer and rasterizer on cache misses.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"stage"})),
		errors: core.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "texcache",
			Name:      "render_errors_total",
			Help:      "Failed renders, rasterizations and SVG constructions; none of them are cached.",
		}, []string{"stage"})),
	}
}

func (m *metrics) observe(stage string, start time.Time, err error) {
	m.duration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		m.errors.WithLabelValues(stage).Inc()
	}
}
