package texcache

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Keksclan/texcache/cache"
	"github.com/Keksclan/texcache/internal/core"
	"github.com/Keksclan/texcache/tex"
	"github.com/Keksclan/texcache/tracing"
)

// config holds the internal configuration assembled via functional options.
type config struct {
	store       *cache.Store
	rasterizer  tex.Rasterizer
	middlewares core.OrderedBuilder[Middleware]
	tracing     *tracing.Config
	logger      *slog.Logger
	registerer  prometheus.Registerer
}
