package texcache

import "errors"

// Sentinel errors returned by the engine. Construction failures of the
// rendered value are reported with the svg package's errors.
var (
	ErrNoRenderer    = errors.New("texcache: renderer is nil")
	ErrNoRasterizer  = errors.New("texcache: no rasterizer configured")
	ErrRendererPanic = errors.New("texcache: renderer panicked")
	ErrRateLimited   = errors.New("texcache: render rate limit wait failed")
)
