// Package texcache memoizes the output of an external LaTeX-to-SVG renderer
// and of an SVG rasterizer. An [Engine] probes the [cache.Store] with a
// fingerprint of the exact inputs, calls the collaborator on a miss, wraps the
// result in an [svg.SVG] and stores it for the next caller.
//
// Calls into the renderer pass through a chain of [Middleware] (recovery,
// rate limiting, retries, user-supplied wrappers) assembled from options.
package texcache

import "github.com/Keksclan/texcache/tex"

// Middleware wraps a renderer, allowing pre/post behavior composition.
type Middleware func(tex.Renderer) tex.Renderer

// Chain composes middlewares from left to right, i.e., Chain(A, B)(r) => A(B(r)).
func Chain(mw ...Middleware) Middleware {
	return func(next tex.Renderer) tex.Renderer {
		for i := len(mw) - 1; i >= 0; i-- {
			next = mw[i](next)
		}
		return next
	}
}

// Wrap applies the middleware chain to a renderer and returns the wrapped renderer.
func Wrap(r tex.Renderer, mw ...Middleware) tex.Renderer {
	if len(mw) == 0 {
		return r
	}
	return Chain(mw...)(r)
}
