// Package core holds wiring shared by the public packages that must not be
// part of their API surface.
package core
