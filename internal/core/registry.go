package core

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Register adds c to reg and returns the collector that is actually
// registered. A nil reg leaves c unregistered. When an equivalent collector
// is already registered the existing one is returned, so several stores or
// engines can share one registry. Any other registration error panics, as
// with [prometheus.MustRegister].
func Register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if reg == nil {
		return c
	}
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(err)
}
