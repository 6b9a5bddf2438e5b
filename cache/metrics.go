package cache

import (
	"github.com/dgraph-io/ristretto/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Keksclan/texcache/internal/core"
)

type metrics struct {
	reg       prometheus.Registerer
	requests  *prometheus.CounterVec
	writes    *prometheus.CounterVec
	rejects   *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		reg: reg,
		requests: core.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "texcache",
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by tier and result (hit or miss).",
		}, []string{"tier", "result"})),
		writes: core.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "texcache",
			Subsystem: "cache",
			Name:      "writes_total",
			Help:      "Values stored by tier.",
		}, []string{"tier"})),
		rejects: core.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "texcache",
			Subsystem: "cache",
			Name:      "rejects_total",
			Help:      "Writes turned down by the tier's admission policy.",
		}, []string{"tier"})),
		fallbacks: core.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "texcache",
			Subsystem: "key",
			Name:      "fallbacks_total",
			Help:      "Fingerprints derived from the fallback field after serialization failed.",
		}, []string{"tier"})),
	}
}

// observe exports ristretto's own counters for a tier.
func (m *metrics) observe(tier string, rm *ristretto.Metrics) {
	labels := prometheus.Labels{"tier": tier}
	core.Register(m.reg, prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   "texcache",
		Subsystem:   "cache",
		Name:        "evictions_total",
		Help:        "Entries evicted to satisfy the tier's capacity.",
		ConstLabels: labels,
	}, func() float64 { return float64(rm.KeysEvicted()) }))
	core.Register(m.reg, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "texcache",
		Subsystem:   "cache",
		Name:        "cost",
		Help:        "Cost currently held by the tier (bytes).",
		ConstLabels: labels,
	}, func() float64 { return float64(rm.CostAdded()) - float64(rm.CostEvicted()) }))
}
