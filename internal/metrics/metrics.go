// Package metrics collects Prometheus instrumentation for the pieces of the
// runtime an operator actually needs to watch in production: how many
// instances run, how much gas they burn, how often the module cache pays
// for a real compile, and how often the condom middleware rejects a module
// before it ever runs.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups the runtime's collectors behind one struct so callers
// register (and can swap) them as a unit instead of reaching for package-
// level globals.
type Registry struct {
	InstancesTotal      *prometheus.CounterVec
	GasConsumed         prometheus.Histogram
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	CondomRejectedTotal *prometheus.CounterVec
}

// NewRegistry builds a Registry with unregistered collectors; call
// MustRegister against a prometheus.Registerer to expose them.
func NewRegistry() *Registry {
	return &Registry{
		InstancesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sc_runtime",
			Name:      "instances_total",
			Help:      "Number of WASM instances executed, labeled by outcome.",
		}, []string{"outcome"}),
		GasConsumed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sc_runtime",
			Name:      "gas_consumed",
			Help:      "Gas consumed per execution (init cost + runtime cost).",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 12),
		}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sc_runtime",
			Name:      "module_cache_hits_total",
			Help:      "Module cache lookups served from the LRU without recompiling.",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sc_runtime",
			Name:      "module_cache_misses_total",
			Help:      "Module cache lookups that required a fresh compile.",
		}),
		CondomRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sc_runtime",
			Name:      "condom_rejected_total",
			Help:      "Modules rejected by the structural-limit middleware, labeled by the limit category that tripped.",
		}, []string{"category"}),
	}
}

// MustRegister registers every collector against reg. Panics on duplicate
// registration, matching prometheus.MustRegister's own contract.
func (r *Registry) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		r.InstancesTotal,
		r.GasConsumed,
		r.CacheHitsTotal,
		r.CacheMissesTotal,
		r.CondomRejectedTotal,
	)
}
