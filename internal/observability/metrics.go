package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// resolution service.
type Metrics struct {
	ResolveRequests *prometheus.CounterVec // labels: outcome={success,empty_query,no_results,all_failed}
	CacheLookups    *prometheus.CounterVec // labels: result={hit,miss}
	CacheSize       prometheus.Gauge

	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome={success,empty,timeout,unavailable,auth,malformed}
	ProviderDuration *prometheus.HistogramVec // labels: provider
	ProvidersEnabled prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ResolveRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "place_resolver",
			Name:      "resolve_requests_total",
			Help:      "Resolution requests by outcome.",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "place_resolver",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
		CacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "place_resolver",
			Name:      "cache_size",
			Help:      "Live entries in the result cache.",
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "place_resolver",
			Name:      "provider_requests_total",
			Help:      "Provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "place_resolver",
			Name:      "provider_request_duration_seconds",
			Help:      "Provider call duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		ProvidersEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "place_resolver",
			Name:      "providers_enabled",
			Help:      "Number of geocoding providers enabled in the chain.",
		}),
	}

	prometheus.MustRegister(
		m.ResolveRequests,
		m.CacheLookups,
		m.CacheSize,
		m.ProviderRequests,
		m.ProviderDuration,
		m.ProvidersEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ResolveRequests:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "place_resolver", Name: "resolve_requests_total"}, []string{"outcome"}),
		CacheLookups:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "place_resolver", Name: "cache_lookups_total"}, []string{"result"}),
		CacheSize:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "place_resolver", Name: "cache_size"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "place_resolver", Name: "provider_requests_total"}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "place_resolver", Name: "provider_request_duration_seconds"}, []string{"provider"}),
		ProvidersEnabled: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "place_resolver", Name: "providers_enabled"}),
	}
}
