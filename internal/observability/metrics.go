package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "foryou"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	RecommendationsServed prometheus.Counter
	RecommendationSize    prometheus.Histogram
	Reseeds               prometheus.Counter
	ImpressionsPublished  *prometheus.CounterVec // labels: outcome={success,error}

	// Session store metrics.
	StoreErrors *prometheus.CounterVec // labels: op={get,set,remove}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,not_found,error,canceled}
	GeocodeCache       *prometheus.CounterVec // labels: tier={memory,session}, result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeFallbacks   prometheus.Counter
	GeocodeEnabled     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		RecommendationsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_served_total",
			Help:      "Total For You lists served.",
		}),
		RecommendationSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_size",
			Help:      "Number of items per served list.",
			Buckets:   []float64{0, 1, 2, 4, 6, 8, 12, 16},
		}),
		Reseeds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reseeds_total",
			Help:      "Explicit reseeds (refresh requests).",
		}),
		ImpressionsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "impressions_published_total",
			Help:      "Impression events handed to the sink by outcome.",
		}, []string{"outcome"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Session store failures by operation.",
		}, []string{"op"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding provider requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by tier and result.",
		}, []string{"tier", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_fallbacks_total",
			Help:      "Times the anchor fallback coordinate was substituted.",
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when a geocoding API key is configured, 0 otherwise.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecommendationsServed,
		m.RecommendationSize,
		m.Reseeds,
		m.ImpressionsPublished,
		m.StoreErrors,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeFallbacks,
		m.GeocodeEnabled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
