// Package telemetry provides observability primitives for the krishi backend.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the backend.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	ActiveRequests   prometheus.Gauge
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec
	CacheResults     *prometheus.CounterVec
	RateLimitRejects prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "krishi",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "krishi",
			Name:                            "request_duration_seconds",
			Help:                            "HTTP request duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"method", "path"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "krishi",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                       "krishi",
			Name:                            "upstream_duration_seconds",
			Help:                            "Upstream data source call duration in seconds.",
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: 0,
		}, []string{"source"}),

		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "krishi",
			Name:      "upstream_errors_total",
			Help:      "Total upstream data source errors.",
		}, []string{"source"}),

		CacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "krishi",
			Name:      "cache_results_total",
			Help:      "External-data cache outcomes by source: fresh, miss, or stale.",
		}, []string{"source", "result"}),

		RateLimitRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "krishi",
			Name:      "ratelimit_rejects_total",
			Help:      "Total rate limit rejections.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.UpstreamDuration,
		m.UpstreamErrors,
		m.CacheResults,
		m.RateLimitRejects,
	)

	return m
}

// ObserveCacheResult records one gateway fetch outcome.
func (m *Metrics) ObserveCacheResult(source string, cached, stale bool) {
	result := "miss"
	switch {
	case stale:
		result = "stale"
	case cached:
		result = "fresh"
	}
	m.CacheResults.WithLabelValues(source, result).Inc()
}

// ObserveUpstream records one upstream call's duration, counting failures.
func (m *Metrics) ObserveUpstream(source string, d time.Duration, err error) {
	m.UpstreamDuration.WithLabelValues(source).Observe(d.Seconds())
	if err != nil {
		m.UpstreamErrors.WithLabelValues(source).Inc()
	}
}
