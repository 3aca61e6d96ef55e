package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsRegisters(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RequestsTotal.WithLabelValues("GET", "/api/v1/weather", "200").Inc()
	m.UpstreamErrors.WithLabelValues("openweather").Inc()
	m.RateLimitRejects.Inc()

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/v1/weather", "200")); got != 1 {
		t.Errorf("requests_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RateLimitRejects); got != 1 {
		t.Errorf("ratelimit_rejects_total = %v, want 1", got)
	}
}

func TestObserveCacheResult(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveCacheResult("weather", false, false) // miss
	m.ObserveCacheResult("weather", true, false)  // fresh
	m.ObserveCacheResult("weather", true, true)   // stale
	m.ObserveCacheResult("weather", true, false)  // fresh

	cases := []struct {
		result string
		want   float64
	}{
		{"miss", 1},
		{"fresh", 2},
		{"stale", 1},
	}
	for _, tc := range cases {
		if got := testutil.ToFloat64(m.CacheResults.WithLabelValues("weather", tc.result)); got != tc.want {
			t.Errorf("cache_results_total{result=%q} = %v, want %v", tc.result, got, tc.want)
		}
	}
}

func TestObserveUpstream(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveUpstream("agmarknet", 120*time.Millisecond, nil)
	m.ObserveUpstream("agmarknet", 5*time.Second, errors.New("timeout"))

	if got := testutil.ToFloat64(m.UpstreamErrors.WithLabelValues("agmarknet")); got != 1 {
		t.Errorf("upstream_errors_total = %v, want 1", got)
	}
}
