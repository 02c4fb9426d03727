package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for postal code resolution. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	CacheLookups     *prometheus.CounterVec
	CacheWrites      *prometheus.CounterVec
	UpstreamCalls    *prometheus.CounterVec
	UpstreamDuration prometheus.Histogram
	Resolutions      *prometheus.CounterVec
	ResolveDuration  prometheus.Histogram
	BreakerOpen      prometheus.Gauge
}

// New creates and registers location metrics. Call once per process.
func New() *Metrics {
	return &Metrics{
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "udyam_location_cache_lookups_total",
			Help: "Location cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		CacheWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "udyam_location_cache_writes_total",
			Help: "Location cache writes by result (stored, exists, error)",
		}, []string{"result"}),
		UpstreamCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "udyam_location_upstream_calls_total",
			Help: "Upstream postal registry calls by outcome",
		}, []string{"outcome"}),
		UpstreamDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "udyam_location_upstream_duration_seconds",
			Help:    "Upstream postal registry call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "udyam_location_resolutions_total",
			Help: "Postal code resolutions by outcome and source",
		}, []string{"outcome", "source"}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "udyam_location_resolve_duration_seconds",
			Help:    "End-to-end postal code resolution latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		BreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "udyam_location_upstream_breaker_open",
			Help: "Upstream circuit breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordCacheWrite(result string) {
	if m == nil {
		return
	}
	m.CacheWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordUpstreamCall(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.UpstreamCalls.WithLabelValues(outcome).Inc()
	m.UpstreamDuration.Observe(seconds)
}

func (m *Metrics) RecordResolution(outcome, source string, seconds float64) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(outcome, source).Inc()
	m.ResolveDuration.Observe(seconds)
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
	} else {
		m.BreakerOpen.Set(0)
	}
}
