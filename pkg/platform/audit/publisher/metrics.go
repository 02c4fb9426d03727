package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit publishing.
type Metrics struct {
	Emitted         *prometheus.CounterVec
	Dropped         prometheus.Counter
	PersistFailures prometheus.Counter
}

// NewMetrics registers audit publisher metrics with the default registry.
// Call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		Emitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "udyam_audit_events_emitted_total",
			Help: "Total number of audit events accepted for publishing",
		}, []string{"category"}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "udyam_audit_events_dropped_total",
			Help: "Total number of audit events dropped because the buffer was full",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "udyam_audit_persist_failures_total",
			Help: "Total number of audit events the store failed to persist",
		}),
	}
}

func (m *Metrics) IncEmitted(category string) {
	if m == nil {
		return
	}
	m.Emitted.WithLabelValues(category).Inc()
}

func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.Dropped.Inc()
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}
