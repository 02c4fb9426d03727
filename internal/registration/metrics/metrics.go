package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the submission pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	DraftsCreated    prometheus.Counter
	StageSubmissions *prometheus.CounterVec
	Transitions      *prometheus.CounterVec
	Autofill         *prometheus.CounterVec
	Registrations    prometheus.Counter
	PersistFailures  prometheus.Counter
	SubmitDuration   prometheus.Histogram
}

// New creates and registers registration metrics on the default registry.
// Call once per process.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers registration metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DraftsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "udyam_registration_drafts_created_total",
			Help: "Registration drafts started",
		}),
		StageSubmissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "udyam_registration_stage_submissions_total",
			Help: "Stage submissions by stage (identity, enterprise) and result (accepted, rejected, failed)",
		}, []string{"stage", "result"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "udyam_registration_transitions_total",
			Help: "Draft stage transitions",
		}, []string{"from", "to"}),
		Autofill: f.NewCounterVec(prometheus.CounterOpts{
			Name: "udyam_registration_autofill_total",
			Help: "Postal code auto-fill attempts by resolution outcome",
		}, []string{"outcome"}),
		Registrations: f.NewCounter(prometheus.CounterOpts{
			Name: "udyam_registrations_completed_total",
			Help: "Registrations persisted",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "udyam_registration_persist_failures_total",
			Help: "Registrations that could not be saved",
		}),
		SubmitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "udyam_registration_submit_duration_seconds",
			Help:    "Stage 2 submission latency including postal code resolution",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
	}
}

func (m *Metrics) IncDraftsCreated() {
	if m == nil {
		return
	}
	m.DraftsCreated.Inc()
}

func (m *Metrics) RecordStage(stage, result string) {
	if m == nil {
		return
	}
	m.StageSubmissions.WithLabelValues(stage, result).Inc()
}

func (m *Metrics) RecordTransition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) RecordAutofill(outcome string) {
	if m == nil {
		return
	}
	m.Autofill.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRegistrations() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) ObserveSubmit(seconds float64) {
	if m == nil {
		return
	}
	m.SubmitDuration.Observe(seconds)
}
