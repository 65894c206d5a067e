// Package metrics exposes the gateway's operational counters via
// github.com/prometheus/client_golang.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the gateway registers. A zero value
// is not usable; build one with New.
type Metrics struct {
	SubmissionsTotal     *prometheus.CounterVec
	PostingAttemptsTotal *prometheus.CounterVec
	QueueDepth           *prometheus.GaugeVec
	StatusLookupsTotal   *prometheus.CounterVec
}

// New creates and registers a Metrics bundle against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txgate",
			Name:      "submissions_total",
			Help:      "Total number of transaction submission attempts by outcome.",
		}, []string{"outcome"}),
		PostingAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txgate",
			Name:      "posting_attempts_total",
			Help:      "Total number of posting protocol runs by result.",
		}, []string{"result"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "txgate",
			Name:      "queue_jobs",
			Help:      "Number of queue jobs currently in each status.",
		}, []string{"status"}),
		StatusLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txgate",
			Name:      "status_lookups_total",
			Help:      "Total number of GetStatus calls by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.SubmissionsTotal, m.PostingAttemptsTotal, m.QueueDepth, m.StatusLookupsTotal)
	return m
}

// Outcome labels used across SubmissionsTotal and StatusLookupsTotal.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
	OutcomeFound     = "found"
	OutcomeNotFound  = "not_found"
	OutcomeOrphaned  = "orphaned"
)

// Posting-protocol result labels used with PostingAttemptsTotal.
const (
	ResultCompleted = "completed"
	ResultRetried   = "retried"
	ResultFailed    = "failed"
)
