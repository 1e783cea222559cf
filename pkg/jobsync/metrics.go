package jobsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll result labels.
const (
	pollResultOK        = "ok"
	pollResultTransient = "transient_error"
	pollResultStale     = "stale_discarded"
)

// Edit outcome labels.
const (
	editOutcomeConfirmed  = "confirmed"
	editOutcomeRolledBack = "rolled_back"
	editOutcomeRejected   = "rejected"
)

// Metrics holds the Prometheus metrics of the sync engine. A single Metrics
// value is shared by all Pollers and Mutators of one dashboard instance.
// All engine methods tolerate a nil *Metrics.
type Metrics struct {
	PollsTotal             *prometheus.CounterVec
	PollersActive          prometheus.Gauge
	ReconcileAttemptsTotal prometheus.Counter
	ReconcileGaveUpTotal   prometheus.Counter
	EditsTotal             *prometheus.CounterVec
}

// NewMetrics creates engine metrics registered on reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid cross-test collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		PollsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetsync_polls_total",
				Help: "Completed poll cycles by result",
			},
			[]string{"result"},
		),
		PollersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "meetsync_pollers_active",
				Help: "Pollers currently scheduled or fetching",
			},
		),
		ReconcileAttemptsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "meetsync_reconcile_attempts_total",
				Help: "Bounded follow-up polls waiting for a dependent artifact",
			},
		),
		ReconcileGaveUpTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "meetsync_reconcile_gave_up_total",
				Help: "Reconciliation tails exhausted without the artifact appearing",
			},
		),
		EditsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meetsync_edits_total",
				Help: "Optimistic edits by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) observePoll(result string) {
	if m == nil {
		return
	}
	m.PollsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) pollerStarted() {
	if m == nil {
		return
	}
	m.PollersActive.Inc()
}

func (m *Metrics) pollerStopped() {
	if m == nil {
		return
	}
	m.PollersActive.Dec()
}

func (m *Metrics) observeReconcileAttempt() {
	if m == nil {
		return
	}
	m.ReconcileAttemptsTotal.Inc()
}

func (m *Metrics) observeReconcileGaveUp() {
	if m == nil {
		return
	}
	m.ReconcileGaveUpTotal.Inc()
}

func (m *Metrics) observeEdit(outcome string) {
	if m == nil {
		return
	}
	m.EditsTotal.WithLabelValues(outcome).Inc()
}
