package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the access module: decision outcomes,
// admin actions, sweep activity, and the verifier critical path.
type Metrics struct {
	Decisions        *prometheus.CounterVec
	AdminTransitions *prometheus.CounterVec
	GrantsSwept      prometheus.Counter
	VerifyDuration   prometheus.Histogram
	DecideDuration   prometheus.Histogram
}

// New creates a new Metrics instance with all access module metrics registered.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "addongate_access_decisions_total",
			Help: "Total access decisions by outcome",
		}, []string{"outcome"}),
		AdminTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "addongate_admin_transitions_total",
			Help: "Total administrator request transitions by action",
		}, []string{"action"}),
		GrantsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "addongate_grants_swept_total",
			Help: "Total expired temporal grants removed by the sweeper",
		}),
		VerifyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "addongate_verify_duration_seconds",
			Help:    "Duration of identity provider verification calls",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		DecideDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "addongate_decide_duration_seconds",
			Help:    "Duration of full access decisions including verification",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// RecordDecision counts one decision outcome.
func (m *Metrics) RecordDecision(outcome string) {
	m.Decisions.WithLabelValues(outcome).Inc()
}

// RecordAdminTransition counts one administrator action.
func (m *Metrics) RecordAdminTransition(action string) {
	m.AdminTransitions.WithLabelValues(action).Inc()
}

// RecordSwept adds the number of grants removed by one sweep.
func (m *Metrics) RecordSwept(n int) {
	m.GrantsSwept.Add(float64(n))
}

// ObserveVerify records the duration of a provider verification call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveVerify(start time.Time) {
	m.VerifyDuration.Observe(time.Since(start).Seconds())
}

// ObserveDecide records the duration of a full decision.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveDecide(start time.Time) {
	m.DecideDuration.Observe(time.Since(start).Seconds())
}
