package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for register synchronization. The local
// save failure counter is separate so operators can alert on untracked
// external state specifically.
type Metrics struct {
	SyncOutcomes      *prometheus.CounterVec
	LocalSaveFailures prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SyncOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "larch_register_sync_outcomes_total",
			Help: "Register synchronization attempts by operation and outcome",
		}, []string{"operation", "outcome"}),
		LocalSaveFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "larch_register_local_save_failures_total",
			Help: "External register updated but local persistence failed; requires manual reconciliation",
		}),
	}
}

// ObserveOutcome records one synchronization attempt.
func (m *Metrics) ObserveOutcome(operation, outcome string) {
	m.SyncOutcomes.WithLabelValues(operation, outcome).Inc()
}

// IncrementLocalSaveFailure records an untracked-external-state incident.
func (m *Metrics) IncrementLocalSaveFailure() {
	m.LocalSaveFailures.Inc()
}
