package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the automatic withdrawal sweep.
type Metrics struct {
	Applications *prometheus.CounterVec
	Runs         prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Applications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "larch_sweep_applications_total",
			Help: "Applications examined by the withdrawal sweep, by result",
		}, []string{"result"}),
		Runs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "larch_sweep_runs_total",
			Help: "Completed sweep runs",
		}),
	}
}

// ObserveApplication records one examined application.
func (m *Metrics) ObserveApplication(result string) {
	m.Applications.WithLabelValues(result).Inc()
}

// ObserveRun records one completed sweep run.
func (m *Metrics) ObserveRun() {
	m.Runs.Inc()
}
