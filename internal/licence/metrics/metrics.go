package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the transition orchestrator.
type Metrics struct {
	Transitions *prometheus.CounterVec
	SubFailures *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "larch_transitions_total",
			Help: "Transition requests by kind and result",
		}, []string{"kind", "result"}),
		SubFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "larch_transition_sub_failures_total",
			Help: "Non-blocking failures recorded on committed transitions, by kind",
		}, []string{"kind"}),
	}
}

// ObserveTransition records one transition request.
func (m *Metrics) ObserveTransition(kind, result string) {
	m.Transitions.WithLabelValues(kind, result).Inc()
}

// ObserveSubFailure records one non-blocking failure.
func (m *Metrics) ObserveSubFailure(kind string) {
	m.SubFailures.WithLabelValues(kind).Inc()
}
