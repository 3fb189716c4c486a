package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-level Prometheus metrics. Feature packages register
// their own metrics next to the code that drives them; this covers what cuts
// across features.
type Metrics struct {
	OperationsSubmitted *prometheus.CounterVec
	OperationsConfirmed *prometheus.CounterVec
	OperationsFailed    *prometheus.CounterVec
}

// New creates the process-level metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates the metrics on an explicit registry. Tests use this to
// avoid duplicate registration across cases.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "issuer_agent_operations_submitted_total",
			Help: "Ledger operations handed off to the chain, by operation kind",
		}, []string{"kind"}),
		OperationsConfirmed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "issuer_agent_operations_confirmed_total",
			Help: "Ledger operations confirmed on chain, by operation kind",
		}, []string{"kind"}),
		OperationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "issuer_agent_operations_failed_total",
			Help: "Ledger operations that failed before persistence, by operation kind",
		}, []string{"kind"}),
	}
}
