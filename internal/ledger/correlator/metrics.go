package correlator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts correlation outcomes.
type Metrics struct {
	Matched  prometheus.Counter
	TimedOut prometheus.Counter
}

// NewMetrics creates and registers the correlator metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Matched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "issuer_agent_correlator_matched_total",
			Help: "Await calls resolved by a matching ledger event",
		}),
		TimedOut: promauto.NewCounter(prometheus.CounterOpts{
			Name: "issuer_agent_correlator_timeout_total",
			Help: "Await calls that hit the deadline before a matching event",
		}),
	}
}
