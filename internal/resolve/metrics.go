package resolve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirrors the redis hit/miss counters in prometheus so dashboards do
// not need to scrape redis.
type Metrics struct {
	Hits   prometheus.Counter
	Misses prometheus.Counter
}

// NewMetrics creates and registers the resolver metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Hits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "issuer_agent_cache_hits_total",
			Help: "Resolve calls served from the cache tier",
		}),
		Misses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "issuer_agent_cache_misses_total",
			Help: "Resolve calls that fell through to an upstream source",
		}),
	}
}
