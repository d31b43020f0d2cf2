package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ledger"

var (
	// CacheLookups counts ledger cache lookups by cache and result (hit, miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Ledger cache lookups by cache and result.",
	}, []string{"cache", "result"})

	// StoreCalls counts range store calls by operation and outcome.
	StoreCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_calls_total",
		Help:      "Range store calls by operation and outcome.",
	}, []string{"op", "outcome"})

	// StoreLatency observes range store call latency by operation.
	StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_call_duration_seconds",
		Help:      "Range store call latency.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"op"})

	// Transitions counts transition requests by action and outcome.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Transition requests by action and outcome.",
	}, []string{"action", "outcome"})
)

// Outcome renders an error as a metric label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
