// internal/relationship/metrics.go

package relationship

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	interestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relationship_interests_total",
			Help: "Total number of interest transitions",
		},
		[]string{"action"},
	)

	connectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relationship_connections_total",
			Help: "Total number of connections established",
		},
	)

	blocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relationship_blocks_total",
			Help: "Total number of block and unblock actions",
		},
		[]string{"action"},
	)

	txRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relationship_tx_retries_total",
			Help: "Total number of transaction retries after transient failures",
		},
	)
)

func recordInterest(action string) {
	interestsTotal.WithLabelValues(action).Inc()
}

func recordConnection() {
	connectionsTotal.Inc()
}

func recordBlock(action string) {
	blocksTotal.WithLabelValues(action).Inc()
}

func recordTxRetry() {
	txRetriesTotal.Inc()
}
