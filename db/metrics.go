package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueryDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bridge",
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Buckets:   []float64{0.005, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2},
	}, []string{"query"})

	Transactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "db",
		Name:      "transactions_total",
		Help:      "Store transactions by outcome: committed, rolled_back or conflict.",
	}, []string{"status"})
)

func ObserveDuration(query string) func() time.Duration {
	return prometheus.NewTimer(QueryDurations.WithLabelValues(query)).ObserveDuration
}

func observeTx(err error) {
	switch {
	case err == nil:
		Transactions.WithLabelValues("committed").Inc()
	case IsSerializationFailure(err):
		Transactions.WithLabelValues("conflict").Inc()
	default:
		Transactions.WithLabelValues("rolled_back").Inc()
	}
}
