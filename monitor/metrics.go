package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "monitor",
		Name:      "job_runs_total",
		Help:      "Reconciliation job iterations, by outcome.",
	}, []string{"job", "status"})
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bridge",
		Subsystem: "monitor",
		Name:      "job_duration_seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"job"})
	LastSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bridge",
		Subsystem: "monitor",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful reconciliation of the job.",
	}, []string{"job"})
)
