package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SettlementResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "reconcile",
		Name:      "settlements_total",
		Help:      "Pending EVM side settlements seen by reconciliation calls, by outcome.",
	}, []string{"kind", "status"})

	PrunedEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "reconcile",
		Name:      "pruned_entries_total",
	}, []string{"kind"})

	PendingSettlements = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bridge",
		Subsystem: "reconcile",
		Name:      "pending_settlements",
		Help:      "Length of the pending settlement array at the last reconciliation call.",
	}, []string{"kind"})

	DepositResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "deposit",
		Name:      "results_total",
	}, []string{"status"})

	RegistrationResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "registration",
		Name:      "results_total",
	}, []string{"status"})

	EmittedTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "evm",
		Name:      "emitted_transactions_total",
	}, []string{"method"})
)

func observeResult(vec *prometheus.CounterVec, err error) {
	if err != nil {
		vec.WithLabelValues("error").Inc()
	} else {
		vec.WithLabelValues("ok").Inc()
	}
}
