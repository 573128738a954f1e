package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "atm",
	Name:      "transactions_total",
	Help:      "Transaction requests by kind and outcome",
}, []string{"kind", "status"})
