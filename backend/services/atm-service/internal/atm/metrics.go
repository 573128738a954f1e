package atm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "atm",
		Name:      "fsm_transitions_total",
		Help:      "Session state transitions",
	}, []string{"from", "to", "event"})

	rejectedEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "atm",
		Name:      "fsm_rejected_events_total",
		Help:      "Events refused because the session was in the wrong state",
	}, []string{"state", "event"})
)
