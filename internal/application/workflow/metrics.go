package workflow

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stepDecisions = sync.OnceValue(func() *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "itsm",
		Subsystem: "workflow",
		Name:      "step_decisions_total",
		Help:      "Workflow step decisions by action; auto-progressed steps use action auto.",
	}, []string{"action"})
})
