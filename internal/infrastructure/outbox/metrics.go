package outbox

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	enqueueTotal    *prometheus.CounterVec
	dispatchTotal   *prometheus.CounterVec
	deadTotal       *prometheus.CounterVec
	dispatchLatency *prometheus.HistogramVec
	queued          *prometheus.GaugeVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		enqueueTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "itsm",
			Subsystem: "outbox",
			Name:      "enqueue_total",
			Help:      "Outbox rows written, one per subscribed handler.",
		}, []string{"event_type"}),
		dispatchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "itsm",
			Subsystem: "outbox",
			Name:      "dispatch_total",
			Help:      "Outbox delivery attempts by handler and result.",
		}, []string{"event_type", "handler", "result"}),
		deadTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "itsm",
			Subsystem: "outbox",
			Name:      "dead_total",
			Help:      "Outbox rows that ran out of attempts.",
		}, []string{"event_type", "handler"}),
		dispatchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "itsm",
			Subsystem: "outbox",
			Name:      "dispatch_latency_seconds",
			Help:      "Handler latency for outbox deliveries.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"event_type", "result"}),
		queued: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "itsm",
			Subsystem: "outbox",
			Name:      "messages",
			Help:      "Outbox rows by status.",
		}, []string{"status"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}
