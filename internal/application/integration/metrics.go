package integration

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type integrationMetrics struct {
	fulfillmentItems *prometheus.CounterVec
	assetUpdates     *prometheus.CounterVec
}

var getMetrics = sync.OnceValue(func() *integrationMetrics {
	return &integrationMetrics{
		fulfillmentItems: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "itsm",
			Subsystem: "fulfillment",
			Name:      "items_total",
			Help:      "Request items processed by fulfillment, by outcome.",
		}, []string{"outcome"}),
		assetUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "itsm",
			Subsystem: "asset_history",
			Name:      "updates_total",
			Help:      "Asset metadata updates derived from service desk events.",
		}, []string{"event_type", "result"}),
	}
})
