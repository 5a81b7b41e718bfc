package assistant

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeadmin_chat_requests_total",
			Help: "Chat requests by inferred action and the provider that answered",
		},
		[]string{"action", "provider"},
	)

	providerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeadmin_chat_provider_failures_total",
			Help: "Model provider errors that fell back to template replies",
		},
		[]string{"provider"},
	)

	providerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lifeadmin_chat_provider_duration_seconds",
			Help:    "Time spent waiting for the model provider",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)
)
