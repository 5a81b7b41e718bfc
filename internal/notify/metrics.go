package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeadmin_notifications_upserted_total",
			Help: "Notifications created or refreshed, by kind",
		},
		[]string{"kind"},
	)

	notificationsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifeadmin_notifications_resolved_total",
			Help: "Notifications removed because their condition cleared, by entity type",
		},
		[]string{"entity_type"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lifeadmin_notification_sweep_duration_seconds",
			Help:    "Duration of a full notification sweep",
			Buckets: prometheus.DefBuckets,
		},
	)
)
