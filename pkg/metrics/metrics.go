package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InventoryReservations counts reserve attempts by result (ok, insufficient, not_found, error).
	InventoryReservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afritix_inventory_reservations_total",
			Help: "Ticket reservation attempts by result",
		},
		[]string{"result"},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "afritix_ws_connections",
			Help: "Open authenticated websocket connections",
		},
	)

	WSBroadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afritix_ws_broadcasts_total",
			Help: "Room broadcasts by event name",
		},
		[]string{"event"},
	)

	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afritix_notifications_dispatched_total",
			Help: "Notification channel deliveries by channel and result",
		},
		[]string{"channel", "result"},
	)

	ScheduledNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afritix_scheduled_notifications_total",
			Help: "Scheduled notification outcomes (sent, retry, failed)",
		},
		[]string{"result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "afritix_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
