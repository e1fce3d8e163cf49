package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitbook_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fitbook_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitbook_reservations_total",
			Help: "Total number of reservation attempts",
		},
		[]string{"outcome"},
	)

	CancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitbook_cancellations_total",
			Help: "Total number of reservation cancellations",
		},
	)

	WaitlistJoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitbook_waitlist_joins_total",
			Help: "Total number of waitlist joins",
		},
	)

	PromotionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitbook_waitlist_promotions_total",
			Help: "Total number of waitlist promotion attempts",
		},
		[]string{"outcome"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitbook_notifications_total",
			Help: "Total number of notifications processed",
		},
		[]string{"kind", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fitbook_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordReservation(outcome string) {
	ReservationsTotal.WithLabelValues(outcome).Inc()
}

func RecordCancellation() {
	CancellationsTotal.Inc()
}

func RecordWaitlistJoin() {
	WaitlistJoinsTotal.Inc()
}

func RecordPromotion(outcome string) {
	PromotionsTotal.WithLabelValues(outcome).Inc()
}

func RecordNotification(kind, status string) {
	NotificationsTotal.WithLabelValues(kind, status).Inc()
}
