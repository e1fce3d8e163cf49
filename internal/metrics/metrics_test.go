package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/slots/1/reserve", "201", 0.25)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/slots/1/reserve", "201"))
	assert.Equal(t, float64(1), count)
}

func TestRecordHTTPRequestMultiple(t *testing.T) {
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("POST", "/auth/login", "200", 0.1)
	RecordHTTPRequest("POST", "/auth/login", "200", 0.2)
	RecordHTTPRequest("POST", "/auth/login", "401", 0.05)

	successCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/auth/login", "200"))
	failCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/auth/login", "401"))

	assert.Equal(t, float64(2), successCount)
	assert.Equal(t, float64(1), failCount)
}

func TestRecordReservation(t *testing.T) {
	ReservationsTotal.Reset()

	RecordReservation("confirmed")
	RecordReservation("confirmed")
	RecordReservation("slot_full")

	confirmed := testutil.ToFloat64(ReservationsTotal.WithLabelValues("confirmed"))
	full := testutil.ToFloat64(ReservationsTotal.WithLabelValues("slot_full"))

	assert.Equal(t, float64(2), confirmed)
	assert.Equal(t, float64(1), full)
}

func TestRecordPromotion(t *testing.T) {
	PromotionsTotal.Reset()

	RecordPromotion("promoted")
	RecordPromotion("requeued")
	RecordPromotion("promoted")

	promoted := testutil.ToFloat64(PromotionsTotal.WithLabelValues("promoted"))
	requeued := testutil.ToFloat64(PromotionsTotal.WithLabelValues("requeued"))

	assert.Equal(t, float64(2), promoted)
	assert.Equal(t, float64(1), requeued)
}

func TestRecordNotification(t *testing.T) {
	NotificationsTotal.Reset()

	RecordNotification("confirmed", "queued")
	RecordNotification("confirmed", "failed")
	RecordNotification("promoted", "queued")

	queued := testutil.ToFloat64(NotificationsTotal.WithLabelValues("confirmed", "queued"))
	failed := testutil.ToFloat64(NotificationsTotal.WithLabelValues("confirmed", "failed"))
	promoted := testutil.ToFloat64(NotificationsTotal.WithLabelValues("promoted", "queued"))

	assert.Equal(t, float64(1), queued)
	assert.Equal(t, float64(1), failed)
	assert.Equal(t, float64(1), promoted)
}

func TestNotificationQueueLength(t *testing.T) {
	NotificationQueueLength.Set(10)
	assert.Equal(t, float64(10), testutil.ToFloat64(NotificationQueueLength))

	NotificationQueueLength.Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(NotificationQueueLength))
}
