package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBookingMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveSlotQuery("available", "http", 12)
	m.ObserveSlotQuery("available", "http", 3)
	m.ObserveBooking(0.01)
	m.ObserveValidationFailure(map[string]string{"name": "x", "email": "y"})
	m.ObserveEvent("published")
	m.ObserveNotification("email", nil)
	m.ObserveNotification("sms", errors.New("down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.slotQueries.WithLabelValues("available", "http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationFailures.WithLabelValues("email")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationsTotal.WithLabelValues("sms", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationsTotal.WithLabelValues("email", "sent")))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveSlotQuery("booked", "grpc", 0)
	m.ObserveBooking(0.1)
	m.ObserveValidationFailure(map[string]string{"phone": "x"})
	m.ObserveEvent("dropped")
	m.ObserveNotification("email", nil)
}
