package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for slot queries and bookings.
// A nil *BookingMetrics is a valid no-op.
type BookingMetrics struct {
	slotQueries        *prometheus.CounterVec
	slotsReturned      *prometheus.HistogramVec
	bookingsTotal      prometheus.Counter
	bookingLatency     prometheus.Histogram
	validationFailures *prometheus.CounterVec
	eventsTotal        *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		slotQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "availability",
			Name:      "slot_queries_total",
			Help:      "Slot list queries by kind (available, booked)",
		}, []string{"kind", "transport"}),
		slotsReturned: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "slotbook",
			Subsystem: "availability",
			Name:      "slots_returned",
			Help:      "Number of slots returned per query",
			Buckets:   []float64{0, 1, 2, 4, 8, 12, 16},
		}, []string{"kind"}),
		bookingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "booking",
			Name:      "recorded_total",
			Help:      "Total bookings recorded",
		}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "slotbook",
			Subsystem: "booking",
			Name:      "record_latency_seconds",
			Help:      "Latency of recording a booking",
			Buckets:   prometheus.DefBuckets,
		}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "booking",
			Name:      "validation_failures_total",
			Help:      "Rejected booking submissions by field",
		}, []string{"field"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Booking events by outcome (published, dropped, failed)",
		}, []string{"status"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotbook",
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Confirmation notifications by channel and outcome",
		}, []string{"channel", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotQueries, m.slotsReturned, m.bookingsTotal, m.bookingLatency,
		m.validationFailures, m.eventsTotal, m.notificationsTotal)
	return m
}

func (m *BookingMetrics) ObserveSlotQuery(kind, transport string, returned int) {
	if m == nil {
		return
	}
	m.slotQueries.WithLabelValues(kind, transport).Inc()
	m.slotsReturned.WithLabelValues(kind).Observe(float64(returned))
}

func (m *BookingMetrics) ObserveBooking(seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.Inc()
	m.bookingLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveValidationFailure(fields map[string]string) {
	if m == nil {
		return
	}
	for field := range fields {
		m.validationFailures.WithLabelValues(field).Inc()
	}
}

func (m *BookingMetrics) ObserveEvent(status string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.notificationsTotal.WithLabelValues(channel, status).Inc()
}
