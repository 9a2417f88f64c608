package events

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

const TopicBookingRecorded = "booking.recorded.v1"

// BookingRecorded is the JSON payload of TopicBookingRecorded.
type BookingRecorded struct {
	EventID       string    `json:"event_id"`
	OccurredAt    time.Time `json:"occurred_at"`
	BookingID     string    `json:"booking_id"`
	TimeSlotID    string    `json:"time_slot_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func newBookingRecorded(eventID string, b model.Booking, now time.Time) BookingRecorded {
	return BookingRecorded{
		EventID:       eventID,
		OccurredAt:    now.UTC(),
		BookingID:     b.ID,
		TimeSlotID:    b.TimeSlotID,
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		CustomerPhone: b.CustomerPhone,
		Notes:         b.Notes,
		CreatedAt:     b.CreatedAt.UTC(),
	}
}

func (e BookingRecorded) marshal() ([]byte, error) {
	return json.Marshal(e)
}
