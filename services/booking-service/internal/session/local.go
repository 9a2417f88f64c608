package session

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Local serves a Controller from in-process collaborators.
type Local struct {
	Catalog  availability.Catalog
	Recorder *booking.Recorder
}

func (l Local) AvailableSlots(ctx context.Context, date time.Time) ([]model.TimeSlot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.Catalog.AvailableSlots(date), nil
}

func (l Local) Book(ctx context.Context, slotID string, c model.Contact) (model.Booking, error) {
	return l.Recorder.Record(ctx, slotID, c)
}

var (
	_ SlotSource = Local{}
	_ Booker     = Local{}
)
