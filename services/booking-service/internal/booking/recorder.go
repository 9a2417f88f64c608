package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/validation"
)

type Repository interface {
	Append(ctx context.Context, b model.Booking) error
}

// SlotMarker flips a slot to unavailable once it is booked.
type SlotMarker interface {
	MarkBooked(slotID string) bool
}

type EventSink interface {
	BookingRecorded(ctx context.Context, b model.Booking)
}

type ConfirmationSender interface {
	BookingConfirmed(ctx context.Context, b model.Booking)
}

// Recorder turns a validated booking request into a stored Booking.
type Recorder struct {
	repo    Repository
	slots   SlotMarker
	events  EventSink
	confirm ConfirmationSender
	logger  *slog.Logger
	metrics *metrics.BookingMetrics
	newID   func() (string, error)
	now     func() time.Time
}

type Option func(*Recorder)

func WithEvents(e EventSink) Option { return func(r *Recorder) { r.events = e } }

func WithConfirmations(c ConfirmationSender) Option { return func(r *Recorder) { r.confirm = c } }

func WithLogger(l *slog.Logger) Option { return func(r *Recorder) { r.logger = l } }

func WithMetrics(m *metrics.BookingMetrics) Option { return func(r *Recorder) { r.metrics = m } }

// WithIDGenerator replaces the UUIDv7 identifier source.
func WithIDGenerator(f func() (string, error)) Option { return func(r *Recorder) { r.newID = f } }

func WithClock(now func() time.Time) Option { return func(r *Recorder) { r.now = now } }

func NewRecorder(repo Repository, slots SlotMarker, opts ...Option) *Recorder {
	r := &Recorder{
		repo:   repo,
		slots:  slots,
		logger: slog.Default(),
		newID:  newBookingID,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func newBookingID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Record stores a booking for slotID. Contact fields are kept exactly as given.
// The only expected failure is *validation.Errors.
func (r *Recorder) Record(ctx context.Context, slotID string, c model.Contact) (model.Booking, error) {
	ctx, span := otel.Tracer("slotbook/booking").Start(ctx, "booking.Record")
	defer span.End()
	span.SetAttributes(attribute.String("booking.slot_id", slotID))
	started := time.Now()

	if verr := validation.ValidateBooking(slotID, c); verr != nil {
		r.metrics.ObserveValidationFailure(verr.Fields)
		span.SetStatus(codes.Error, "validation failed")
		return model.Booking{}, verr
	}

	id, err := r.newID()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "id generation failed")
		return model.Booking{}, fmt.Errorf("booking id: %w", err)
	}
	b := model.Booking{
		ID:            id,
		TimeSlotID:    slotID,
		CustomerName:  c.Name,
		CustomerEmail: c.Email,
		CustomerPhone: c.Phone,
		Notes:         c.Notes,
		CreatedAt:     r.now(),
	}
	if err := r.repo.Append(ctx, b); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return model.Booking{}, fmt.Errorf("append booking: %w", err)
	}
	span.SetAttributes(attribute.String("booking.id", b.ID))

	if r.slots != nil && !r.slots.MarkBooked(slotID) {
		r.logger.Warn("booked slot is outside the current window", "booking_id", b.ID, "slot_id", slotID)
	}
	if r.events != nil {
		r.events.BookingRecorded(ctx, b)
	}
	if r.confirm != nil {
		r.confirm.BookingConfirmed(ctx, b)
	}
	r.metrics.ObserveBooking(time.Since(started).Seconds())
	r.logger.Info("booking recorded", "booking_id", b.ID, "slot_id", slotID)
	return b, nil
}
