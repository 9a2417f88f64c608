package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/validation"
)

var (
	ErrUnknownSlot    = errors.New("slot is not in the displayed list")
	ErrNoSlotSelected = errors.New("no slot selected")
	ErrSubmitting     = errors.New("a booking is already being submitted")
)

type SlotSource interface {
	AvailableSlots(ctx context.Context, date time.Time) ([]model.TimeSlot, error)
}

type Booker interface {
	Book(ctx context.Context, slotID string, c model.Contact) (model.Booking, error)
}

// Notification is the toast shown after a submission.
type Notification struct {
	Title       string
	Message     string
	Destructive bool
}

// State is a snapshot of the booking page.
type State struct {
	SelectedDate time.Time
	Slots        []model.TimeSlot
	SelectedSlot *model.TimeSlot
	Loading      bool
	Submitting   bool
	DialogOpen   bool
	Notification *Notification
	FieldErrors  map[string]string
}

// Controller drives one booking page: pick a date, pick a slot, submit the form.
// It is safe for concurrent use; overlapping date fetches resolve to the most
// recently selected date.
type Controller struct {
	slots  SlotSource
	booker Booker
	logger *slog.Logger

	mu    sync.Mutex
	seq   uint64
	state State
}

func NewController(slots SlotSource, booker Booker, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{slots: slots, booker: booker, logger: logger}
}

// SelectDate loads the available slots of d and clears the slot selection.
// A fetch error is logged and leaves the displayed list as it was.
func (c *Controller) SelectDate(ctx context.Context, d time.Time) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.state.SelectedDate = d
	c.state.Loading = true
	c.mu.Unlock()

	slots, err := c.slots.AvailableSlots(ctx, d)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		// A newer selection owns the list and the loading flag.
		return nil
	}
	c.state.Loading = false
	if err != nil {
		c.logger.Error("fetch available slots failed", "date", d.Format("2006-01-02"), "err", err)
		return err
	}
	c.state.Slots = slots
	c.state.SelectedSlot = nil
	return nil
}

// SelectSlot picks a slot from the displayed list and opens the booking dialog.
func (c *Controller) SelectSlot(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.state.Slots {
		if c.state.Slots[i].ID == id {
			slot := c.state.Slots[i]
			c.state.SelectedSlot = &slot
			c.state.DialogOpen = true
			c.state.FieldErrors = nil
			return nil
		}
	}
	return ErrUnknownSlot
}

func (c *Controller) CloseDialog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.DialogOpen = false
	c.state.FieldErrors = nil
}

// Submit books the selected slot. Invalid input is reported per field and is
// not submitted.
func (c *Controller) Submit(ctx context.Context, contact model.Contact) (model.Booking, error) {
	c.mu.Lock()
	if c.state.SelectedSlot == nil {
		c.mu.Unlock()
		return model.Booking{}, ErrNoSlotSelected
	}
	if c.state.Submitting {
		c.mu.Unlock()
		return model.Booking{}, ErrSubmitting
	}
	if verr := validation.ValidateContact(contact); verr != nil {
		c.state.FieldErrors = verr.Fields
		c.mu.Unlock()
		return model.Booking{}, verr
	}
	slot := *c.state.SelectedSlot
	c.state.FieldErrors = nil
	c.state.Submitting = true
	c.mu.Unlock()

	b, err := c.booker.Book(ctx, slot.ID, contact)

	c.mu.Lock()
	c.state.Submitting = false
	if err != nil {
		if verr, ok := validation.AsErrors(err); ok {
			c.state.FieldErrors = verr.Fields
		}
		c.state.Notification = &Notification{
			Title:       model.FailureTitle,
			Message:     model.FailureMessage,
			Destructive: true,
		}
		c.mu.Unlock()
		c.logger.Error("booking failed", "slot_id", slot.ID, "err", err)
		return model.Booking{}, err
	}
	c.state.Notification = &Notification{
		Title:   model.ConfirmationTitle,
		Message: model.ConfirmationMessage(slot.Start),
	}
	c.state.DialogOpen = false
	c.state.SelectedSlot = nil
	date := c.state.SelectedDate
	c.mu.Unlock()

	// Refresh so the booked slot drops out when the catalog keeps bookings.
	_ = c.SelectDate(ctx, date)
	return b, nil
}

// DismissNotification clears the last toast.
func (c *Controller) DismissNotification() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Notification = nil
}

// State returns a copy of the current page state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if s.Slots != nil {
		s.Slots = append([]model.TimeSlot(nil), s.Slots...)
	}
	if s.SelectedSlot != nil {
		slot := *s.SelectedSlot
		s.SelectedSlot = &slot
	}
	if s.Notification != nil {
		n := *s.Notification
		s.Notification = &n
	}
	if s.FieldErrors != nil {
		fe := make(map[string]string, len(s.FieldErrors))
		for k, v := range s.FieldErrors {
			fe[k] = v
		}
		s.FieldErrors = fe
	}
	return s
}
