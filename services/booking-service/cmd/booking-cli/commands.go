package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/events"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/session"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/validation"
)

type bookRequest struct {
	Date   string
	SlotID string
	Name   string
	Email  string
	Phone  string
	Notes  string
}

func listSlots(ctx context.Context, ctrl *session.Controller, date string, loc *time.Location, out io.Writer) error {
	d, err := availability.ParseDate(date, loc)
	if err != nil {
		return err
	}
	if err := ctrl.SelectDate(ctx, d); err != nil {
		return err
	}
	slots := ctrl.State().Slots
	if len(slots) == 0 {
		fmt.Fprintf(out, "no open slots on %s\n", availability.DateKey(d))
		return nil
	}
	for _, s := range slots {
		fmt.Fprintf(out, "%s\t%s-%s\t%d\n", s.ID, s.StartClock(), s.End.Format("15:04"), s.Price)
	}
	return nil
}

func bookSlot(ctx context.Context, ctrl *session.Controller, req bookRequest, loc *time.Location, out io.Writer) error {
	if req.SlotID == "" {
		return errors.New("-slot is required")
	}
	d, err := availability.ParseDate(req.Date, loc)
	if err != nil {
		return err
	}
	if err := ctrl.SelectDate(ctx, d); err != nil {
		return err
	}
	if err := ctrl.SelectSlot(req.SlotID); err != nil {
		return fmt.Errorf("%s on %s: %w", req.SlotID, availability.DateKey(d), err)
	}

	b, err := ctrl.Submit(ctx, model.Contact{Name: req.Name, Email: req.Email, Phone: req.Phone, Notes: req.Notes})
	st := ctrl.State()
	if err != nil {
		if verr, ok := validation.AsErrors(err); ok {
			writeFieldErrors(out, verr.Fields)
		}
		if st.Notification != nil {
			fmt.Fprintf(out, "%s: %s\n", st.Notification.Title, st.Notification.Message)
		}
		return err
	}
	if st.Notification != nil {
		fmt.Fprintf(out, "%s: %s\n", st.Notification.Title, st.Notification.Message)
	}
	fmt.Fprintf(out, "booking id: %s\n", b.ID)
	return nil
}

func writeFieldErrors(out io.Writer, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  %s: %s\n", k, fields[k])
	}
}

func printEvent(out io.Writer) events.Handler {
	return func(_ context.Context, meta kafkax.EventMeta, ev events.BookingRecorded) error {
		_, err := fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n",
			ev.OccurredAt.Format(time.RFC3339), meta.EventID, ev.BookingID, ev.TimeSlotID, ev.CustomerName)
		return err
	}
}
