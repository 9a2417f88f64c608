package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Notifier sends booking confirmations in the background. Delivery failures
// are logged and counted, never returned.
type Notifier struct {
	email   EmailSender
	sms     SMSSender
	logger  *slog.Logger
	metrics *metrics.BookingMetrics
	loc     *time.Location
	timeout time.Duration

	wg sync.WaitGroup
}

type Config struct {
	// Location interprets slot identifiers when rendering the appointment time.
	Location *time.Location
	Timeout  time.Duration
}

func NewNotifier(email EmailSender, sms SMSSender, logger *slog.Logger, m *metrics.BookingMetrics, cfg Config) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if email == nil {
		email = NewNoopEmailSender(logger)
	}
	if sms == nil {
		sms = NoopSMSSender{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Notifier{email: email, sms: sms, logger: logger, metrics: m, loc: cfg.Location, timeout: cfg.Timeout}
}

// BookingConfirmed dispatches the confirmation for b and returns immediately.
func (n *Notifier) BookingConfirmed(ctx context.Context, b model.Booking) {
	start, err := availability.ParseSlotID(b.TimeSlotID, n.loc)
	if err != nil {
		n.logger.Warn("confirmation skipped (unparseable slot id)", "booking_id", b.ID, "slot_id", b.TimeSlotID)
		return
	}
	body := model.ConfirmationMessage(start)

	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		if b.CustomerEmail != "" {
			err := n.email.Send(ctx, EmailMessage{
				To:      b.CustomerEmail,
				ToName:  b.CustomerName,
				Subject: model.ConfirmationTitle,
				Body:    body,
			})
			n.observe(n.email.ProviderID(), b.ID, err)
		}
		if b.CustomerPhone != "" {
			err := n.sms.Send(ctx, b.CustomerPhone, model.ConfirmationTitle+" "+body)
			n.observe(n.sms.ProviderID(), b.ID, err)
		}
	}()
}

func (n *Notifier) observe(provider, bookingID string, err error) {
	n.metrics.ObserveNotification(provider, err)
	if err != nil {
		n.logger.Error("confirmation send failed", "provider", provider, "booking_id", bookingID, "err", err)
		return
	}
	n.logger.Info("confirmation sent", "provider", provider, "booking_id", bookingID)
}

// Wait blocks until all in-flight confirmations have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
