package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/md-rashed-zaman/slotbook/libs/grpcx"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/events"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/session"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// newController serves a controller over an in-memory gRPC connection.
func newController(t *testing.T) *session.Controller {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog := availability.NewPersistentCatalog(
		availability.NewGenerator(availability.RandomFunc(func() float64 { return 0.9 })),
		availability.WithClock(func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }),
	)
	rec := booking.NewRecorder(storage.NewBookingRepository(), catalog, booking.WithLogger(logger))

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpcx.ServerInterceptors(logger))
	grpcserver.Register(srv, grpcserver.Deps{Catalog: catalog, Recorder: rec, Logger: logger, Location: time.UTC})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpcx.Dial(context.Background(), "passthrough:///bufnet", grpcx.DialOptions{Timeout: 5 * time.Second},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client := grpcserver.NewClient(conn, time.UTC)
	return session.NewController(client, client, logger)
}

func TestListSlots(t *testing.T) {
	ctrl := newController(t)
	var out bytes.Buffer

	require.NoError(t, listSlots(context.Background(), ctrl, "2024-03-04", time.UTC, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, availability.SlotsPerDay)
	assert.Contains(t, out.String(), "slot-2024-03-04-10-30\t10:30-")
}

func TestListSlots_BadDate(t *testing.T) {
	ctrl := newController(t)
	err := listSlots(context.Background(), ctrl, "04/03/2024", time.UTC, io.Discard)
	assert.ErrorIs(t, err, availability.ErrInvalidDate)
}

func TestBookSlot(t *testing.T) {
	ctrl := newController(t)
	ctx := context.Background()
	var out bytes.Buffer

	err := bookSlot(ctx, ctrl, bookRequest{
		Date:   "2024-03-04",
		SlotID: "slot-2024-03-04-10-30",
		Name:   "Ada",
		Email:  "ada@example.com",
		Phone:  "5551234567",
	}, time.UTC, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Your appointment on Monday, March 4, 2024 at 10:30 has been booked.")
	assert.Contains(t, out.String(), "booking id: ")

	var after bytes.Buffer
	require.NoError(t, listSlots(ctx, ctrl, "2024-03-04", time.UTC, &after))
	assert.NotContains(t, after.String(), "slot-2024-03-04-10-30")
}

func TestBookSlot_InvalidContact(t *testing.T) {
	ctrl := newController(t)
	var out bytes.Buffer

	err := bookSlot(context.Background(), ctrl, bookRequest{
		Date:   "2024-03-04",
		SlotID: "slot-2024-03-04-10-30",
		Name:   "Ada",
		Email:  "not-an-email",
		Phone:  "5551234567",
	}, time.UTC, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "email: ")
	assert.Nil(t, ctrl.State().Notification)
}

func TestBookSlot_UnknownSlot(t *testing.T) {
	ctrl := newController(t)

	err := bookSlot(context.Background(), ctrl, bookRequest{Date: "2024-03-04", SlotID: "slot-2024-03-05-10-30"}, time.UTC, io.Discard)
	assert.ErrorIs(t, err, session.ErrUnknownSlot)

	err = bookSlot(context.Background(), ctrl, bookRequest{Date: "2024-03-04"}, time.UTC, io.Discard)
	assert.EqualError(t, err, "-slot is required")
}

func TestPrintEvent(t *testing.T) {
	var out bytes.Buffer
	ev := events.BookingRecorded{
		OccurredAt:   time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
		BookingID:    "b-1",
		TimeSlotID:   "slot-2024-03-04-10-30",
		CustomerName: "Ada",
	}

	require.NoError(t, printEvent(&out)(context.Background(), kafkax.EventMeta{EventID: "evt-1"}, ev))
	assert.Equal(t, "2024-03-04T09:00:00Z\tevt-1\tb-1\tslot-2024-03-04-10-30\tAda\n", out.String())
}

func TestRun_TailNeedsBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	err := run(context.Background(), "tail", nil, io.Discard, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.EqualError(t, err, "KAFKA_BROKERS is required")
}
