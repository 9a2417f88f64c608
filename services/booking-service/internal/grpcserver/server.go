package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/validation"
)

type server struct {
	catalog  availability.Catalog
	recorder *booking.Recorder
	metrics  *metrics.BookingMetrics
	logger   *slog.Logger
	loc      *time.Location
}

type Deps struct {
	Catalog  availability.Catalog
	Recorder *booking.Recorder
	Metrics  *metrics.BookingMetrics
	Logger   *slog.Logger
	Location *time.Location
}

// Register installs the booking service plus the standard health and reflection
// services on grpcServer. The returned health server reports SERVING.
func Register(grpcServer *grpc.Server, d Deps) *health.Server {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	RegisterBookingServiceServer(grpcServer, &server{
		catalog:  d.Catalog,
		recorder: d.Recorder,
		metrics:  d.Metrics,
		logger:   d.Logger,
		loc:      d.Location,
	})

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)
	return hs
}

func (s *server) ListAvailableSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.listSlots(req, true)
}

func (s *server) ListBookedSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.listSlots(req, false)
}

func (s *server) listSlots(req *structpb.Struct, available bool) (*structpb.Struct, error) {
	date, err := availability.ParseDate(stringField(req, "date"), s.loc)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "date must be yyyy-MM-dd")
	}

	kind := "available"
	var slots []model.TimeSlot
	if available {
		slots = s.catalog.AvailableSlots(date)
	} else {
		kind = "booked"
		slots = s.catalog.BookedSlots(date)
	}
	if raw := stringField(req, "period"); raw != "" {
		period, err := availability.ParsePeriod(raw)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "period must be morning or afternoon")
		}
		slots = availability.InPeriod(slots, period)
	}
	s.metrics.ObserveSlotQuery(kind, "grpc", len(slots))

	items := make([]any, 0, len(slots))
	for _, slot := range slots {
		items = append(items, slotToMap(slot))
	}
	out, err := structpb.NewStruct(map[string]any{
		"date":  availability.DateKey(date),
		"slots": items,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to build response")
	}
	return out, nil
}

func (s *server) CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	b, err := s.recorder.Record(ctx, stringField(req, "slot_id"), model.Contact{
		Name:  stringField(req, "name"),
		Email: stringField(req, "email"),
		Phone: stringField(req, "phone"),
		Notes: stringField(req, "notes"),
	})
	if err != nil {
		if verr, ok := validation.AsErrors(err); ok {
			return nil, validationStatus(verr)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, status.FromContextError(err).Err()
		}
		s.logger.Error("grpc record booking failed", "err", err)
		return nil, status.Error(codes.Internal, "failed to record booking")
	}

	fields := map[string]any{
		"booking_id":     b.ID,
		"time_slot_id":   b.TimeSlotID,
		"customer_name":  b.CustomerName,
		"customer_email": b.CustomerEmail,
		"customer_phone": b.CustomerPhone,
		"notes":          b.Notes,
		"created_at":     b.CreatedAt.UTC().Format(time.RFC3339Nano),
		"title":          model.ConfirmationTitle,
	}
	if start, err := availability.ParseSlotID(b.TimeSlotID, s.loc); err == nil {
		fields["message"] = model.ConfirmationMessage(start)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to build response")
	}
	return out, nil
}

// validationStatus carries the per-field messages as a Struct detail.
func validationStatus(verr *validation.Errors) error {
	st := status.New(codes.InvalidArgument, "validation failed")
	fields := make(map[string]any, len(verr.Fields))
	for k, v := range verr.Fields {
		fields[k] = v
	}
	detail, err := structpb.NewStruct(fields)
	if err != nil {
		return st.Err()
	}
	if withDetails, err := st.WithDetails(detail); err == nil {
		return withDetails.Err()
	}
	return st.Err()
}

func slotToMap(s model.TimeSlot) map[string]any {
	return map[string]any{
		"id":         s.ID,
		"date":       availability.DateKey(s.Date),
		"start_time": s.StartClock(),
		"end_time":   s.EndClock(),
		"start":      s.Start.Format(time.RFC3339),
		"end":        s.End.Format(time.RFC3339),
		"available":  s.Available,
		"price":      s.Price,
	}
}

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}
