package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/validation"
)

// Client calls a remote BookingService. It satisfies the page controller's
// slot source and booker, so a session can be driven over gRPC.
type Client struct {
	cc  grpc.ClientConnInterface
	loc *time.Location
}

func NewClient(cc grpc.ClientConnInterface, loc *time.Location) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{cc: cc, loc: loc}
}

func (c *Client) AvailableSlots(ctx context.Context, date time.Time) ([]model.TimeSlot, error) {
	return c.listSlots(ctx, MethodListAvailableSlots, date)
}

func (c *Client) BookedSlots(ctx context.Context, date time.Time) ([]model.TimeSlot, error) {
	return c.listSlots(ctx, MethodListBookedSlots, date)
}

func (c *Client) listSlots(ctx context.Context, method string, date time.Time) ([]model.TimeSlot, error) {
	req, err := structpb.NewStruct(map[string]any{"date": availability.DateKey(date)})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out); err != nil {
		return nil, err
	}
	values := out.GetFields()["slots"].GetListValue().GetValues()
	slots := make([]model.TimeSlot, 0, len(values))
	for _, v := range values {
		slot, err := c.slotFromStruct(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// Book records a booking remotely. Validation failures come back as *validation.Errors.
func (c *Client) Book(ctx context.Context, slotID string, contact model.Contact) (model.Booking, error) {
	req, err := structpb.NewStruct(map[string]any{
		"slot_id": slotID,
		"name":    contact.Name,
		"email":   contact.Email,
		"phone":   contact.Phone,
		"notes":   contact.Notes,
	})
	if err != nil {
		return model.Booking{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodCreateBooking, req, out); err != nil {
		if verr := validationFromStatus(err); verr != nil {
			return model.Booking{}, verr
		}
		return model.Booking{}, err
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, stringField(out, "created_at"))
	return model.Booking{
		ID:            stringField(out, "booking_id"),
		TimeSlotID:    stringField(out, "time_slot_id"),
		CustomerName:  stringField(out, "customer_name"),
		CustomerEmail: stringField(out, "customer_email"),
		CustomerPhone: stringField(out, "customer_phone"),
		Notes:         stringField(out, "notes"),
		CreatedAt:     createdAt,
	}, nil
}

func (c *Client) slotFromStruct(s *structpb.Struct) (model.TimeSlot, error) {
	start, err := time.Parse(time.RFC3339, stringField(s, "start"))
	if err != nil {
		return model.TimeSlot{}, err
	}
	end, err := time.Parse(time.RFC3339, stringField(s, "end"))
	if err != nil {
		return model.TimeSlot{}, err
	}
	date, err := availability.ParseDate(stringField(s, "date"), c.loc)
	if err != nil {
		return model.TimeSlot{}, err
	}
	return model.TimeSlot{
		ID:        stringField(s, "id"),
		Date:      date,
		Start:     start.In(c.loc),
		End:       end.In(c.loc),
		Available: s.GetFields()["available"].GetBoolValue(),
		Price:     int(s.GetFields()["price"].GetNumberValue()),
	}, nil
}

func validationFromStatus(err error) *validation.Errors {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.InvalidArgument {
		return nil
	}
	for _, d := range st.Details() {
		detail, ok := d.(*structpb.Struct)
		if !ok {
			continue
		}
		fields := make(map[string]string, len(detail.GetFields()))
		for k, v := range detail.GetFields() {
			fields[k] = v.GetStringValue()
		}
		return &validation.Errors{Fields: fields}
	}
	return nil
}
