package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "slotbook.booking.v1.BookingService"

	MethodListAvailableSlots = "/" + ServiceName + "/ListAvailableSlots"
	MethodListBookedSlots    = "/" + ServiceName + "/ListBookedSlots"
	MethodCreateBooking      = "/" + ServiceName + "/CreateBooking"
)

// BookingServiceServer is the server API. Requests and responses are
// google.protobuf.Struct so no generated stubs are needed.
type BookingServiceServer interface {
	ListAvailableSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListBookedSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

func unaryHandler(method string, call func(BookingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListAvailableSlots",
			Handler:    unaryHandler(MethodListAvailableSlots, BookingServiceServer.ListAvailableSlots),
		},
		{
			MethodName: "ListBookedSlots",
			Handler:    unaryHandler(MethodListBookedSlots, BookingServiceServer.ListBookedSlots),
		},
		{
			MethodName: "CreateBooking",
			Handler:    unaryHandler(MethodCreateBooking, BookingServiceServer.CreateBooking),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "slotbook/booking/v1/booking.proto",
}
