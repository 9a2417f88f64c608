package grpcx

import (
	"context"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// maxRequestIDLen matches the bound httpx applies to X-Request-Id.
const maxRequestIDLen = 128

// ServerInterceptors is the standard unary chain for service servers:
// request id first so recovery and access logs can report it.
func ServerInterceptors(logger *slog.Logger) grpc.ServerOption {
	return grpc.ChainUnaryInterceptor(
		UnaryServerRequestIDInterceptor(),
		UnaryServerRecoverInterceptor(logger),
		UnaryServerLoggingInterceptor(logger),
	)
}

// UnaryClientRequestIDInterceptor forwards the caller's request id, preferring
// one set by httpx.WithRequestID over one received on an inbound gRPC call.
func UnaryClientRequestIDInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if id := requestIDForOutgoing(ctx); id != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, RequestIDMetadataKey, id)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func requestIDForOutgoing(ctx context.Context) string {
	if md, ok := metadata.FromOutgoingContext(ctx); ok && len(md.Get(RequestIDMetadataKey)) > 0 {
		return ""
	}
	if id := httpx.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return RequestIDFromContext(ctx)
}

// UnaryServerRequestIDInterceptor adopts the caller's x-request-id when it is
// usable, mints one otherwise, and echoes it in the response header.
func UnaryServerRequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var id string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(RequestIDMetadataKey); len(vals) > 0 {
				id = strings.TrimSpace(vals[0])
			}
		}
		if id == "" || len(id) > maxRequestIDLen {
			id = NewRequestID()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDMetadataKey, id))
		return handler(WithRequestID(ctx, id), req)
	}
}
