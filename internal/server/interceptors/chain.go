package interceptors

import (
	"context"

	"google.golang.org/grpc"
)

// Chain composes interceptors into one; the first is outermost. The HTTP gateway uses the
// result so gateway calls pass through the same chain as gRPC calls.
func Chain(ics ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		next := handler
		for i := len(ics) - 1; i >= 0; i-- {
			ic, h := ics[i], next
			next = func(ctx context.Context, req interface{}) (interface{}, error) {
				return ic(ctx, req, info, h)
			}
		}
		return next(ctx, req)
	}
}
