package interceptors

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/foozio/prodmatic-sub002/internal/metrics"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

// RecoveryUnary turns a handler panic into codes.Internal and logs the stack.
func RecoveryUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("grpc: handler panic",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// TelemetryUnary assigns a request id, records RPC metrics and logs one line per RPC.
// skipMethods are not logged (e.g. HealthCheck) but are still counted.
func TelemetryUnary(log *zap.Logger, m *metrics.Metrics, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		requestID := incomingRequestID(ctx)
		ctx = WithRequestID(ctx, requestID)
		_ = grpc.SetHeader(ctx, metadata.Pairs("x-request-id", requestID))

		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)
		code := status.Code(err)

		if m != nil {
			m.RPCs.WithLabelValues(info.FullMethod, code.String()).Inc()
			m.RPCDuration.WithLabelValues(info.FullMethod).Observe(elapsed.Seconds())
		}
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		userID, _ := GetUserID(ctx)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", elapsed),
			zap.String("request_id", requestID),
			zap.String("user_id", userID),
			zap.String("client_ip", ClientIP(ctx)),
		}
		if code == codes.Internal || code == codes.Unknown {
			log.Warn("grpc: request failed", fields...)
		} else {
			log.Debug("grpc: request", fields...)
		}
		return resp, err
	}
}

// ErrorsUnary converts application errors returned by handlers into gRPC status errors.
// Storage failures are logged with their cause before being reduced to codes.Internal.
func ErrorsUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := status.FromError(err); (!ok && !apperr.IsAppError(err)) || isStorage(err) {
			log.Error("grpc: internal error",
				zap.String("method", info.FullMethod),
				zap.String("request_id", GetRequestID(ctx)),
				zap.Error(err))
		}
		return nil, apperr.ToStatus(err)
	}
}

// ContextUnary applies each hook to the request context before the handler runs.
// Used to install request-scoped state such as the principal memo.
func ContextUnary(hooks ...func(context.Context) context.Context) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		for _, h := range hooks {
			ctx = h(ctx)
		}
		return handler(ctx, req)
	}
}

func isStorage(err error) bool {
	var se *apperr.StorageError
	return errors.As(err, &se)
}

func incomingRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-request-id"); len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	return uuid.NewString()
}
