package interceptors

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/foozio/prodmatic-sub002/internal/metrics"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

func TestRecoveryUnary(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	interceptor := RecoveryUnary(zap.New(core))
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Boom"},
		func(context.Context, interface{}) (interface{}, error) { panic("boom") })
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, 1, logs.Len())
}

func TestTelemetryUnary_CountsAndPropagatesRequestID(t *testing.T) {
	m := metrics.New()
	interceptor := TelemetryUnary(zap.NewNop(), m, nil)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "req-42"))

	var seen string
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/M"},
		func(ctx context.Context, _ interface{}) (interface{}, error) {
			seen = GetRequestID(ctx)
			return nil, status.Error(codes.NotFound, "nope")
		})
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Equal(t, "req-42", seen)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCs.WithLabelValues("/svc/M", "NotFound")))
}

func TestTelemetryUnary_GeneratesRequestID(t *testing.T) {
	interceptor := TelemetryUnary(zap.NewNop(), nil, nil)
	var seen string
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/M"},
		func(ctx context.Context, _ interface{}) (interface{}, error) {
			seen = GetRequestID(ctx)
			return nil, nil
		})
	require.NoError(t, err)
	assert.Len(t, seen, 36)
}

func TestErrorsUnary_MapsAndLogsStorage(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	interceptor := ErrorsUnary(zap.New(core))
	info := &grpc.UnaryServerInfo{FullMethod: "/svc/M"}

	_, err := interceptor(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		return nil, apperr.Unauthorized("role")
	})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Equal(t, 0, logs.Len())

	_, err = interceptor(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		return nil, &apperr.StorageError{Op: "insert", Err: errors.New("disk full")}
	})
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, "internal error", status.Convert(err).Message())
	assert.Equal(t, 1, logs.Len())

	resp, err := interceptor(context.Background(), nil, info, func(context.Context, interface{}) (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

type ctxMarker struct{}

func TestContextUnary_AppliesHooks(t *testing.T) {
	interceptor := ContextUnary(func(ctx context.Context) context.Context {
		return context.WithValue(ctx, ctxMarker{}, "set")
	})
	resp, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, func(ctx context.Context, _ interface{}) (interface{}, error) {
		return ctx.Value(ctxMarker{}), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "set", resp)
}
