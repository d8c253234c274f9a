package interceptors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestChain_OrderAndShortCircuit(t *testing.T) {
	var order []string
	record := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
			order = append(order, name+":"+info.FullMethod)
			return handler(ctx, req)
		}
	}
	chained := Chain(record("a"), record("b"))
	resp, err := chained(context.Background(), "in", &grpc.UnaryServerInfo{FullMethod: "/svc/M"},
		func(_ context.Context, req interface{}) (interface{}, error) {
			order = append(order, "handler")
			return req.(string) + "-out", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "in-out", resp)
	assert.Equal(t, []string{"a:/svc/M", "b:/svc/M", "handler"}, order)

	stop := func(context.Context, interface{}, *grpc.UnaryServerInfo, grpc.UnaryHandler) (interface{}, error) {
		return "stopped", nil
	}
	called := false
	resp, err = Chain(stop, record("c"))(context.Background(), nil, &grpc.UnaryServerInfo{},
		func(context.Context, interface{}) (interface{}, error) { called = true; return nil, nil })
	require.NoError(t, err)
	assert.Equal(t, "stopped", resp)
	assert.False(t, called)
}

func TestChain_Empty(t *testing.T) {
	resp, err := Chain()(context.Background(), 1, &grpc.UnaryServerInfo{},
		func(_ context.Context, req interface{}) (interface{}, error) { return req, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, resp)
}
