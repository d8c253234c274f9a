package interceptors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/foozio/prodmatic-sub002/internal/security"
)

const protected = "/prodmatic.product.v1.ProductService/CreateProduct"

func bearerCtx(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
}

func echoIdentity(ctx context.Context, _ interface{}) (interface{}, error) {
	uid, _ := GetUserID(ctx)
	sid, _ := GetSessionID(ctx)
	return uid + "/" + sid, nil
}

func testTokens(t *testing.T) *security.TokenProvider {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	require.NoError(t, err)
	return tokens
}

func TestAuthUnary_PublicMethodWithoutToken(t *testing.T) {
	interceptor := AuthUnary(testTokens(t), map[string]bool{"/svc/Public": true}, nil)
	resp, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Public"}, echoIdentity)
	require.NoError(t, err)
	assert.Equal(t, "/", resp)
}

func TestAuthUnary_ProtectedWithoutToken(t *testing.T) {
	interceptor := AuthUnary(testTokens(t), nil, nil)
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: protected}, echoIdentity)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestAuthUnary_ValidToken(t *testing.T) {
	tokens := testTokens(t)
	issued, err := tokens.IssueAccess("session-1", "user-1")
	require.NoError(t, err)

	interceptor := AuthUnary(tokens, nil, nil)
	resp, err := interceptor(bearerCtx(issued.Token), nil, &grpc.UnaryServerInfo{FullMethod: protected}, echoIdentity)
	require.NoError(t, err)
	assert.Equal(t, "user-1/session-1", resp)
}

func TestAuthUnary_InvalidToken(t *testing.T) {
	interceptor := AuthUnary(testTokens(t), map[string]bool{"/svc/Public": true}, nil)
	_, err := interceptor(bearerCtx("garbage"), nil, &grpc.UnaryServerInfo{FullMethod: protected}, echoIdentity)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	resp, err := interceptor(bearerCtx("garbage"), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Public"}, echoIdentity)
	require.NoError(t, err)
	assert.Equal(t, "/", resp)
}

func TestAuthUnary_SessionValidator(t *testing.T) {
	tokens := testTokens(t)
	issued, err := tokens.IssueAccess("session-1", "user-1")
	require.NoError(t, err)
	info := &grpc.UnaryServerInfo{FullMethod: protected}

	active := AuthUnary(tokens, nil, func(ctx context.Context, sessionID string) (bool, error) {
		return sessionID == "session-1", nil
	})
	_, err = active(bearerCtx(issued.Token), nil, info, echoIdentity)
	assert.NoError(t, err)

	revoked := AuthUnary(tokens, nil, func(context.Context, string) (bool, error) { return false, nil })
	_, err = revoked(bearerCtx(issued.Token), nil, info, echoIdentity)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	failing := AuthUnary(tokens, nil, func(context.Context, string) (bool, error) { return false, errors.New("db down") })
	_, err = failing(bearerCtx(issued.Token), nil, info, echoIdentity)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer   abc  ", "abc"},
		{"BEARER abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	}
	for _, tt := range tests {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", tt.header))
		assert.Equal(t, tt.want, extractBearer(ctx), tt.header)
	}
	assert.Empty(t, extractBearer(context.Background()))
}
