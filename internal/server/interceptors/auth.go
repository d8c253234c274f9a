package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/foozio/prodmatic-sub002/internal/security"
)

const bearerPrefix = "bearer "

// SessionValidator reports whether sessionID is still active (not revoked, not expired).
type SessionValidator func(ctx context.Context, sessionID string) (bool, error)

// AuthUnary returns a unary server interceptor that validates the Bearer access token from
// gRPC metadata and sets user_id and session_id in context for protected RPCs.
// publicMethods is the set of full method names that do not require a token; a valid token
// on a public method is still attached to the context.
// sessions may be nil; then any signed, unexpired token is accepted.
func AuthUnary(tokens *security.TokenProvider, publicMethods map[string]bool, sessions SessionValidator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		public := publicMethods[info.FullMethod]
		token := extractBearer(ctx)
		if token == "" {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		claims, err := tokens.ValidateAccess(token)
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		if sessions != nil {
			active, err := sessions(ctx, claims.SessionID)
			if err != nil {
				return nil, status.Error(codes.Internal, "failed to validate session")
			}
			if !active {
				if public {
					return handler(ctx, req)
				}
				return nil, status.Error(codes.Unauthenticated, "session revoked or expired")
			}
		}

		return handler(WithIdentity(ctx, claims.Subject, claims.SessionID), req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
