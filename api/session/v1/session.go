// Package sessionv1 defines SessionService: the caller's own sign-in sessions.
package sessionv1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.session.v1.SessionService"

type Session struct {
	ID         string     `json:"id"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	IPAddress  string     `json:"ip_address,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	Current    bool       `json:"current"`
}

type ListSessionsRequest struct{}

type ListSessionsResponse struct {
	Sessions []*Session `json:"sessions"`
}

type RevokeSessionRequest struct {
	SessionID string `json:"session_id"`
}

type RevokeSessionResponse struct{}

type SessionServiceServer interface {
	ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error)
	RevokeSession(context.Context, *RevokeSessionRequest) (*RevokeSessionResponse, error)
}

var SessionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "ListSessions", SessionServiceServer.ListSessions),
		rpc.Unary(ServiceName, "RevokeSession", SessionServiceServer.RevokeSession),
	},
	Metadata: "prodmatic/session/v1/session.proto",
}

func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionService_ServiceDesc, srv)
}
