// Package authv1 defines AuthService: registration, sign-in and token rotation.
package authv1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.auth.v1.AuthService"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type LogoutResponse struct{}

// OIDCLoginRequest carries an ID token obtained by the client from the configured provider.
type OIDCLoginRequest struct {
	IDToken string `json:"id_token"`
}

// AuthResponse is returned by every call that issues tokens.
type AuthResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	SessionID    string    `json:"session_id"`
}

type AuthServiceServer interface {
	Register(context.Context, *RegisterRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	Refresh(context.Context, *RefreshRequest) (*AuthResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	OIDCLogin(context.Context, *OIDCLoginRequest) (*AuthResponse, error)
}

var AuthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "Register", AuthServiceServer.Register),
		rpc.Unary(ServiceName, "Login", AuthServiceServer.Login),
		rpc.Unary(ServiceName, "Refresh", AuthServiceServer.Refresh),
		rpc.Unary(ServiceName, "Logout", AuthServiceServer.Logout),
		rpc.Unary(ServiceName, "OIDCLogin", AuthServiceServer.OIDCLogin),
	},
	Metadata: "prodmatic/auth/v1/auth.proto",
}

func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthService_ServiceDesc, srv)
}

// PublicMethods are callable without an access token.
var PublicMethods = []string{
	rpc.FullMethod(ServiceName, "Register"),
	rpc.FullMethod(ServiceName, "Login"),
	rpc.FullMethod(ServiceName, "Refresh"),
	rpc.FullMethod(ServiceName, "OIDCLogin"),
}
