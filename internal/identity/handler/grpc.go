package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	authv1 "github.com/foozio/prodmatic-sub002/api/auth/v1"
	"github.com/foozio/prodmatic-sub002/internal/identity/service"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

// AuthServer implements AuthService over the identity service.
type AuthServer struct {
	auth *service.AuthService
}

// NewAuthServer returns a new Auth server. If auth is nil, all RPCs return Unimplemented.
func NewAuthServer(auth *service.AuthService) *AuthServer {
	return &AuthServer{auth: auth}
}

func (s *AuthServer) Register(ctx context.Context, req *authv1.RegisterRequest) (*authv1.AuthResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Register not implemented")
	}
	res, err := s.auth.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return nil, mapError("register", err)
	}
	return toProto(res), nil
}

func (s *AuthServer) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.AuthResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Login not implemented")
	}
	res, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, mapError("login", err)
	}
	return toProto(res), nil
}

func (s *AuthServer) Refresh(ctx context.Context, req *authv1.RefreshRequest) (*authv1.AuthResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Refresh not implemented")
	}
	res, err := s.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, mapError("refresh", err)
	}
	return toProto(res), nil
}

func (s *AuthServer) Logout(ctx context.Context, req *authv1.LogoutRequest) (*authv1.LogoutResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
	}
	if err := s.auth.Logout(ctx, req.RefreshToken); err != nil {
		return nil, mapError("logout", err)
	}
	return &authv1.LogoutResponse{}, nil
}

func (s *AuthServer) OIDCLogin(ctx context.Context, req *authv1.OIDCLoginRequest) (*authv1.AuthResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method OIDCLogin not implemented")
	}
	res, err := s.auth.OIDCLogin(ctx, req.IDToken)
	if err != nil {
		return nil, mapError("oidc login", err)
	}
	return toProto(res), nil
}

// mapError maps service sentinels to status codes. Everything else is left to the errors
// interceptor: validation errors pass through and store failures become StorageErrors.
func mapError(op string, err error) error {
	switch {
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "invalid credentials")
	case errors.Is(err, service.ErrInvalidRefreshToken), errors.Is(err, service.ErrRefreshTokenReuse):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, service.ErrOIDCDisabled):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return apperr.Storage(op, err)
}

func toProto(r *service.AuthResult) *authv1.AuthResponse {
	return &authv1.AuthResponse{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    r.ExpiresAt,
		UserID:       r.UserID,
		SessionID:    r.SessionID,
	}
}
