package handler

import (
	"context"

	sessionv1 "github.com/foozio/prodmatic-sub002/api/session/v1"
	auditdomain "github.com/foozio/prodmatic-sub002/internal/audit/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/session"
	"github.com/foozio/prodmatic-sub002/internal/session/domain"
	sessionrepo "github.com/foozio/prodmatic-sub002/internal/session/repository"
)

// Server implements SessionService. Users only ever see and revoke their own sessions.
type Server struct {
	sessions sessionrepo.Repository
	pipeline *mutation.Pipeline
}

// NewServer returns a Session server.
func NewServer(sessions sessionrepo.Repository, pipeline *mutation.Pipeline) *Server {
	return &Server{sessions: sessions, pipeline: pipeline}
}

// ListSessions returns the caller's active sessions, marking the one making the request.
func (s *Server) ListSessions(ctx context.Context, _ *sessionv1.ListSessionsRequest) (*sessionv1.ListSessionsResponse, error) {
	p, err := s.pipeline.Authorize(ctx, "", "")
	if err != nil {
		return nil, err
	}
	list, err := s.sessions.ListActiveByUser(ctx, p.UserID, s.pipeline.Now())
	if err != nil {
		return nil, apperr.Storage("list sessions", err)
	}
	out := make([]*sessionv1.Session, len(list))
	for i, ses := range list {
		out[i] = toProto(ses, p.SessionID)
	}
	return &sessionv1.ListSessionsResponse{Sessions: out}, nil
}

var revokeSession = mutation.Op[sessionv1.RevokeSessionRequest, sessionv1.RevokeSessionResponse]{
	Action:     "revoke",
	EntityType: "session",
	Validate: func(in *sessionv1.RevokeSessionRequest) error {
		var v apperr.Validator
		v.Check(in.SessionID != "", "session_id", "is required")
		return v.Err()
	},
}

// RevokeSession revokes one of the caller's sessions. Revoking another user's session reads as
// not found.
func (s *Server) RevokeSession(ctx context.Context, req *sessionv1.RevokeSessionRequest) (*sessionv1.RevokeSessionResponse, error) {
	op := revokeSession
	op.Apply = func(ctx context.Context, p *session.Principal, in *sessionv1.RevokeSessionRequest) (*sessionv1.RevokeSessionResponse, mutation.Result, error) {
		ses, err := s.sessions.GetByID(ctx, in.SessionID)
		if err != nil {
			return nil, mutation.Result{}, err
		}
		if ses == nil || ses.UserID != p.UserID {
			return nil, mutation.Result{}, apperr.NotFound("session", in.SessionID)
		}
		if ses.RevokedAt == nil {
			if err := s.sessions.Revoke(ctx, ses.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
		}
		return &sessionv1.RevokeSessionResponse{}, mutation.Result{
			OrgID:     auditdomain.SystemOrgID,
			EntityIDs: []string{ses.ID},
			Metadata:  map[string]any{"current": ses.ID == p.SessionID},
		}, nil
	}
	return mutation.Run(ctx, s.pipeline, "", op, req)
}

func toProto(s *domain.Session, current string) *sessionv1.Session {
	return &sessionv1.Session{
		ID:         s.ID,
		ExpiresAt:  s.ExpiresAt,
		LastSeenAt: s.LastSeenAt,
		IPAddress:  s.IPAddress,
		CreatedAt:  s.CreatedAt,
		Current:    s.ID == current,
	}
}
