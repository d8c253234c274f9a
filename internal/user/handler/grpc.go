package handler

import (
	"context"
	"sort"
	"strings"

	userv1 "github.com/foozio/prodmatic-sub002/api/user/v1"
	auditdomain "github.com/foozio/prodmatic-sub002/internal/audit/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/session"
	"github.com/foozio/prodmatic-sub002/internal/user/domain"
	userrepo "github.com/foozio/prodmatic-sub002/internal/user/repository"
)

// Server implements UserService for the caller's own profile.
type Server struct {
	userRepo userrepo.Repository
	pipeline *mutation.Pipeline
}

// NewServer returns a new User server.
func NewServer(userRepo userrepo.Repository, pipeline *mutation.Pipeline) *Server {
	return &Server{userRepo: userRepo, pipeline: pipeline}
}

// GetMe returns the caller's profile and memberships, ordered by organization id.
func (s *Server) GetMe(ctx context.Context, _ *userv1.GetMeRequest) (*userv1.GetMeResponse, error) {
	p, err := s.pipeline.Authorize(ctx, "", "")
	if err != nil {
		return nil, err
	}
	u, err := s.userRepo.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, apperr.Storage("get user", err)
	}
	if u == nil {
		return nil, apperr.NotFound("user", p.UserID)
	}
	memberships := make([]*userv1.OrgMembership, 0, len(p.Memberships))
	for orgID, m := range p.Memberships {
		memberships = append(memberships, &userv1.OrgMembership{OrgID: orgID, Role: string(m.Role)})
	}
	sort.Slice(memberships, func(i, j int) bool { return memberships[i].OrgID < memberships[j].OrgID })
	return &userv1.GetMeResponse{User: toProto(u), Memberships: memberships}, nil
}

var updateProfile = mutation.Op[userv1.UpdateProfileRequest, userv1.UpdateProfileResponse]{
	Action:     "update",
	EntityType: "user",
	Validate: func(in *userv1.UpdateProfileRequest) error {
		in.Name = strings.TrimSpace(in.Name)
		var v apperr.Validator
		v.Check(in.Name != "", "name", "is required")
		v.Check(len(in.Name) <= 120, "name", "must be at most 120 characters")
		return v.Err()
	},
}

// UpdateProfile changes the caller's display name. Recorded under the system organization.
func (s *Server) UpdateProfile(ctx context.Context, req *userv1.UpdateProfileRequest) (*userv1.UpdateProfileResponse, error) {
	op := updateProfile
	op.Apply = func(ctx context.Context, p *session.Principal, in *userv1.UpdateProfileRequest) (*userv1.UpdateProfileResponse, mutation.Result, error) {
		u, err := s.userRepo.UpdateName(ctx, p.UserID, in.Name, s.pipeline.Now())
		if err != nil {
			return nil, mutation.Result{}, err
		}
		if u == nil {
			return nil, mutation.Result{}, apperr.NotFound("user", p.UserID)
		}
		return &userv1.UpdateProfileResponse{User: toProto(u)}, mutation.Result{
			OrgID:     auditdomain.SystemOrgID,
			EntityIDs: []string{u.ID},
			Metadata:  map[string]any{"name": u.Name, "previous_name": p.Name},
		}, nil
	}
	return mutation.Run(ctx, s.pipeline, "", op, req)
}

func toProto(u *domain.User) *userv1.User {
	return &userv1.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
