package handler

import (
	"context"
	"strings"

	"github.com/google/uuid"

	organizationv1 "github.com/foozio/prodmatic-sub002/api/organization/v1"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/organization/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/session"
)

func (s *Server) CreateTeam(ctx context.Context, req *organizationv1.CreateTeamRequest) (*organizationv1.TeamResponse, error) {
	op := mutation.Op[organizationv1.CreateTeamRequest, organizationv1.TeamResponse]{
		Action:     "create",
		EntityType: "team",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *organizationv1.CreateTeamRequest) error {
			return (&domain.Team{Name: in.Name, Description: in.Description}).Validate()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *organizationv1.CreateTeamRequest) (*organizationv1.TeamResponse, mutation.Result, error) {
			now := s.pipeline.Now()
			t := &domain.Team{
				ID:          uuid.NewString(),
				OrgID:       in.OrgID,
				Name:        strings.TrimSpace(in.Name),
				Description: in.Description,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.orgs.CreateTeam(ctx, t); err != nil {
				return nil, mutation.Result{}, err
			}
			return &organizationv1.TeamResponse{Team: teamToProto(t)}, mutation.Result{
				EntityIDs: []string{t.ID},
				Metadata:  map[string]any{"name": t.Name},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdateTeam(ctx context.Context, req *organizationv1.UpdateTeamRequest) (*organizationv1.TeamResponse, error) {
	op := mutation.Op[organizationv1.UpdateTeamRequest, organizationv1.TeamResponse]{
		Action:     "update",
		EntityType: "team",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *organizationv1.UpdateTeamRequest) error {
			var v apperr.Validator
			v.Check(in.TeamID != "", "team_id", "is required")
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *organizationv1.UpdateTeamRequest) (*organizationv1.TeamResponse, mutation.Result, error) {
			t, err := s.orgs.GetTeam(ctx, in.OrgID, in.TeamID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if t == nil {
				return nil, mutation.Result{}, apperr.NotFound("team", in.TeamID)
			}
			if in.Name != nil {
				t.Name = *in.Name
			}
			if in.Description != nil {
				t.Description = *in.Description
			}
			if err := t.Validate(); err != nil {
				return nil, mutation.Result{}, err
			}
			t.UpdatedAt = s.pipeline.Now()
			if _, err := s.orgs.UpdateTeam(ctx, t); err != nil {
				return nil, mutation.Result{}, err
			}
			return &organizationv1.TeamResponse{Team: teamToProto(t)}, mutation.Result{
				EntityIDs: []string{t.ID},
				Metadata:  map[string]any{"name": t.Name},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) DeleteTeam(ctx context.Context, req *organizationv1.DeleteTeamRequest) (*organizationv1.DeleteTeamResponse, error) {
	op := mutation.Op[organizationv1.DeleteTeamRequest, organizationv1.DeleteTeamResponse]{
		Action:     "delete",
		EntityType: "team",
		MinRole:    membershipdomain.RoleProductManager,
		Apply: func(ctx context.Context, _ *session.Principal, in *organizationv1.DeleteTeamRequest) (*organizationv1.DeleteTeamResponse, mutation.Result, error) {
			ok, err := s.orgs.DeleteTeam(ctx, in.OrgID, in.TeamID, s.pipeline.Now())
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if !ok {
				return nil, mutation.Result{}, apperr.NotFound("team", in.TeamID)
			}
			return &organizationv1.DeleteTeamResponse{}, mutation.Result{EntityIDs: []string{in.TeamID}}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) ListTeams(ctx context.Context, req *organizationv1.ListTeamsRequest) (*organizationv1.ListTeamsResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	teams, err := s.orgs.ListTeams(ctx, req.OrgID)
	if err != nil {
		return nil, apperr.Storage("list teams", err)
	}
	out := make([]*organizationv1.Team, len(teams))
	for i, t := range teams {
		out[i] = teamToProto(t)
	}
	return &organizationv1.ListTeamsResponse{Teams: out}, nil
}

func teamToProto(t *domain.Team) *organizationv1.Team {
	return &organizationv1.Team{
		ID:          t.ID,
		OrgID:       t.OrgID,
		Name:        t.Name,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
