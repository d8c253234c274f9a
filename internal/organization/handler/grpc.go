package handler

import (
	"context"
	"strings"

	"github.com/google/uuid"

	organizationv1 "github.com/foozio/prodmatic-sub002/api/organization/v1"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/organization/domain"
	orgrepo "github.com/foozio/prodmatic-sub002/internal/organization/repository"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	"github.com/foozio/prodmatic-sub002/internal/session"
)

// MembershipCreator adds the creator of an organization as its first admin.
type MembershipCreator interface {
	CreateMembership(ctx context.Context, m *membershipdomain.Membership) error
}

// Server implements OrganizationService.
type Server struct {
	orgs        orgrepo.Repository
	memberships MembershipCreator
	pipeline    *mutation.Pipeline
}

// NewServer returns a new Organization server.
func NewServer(orgs orgrepo.Repository, memberships MembershipCreator, pipeline *mutation.Pipeline) *Server {
	return &Server{orgs: orgs, memberships: memberships, pipeline: pipeline}
}

// CreateOrganization creates an organization with the caller as its ADMIN, in one transaction.
func (s *Server) CreateOrganization(ctx context.Context, req *organizationv1.CreateOrganizationRequest) (*organizationv1.OrganizationResponse, error) {
	op := mutation.Op[organizationv1.CreateOrganizationRequest, organizationv1.OrganizationResponse]{
		Action:     "create",
		EntityType: "organization",
		Validate: func(in *organizationv1.CreateOrganizationRequest) error {
			return (&domain.Org{Name: in.Name, Slug: strings.TrimSpace(in.Slug)}).Validate()
		},
		Apply: func(ctx context.Context, p *session.Principal, in *organizationv1.CreateOrganizationRequest) (*organizationv1.OrganizationResponse, mutation.Result, error) {
			now := s.pipeline.Now()
			org := &domain.Org{
				ID:        uuid.NewString(),
				Name:      in.Name,
				Slug:      strings.TrimSpace(in.Slug),
				CreatedBy: p.UserID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := org.Validate(); err != nil {
				return nil, mutation.Result{}, err
			}
			if err := s.orgs.CreateOrganization(ctx, org); err != nil {
				return nil, mutation.Result{}, apperr.Storage("create organization", err)
			}
			if err := s.memberships.CreateMembership(ctx, &membershipdomain.Membership{
				ID:        uuid.NewString(),
				UserID:    p.UserID,
				OrgID:     org.ID,
				Role:      membershipdomain.RoleAdmin,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return nil, mutation.Result{}, err
			}
			return &organizationv1.OrganizationResponse{Organization: orgToProto(org, membershipdomain.RoleAdmin)}, mutation.Result{
				OrgID:     org.ID,
				EntityIDs: []string{org.ID},
				Metadata:  map[string]any{"name": org.Name, "slug": org.Slug},
			}, nil
		},
	}
	out, err := mutation.Run(ctx, s.pipeline, "", op, req)
	if err != nil {
		return nil, err
	}
	session.Forget(ctx)
	return out, nil
}

// GetOrganization returns an organization the caller belongs to.
func (s *Server) GetOrganization(ctx context.Context, req *organizationv1.GetOrganizationRequest) (*organizationv1.OrganizationResponse, error) {
	p, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.GetOrganizationByID(ctx, req.OrgID)
	if err != nil {
		return nil, apperr.Storage("get organization", err)
	}
	if org == nil {
		return nil, apperr.NotFound("organization", req.OrgID)
	}
	return &organizationv1.OrganizationResponse{Organization: orgToProto(org, roleIn(p, org.ID))}, nil
}

// ListMyOrganizations returns every live organization the caller belongs to, with their role.
func (s *Server) ListMyOrganizations(ctx context.Context, _ *organizationv1.ListMyOrganizationsRequest) (*organizationv1.ListMyOrganizationsResponse, error) {
	p, err := s.pipeline.Authorize(ctx, "", "")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(p.Memberships))
	for id := range p.Memberships {
		ids = append(ids, id)
	}
	orgs, err := s.orgs.ListOrganizationsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Storage("list organizations", err)
	}
	out := make([]*organizationv1.Organization, len(orgs))
	for i, o := range orgs {
		out[i] = orgToProto(o, roleIn(p, o.ID))
	}
	return &organizationv1.ListMyOrganizationsResponse{Organizations: out}, nil
}

// UpdateOrganization renames an organization or changes its slug.
func (s *Server) UpdateOrganization(ctx context.Context, req *organizationv1.UpdateOrganizationRequest) (*organizationv1.OrganizationResponse, error) {
	op := mutation.Op[organizationv1.UpdateOrganizationRequest, organizationv1.OrganizationResponse]{
		Action:     "update",
		EntityType: "organization",
		MinRole:    membershipdomain.RoleAdmin,
		Apply: func(ctx context.Context, p *session.Principal, in *organizationv1.UpdateOrganizationRequest) (*organizationv1.OrganizationResponse, mutation.Result, error) {
			org, err := s.orgs.GetOrganizationByID(ctx, in.OrgID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if org == nil {
				return nil, mutation.Result{}, apperr.NotFound("organization", in.OrgID)
			}
			changed := map[string]any{}
			if in.Name != nil {
				org.Name = *in.Name
				changed["name"] = strings.TrimSpace(*in.Name)
			}
			if in.Slug != nil {
				org.Slug = strings.TrimSpace(*in.Slug)
				changed["slug"] = org.Slug
			}
			if err := org.Validate(); err != nil {
				return nil, mutation.Result{}, err
			}
			org.UpdatedAt = s.pipeline.Now()
			if _, err := s.orgs.UpdateOrganization(ctx, org); err != nil {
				return nil, mutation.Result{}, apperr.Storage("update organization", err)
			}
			return &organizationv1.OrganizationResponse{Organization: orgToProto(org, roleIn(p, org.ID))}, mutation.Result{
				EntityIDs: []string{org.ID},
				Metadata:  changed,
				Paths:     []string{revalidate.OrgPath(org.ID)},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// DeleteOrganization soft-deletes an organization. Its memberships stop resolving immediately.
func (s *Server) DeleteOrganization(ctx context.Context, req *organizationv1.DeleteOrganizationRequest) (*organizationv1.DeleteOrganizationResponse, error) {
	op := mutation.Op[organizationv1.DeleteOrganizationRequest, organizationv1.DeleteOrganizationResponse]{
		Action:     "delete",
		EntityType: "organization",
		MinRole:    membershipdomain.RoleAdmin,
		Apply: func(ctx context.Context, _ *session.Principal, in *organizationv1.DeleteOrganizationRequest) (*organizationv1.DeleteOrganizationResponse, mutation.Result, error) {
			ok, err := s.orgs.DeleteOrganization(ctx, in.OrgID, s.pipeline.Now())
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if !ok {
				return nil, mutation.Result{}, apperr.NotFound("organization", in.OrgID)
			}
			return &organizationv1.DeleteOrganizationResponse{}, mutation.Result{
				EntityIDs: []string{in.OrgID},
				Paths:     []string{revalidate.OrgPath(in.OrgID)},
			}, nil
		},
	}
	out, err := mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
	if err != nil {
		return nil, err
	}
	session.Forget(ctx)
	return out, nil
}

func roleIn(p *session.Principal, orgID string) membershipdomain.Role {
	if m := p.Membership(orgID); m != nil {
		return m.Role
	}
	return ""
}

func orgToProto(o *domain.Org, role membershipdomain.Role) *organizationv1.Organization {
	return &organizationv1.Organization{
		ID:        o.ID,
		Name:      o.Name,
		Slug:      o.Slug,
		CreatedBy: o.CreatedBy,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		Role:      string(role),
	}
}
