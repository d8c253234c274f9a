package handler

import (
	"context"
	"time"

	"github.com/google/uuid"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	membershipv1 "github.com/foozio/prodmatic-sub002/api/membership/v1"
	"github.com/foozio/prodmatic-sub002/internal/membership/domain"
	membershiprepo "github.com/foozio/prodmatic-sub002/internal/membership/repository"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/security"
	"github.com/foozio/prodmatic-sub002/internal/session"
	userdomain "github.com/foozio/prodmatic-sub002/internal/user/domain"
)

// InvitationTTL is how long an invitation can be accepted.
const InvitationTTL = 7 * 24 * time.Hour

// Server implements MembershipService.
type Server struct {
	repo     membershiprepo.Repository
	pipeline *mutation.Pipeline
}

// NewServer returns a new Membership server.
func NewServer(repo membershiprepo.Repository, pipeline *mutation.Pipeline) *Server {
	return &Server{repo: repo, pipeline: pipeline}
}

// InviteMember creates an invitation and returns its token. Only the token hash is stored.
func (s *Server) InviteMember(ctx context.Context, req *membershipv1.InviteMemberRequest) (*membershipv1.InviteMemberResponse, error) {
	var role domain.Role
	op := mutation.Op[membershipv1.InviteMemberRequest, membershipv1.InviteMemberResponse]{
		Action:     "create",
		EntityType: "invitation",
		MinRole:    domain.RoleAdmin,
		Validate: func(in *membershipv1.InviteMemberRequest) error {
			in.Email = userdomain.NormalizeEmail(in.Email)
			var (
				v  apperr.Validator
				ok bool
			)
			v.Check(userdomain.ValidEmail(in.Email), "email", "must be a valid email address")
			role, ok = domain.ParseRole(in.Role)
			v.Check(ok, "role", "must be one of ADMIN, PRODUCT_MANAGER, CONTRIBUTOR, STAKEHOLDER")
			return v.Err()
		},
		Apply: func(ctx context.Context, p *session.Principal, in *membershipv1.InviteMemberRequest) (*membershipv1.InviteMemberResponse, mutation.Result, error) {
			token, err := security.RandomToken(32)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			inv := &domain.Invitation{
				ID:        uuid.NewString(),
				OrgID:     in.OrgID,
				Email:     in.Email,
				Role:      role,
				TokenHash: security.HashSecret(token),
				InvitedBy: p.UserID,
				ExpiresAt: now.Add(InvitationTTL),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.CreateInvitation(ctx, inv); err != nil {
				return nil, mutation.Result{}, err
			}
			return &membershipv1.InviteMemberResponse{Invitation: invitationToProto(inv), Token: token}, mutation.Result{
				EntityIDs: []string{inv.ID},
				Metadata:  map[string]any{"email": inv.Email, "role": string(inv.Role)},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

var acceptInvitation = mutation.Op[membershipv1.AcceptInvitationRequest, membershipv1.MemberResponse]{
	Action:     "create",
	EntityType: "membership",
	Validate: func(in *membershipv1.AcceptInvitationRequest) error {
		var v apperr.Validator
		v.Check(in.Token != "", "token", "is required")
		return v.Err()
	},
}

// AcceptInvitation makes the caller a member of the inviting organization. The caller's email
// must match the invitation.
func (s *Server) AcceptInvitation(ctx context.Context, req *membershipv1.AcceptInvitationRequest) (*membershipv1.MemberResponse, error) {
	op := acceptInvitation
	op.Apply = func(ctx context.Context, p *session.Principal, in *membershipv1.AcceptInvitationRequest) (*membershipv1.MemberResponse, mutation.Result, error) {
		now := s.pipeline.Now()
		inv, err := s.repo.GetInvitationByTokenHash(ctx, security.HashSecret(in.Token))
		if err != nil {
			return nil, mutation.Result{}, err
		}
		if inv == nil || !inv.Pending(now) {
			return nil, mutation.Result{}, apperr.NotFound("invitation", "")
		}
		if userdomain.NormalizeEmail(p.Email) != inv.Email {
			return nil, mutation.Result{}, apperr.Unauthorized("invitation was sent to another email address")
		}
		existing, err := s.repo.GetMembershipByUserAndOrg(ctx, p.UserID, inv.OrgID)
		if err != nil {
			return nil, mutation.Result{}, err
		}
		if existing != nil {
			return nil, mutation.Result{}, apperr.Conflict("already a member of this organization")
		}
		ok, err := s.repo.MarkInvitationAccepted(ctx, inv.ID, p.UserID, now)
		if err != nil {
			return nil, mutation.Result{}, err
		}
		if !ok {
			return nil, mutation.Result{}, apperr.Conflict("invitation was already accepted")
		}
		m := &domain.Membership{
			ID:        uuid.NewString(),
			UserID:    p.UserID,
			OrgID:     inv.OrgID,
			Role:      inv.Role,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CreateMembership(ctx, m); err != nil {
			return nil, mutation.Result{}, apperr.Storage("create membership", err)
		}
		return &membershipv1.MemberResponse{Member: memberToProto(m)}, mutation.Result{
			OrgID:     inv.OrgID,
			EntityIDs: []string{m.ID},
			Metadata:  map[string]any{"user_id": p.UserID, "role": string(m.Role), "invitation_id": inv.ID},
		}, nil
	}
	out, err := mutation.Run(ctx, s.pipeline, "", op, req)
	if err != nil {
		return nil, err
	}
	session.Forget(ctx)
	return out, nil
}

// ListInvitations returns the organization's pending invitations.
func (s *Server) ListInvitations(ctx context.Context, req *membershipv1.ListInvitationsRequest) (*membershipv1.ListInvitationsResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, domain.RoleAdmin); err != nil {
		return nil, err
	}
	list, err := s.repo.ListPendingInvitations(ctx, req.OrgID, s.pipeline.Now())
	if err != nil {
		return nil, apperr.Storage("list invitations", err)
	}
	out := make([]*membershipv1.Invitation, len(list))
	for i, inv := range list {
		out[i] = invitationToProto(inv)
	}
	return &membershipv1.ListInvitationsResponse{Invitations: out}, nil
}

// UpdateRole changes a member's role. The last ADMIN cannot be demoted.
func (s *Server) UpdateRole(ctx context.Context, req *membershipv1.UpdateRoleRequest) (*membershipv1.MemberResponse, error) {
	var role domain.Role
	op := mutation.Op[membershipv1.UpdateRoleRequest, membershipv1.MemberResponse]{
		Action:     "update",
		EntityType: "membership",
		MinRole:    domain.RoleAdmin,
		Validate: func(in *membershipv1.UpdateRoleRequest) error {
			var (
				v  apperr.Validator
				ok bool
			)
			v.Check(in.UserID != "", "user_id", "is required")
			role, ok = domain.ParseRole(in.Role)
			v.Check(ok, "role", "must be one of ADMIN, PRODUCT_MANAGER, CONTRIBUTOR, STAKEHOLDER")
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *membershipv1.UpdateRoleRequest) (*membershipv1.MemberResponse, mutation.Result, error) {
			cur, err := s.repo.GetMembershipByUserAndOrg(ctx, in.UserID, in.OrgID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if cur == nil {
				return nil, mutation.Result{}, apperr.NotFound("member", in.UserID)
			}
			if cur.Role == domain.RoleAdmin && role != domain.RoleAdmin {
				if err := s.ensureAnotherAdmin(ctx, in.OrgID); err != nil {
					return nil, mutation.Result{}, err
				}
			}
			from := cur.Role
			m, err := s.repo.UpdateRole(ctx, in.UserID, in.OrgID, role, s.pipeline.Now())
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if m == nil {
				return nil, mutation.Result{}, apperr.NotFound("member", in.UserID)
			}
			return &membershipv1.MemberResponse{Member: memberToProto(m)}, mutation.Result{
				EntityIDs: []string{m.ID},
				Metadata:  map[string]any{"user_id": in.UserID, "from": string(from), "to": string(role)},
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

// RemoveMember removes a member. Admins may remove anyone; other members only themselves. The
// last ADMIN cannot be removed.
func (s *Server) RemoveMember(ctx context.Context, req *membershipv1.RemoveMemberRequest) (*membershipv1.RemoveMemberResponse, error) {
	op := mutation.Op[membershipv1.RemoveMemberRequest, membershipv1.RemoveMemberResponse]{
		Action:     "delete",
		EntityType: "membership",
		MinRole:    domain.RoleStakeholder,
		Validate: func(in *membershipv1.RemoveMemberRequest) error {
			var v apperr.Validator
			v.Check(in.UserID != "", "user_id", "is required")
			return v.Err()
		},
		Apply: func(ctx context.Context, p *session.Principal, in *membershipv1.RemoveMemberRequest) (*membershipv1.RemoveMemberResponse, mutation.Result, error) {
			if in.UserID != p.UserID {
				if caller := p.Membership(in.OrgID); caller == nil || !caller.Role.AtLeast(domain.RoleAdmin) {
					return nil, mutation.Result{}, apperr.Unauthorized("only admins may remove other members")
				}
			}
			cur, err := s.repo.GetMembershipByUserAndOrg(ctx, in.UserID, in.OrgID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if cur == nil {
				return nil, mutation.Result{}, apperr.NotFound("member", in.UserID)
			}
			if cur.Role == domain.RoleAdmin {
				if err := s.ensureAnotherAdmin(ctx, in.OrgID); err != nil {
					return nil, mutation.Result{}, err
				}
			}
			if _, err := s.repo.DeleteByUserAndOrg(ctx, in.UserID, in.OrgID); err != nil {
				return nil, mutation.Result{}, err
			}
			return &membershipv1.RemoveMemberResponse{}, mutation.Result{
				EntityIDs: []string{cur.ID},
				Metadata:  map[string]any{"user_id": in.UserID, "role": string(cur.Role), "self": in.UserID == p.UserID},
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

// ensureAnotherAdmin fails with a ConflictError when the organization has at most one ADMIN.
// The count locks the admin rows until the transaction ends.
func (s *Server) ensureAnotherAdmin(ctx context.Context, orgID string) error {
	n, err := s.repo.CountAdminsForUpdate(ctx, orgID)
	if err != nil {
		return err
	}
	if n <= 1 {
		return apperr.Conflict("an organization must keep at least one admin")
	}
	return nil
}

// ListMembers returns the organization's members.
func (s *Server) ListMembers(ctx context.Context, req *membershipv1.ListMembersRequest) (*membershipv1.ListMembersResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, domain.RoleStakeholder); err != nil {
		return nil, err
	}
	limit, offset := req.Pagination.LimitOffset()
	list, err := s.repo.ListMembershipsByOrg(ctx, req.OrgID, limit, offset)
	if err != nil {
		return nil, apperr.Storage("list members", err)
	}
	out := make([]*membershipv1.Member, len(list))
	for i, m := range list {
		out[i] = memberToProto(m)
	}
	return &membershipv1.ListMembersResponse{Members: out, Pagination: commonv1.Next(limit, offset, len(list))}, nil
}

func memberToProto(m *domain.Membership) *membershipv1.Member {
	return &membershipv1.Member{
		ID:        m.ID,
		UserID:    m.UserID,
		OrgID:     m.OrgID,
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func invitationToProto(i *domain.Invitation) *membershipv1.Invitation {
	return &membershipv1.Invitation{
		ID:        i.ID,
		OrgID:     i.OrgID,
		Email:     i.Email,
		Role:      string(i.Role),
		InvitedBy: i.InvitedBy,
		ExpiresAt: i.ExpiresAt,
		CreatedAt: i.CreatedAt,
	}
}
