package handler

import (
	"context"
	"strings"

	"github.com/google/uuid"

	policyv1 "github.com/foozio/prodmatic-sub002/api/policy/v1"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/policy/domain"
	"github.com/foozio/prodmatic-sub002/internal/policy/engine"
	policyrepo "github.com/foozio/prodmatic-sub002/internal/policy/repository"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	"github.com/foozio/prodmatic-sub002/internal/session"
)

const entityType = "policy"

// Server implements PolicyService. Only organization admins manage policies, and policy
// management itself is never subject to policies.
type Server struct {
	repo     policyrepo.Repository
	pipeline *mutation.Pipeline
}

// NewServer returns a new Policy server.
func NewServer(repo policyrepo.Repository, pipeline *mutation.Pipeline) *Server {
	return &Server{repo: repo, pipeline: pipeline}
}

// validate checks shape, then compiles the rules so a broken module is rejected before it can
// fail every mutation in the organization closed.
func validate(p *domain.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := engine.Compile(p.Rules); err != nil {
		var v apperr.Validator
		v.Add("rules", err.Error())
		return v.Err()
	}
	return nil
}

func (s *Server) CreatePolicy(ctx context.Context, req *policyv1.CreatePolicyRequest) (*policyv1.PolicyResponse, error) {
	op := mutation.Op[policyv1.CreatePolicyRequest, policyv1.PolicyResponse]{
		Action:     "create",
		EntityType: entityType,
		MinRole:    membershipdomain.RoleAdmin,
		SkipPolicy: true,
		Validate: func(in *policyv1.CreatePolicyRequest) error {
			return validate(&domain.Policy{Name: in.Name, Rules: in.Rules})
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *policyv1.CreatePolicyRequest) (*policyv1.PolicyResponse, mutation.Result, error) {
			now := s.pipeline.Now()
			p := &domain.Policy{
				ID:        uuid.NewString(),
				OrgID:     in.OrgID,
				Name:      strings.TrimSpace(in.Name),
				Rules:     in.Rules,
				Enabled:   in.Enabled,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.Create(ctx, p); err != nil {
				return nil, mutation.Result{}, err
			}
			return &policyv1.PolicyResponse{Policy: toProto(p)}, result(p, map[string]any{"name": p.Name, "enabled": p.Enabled}), nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdatePolicy(ctx context.Context, req *policyv1.UpdatePolicyRequest) (*policyv1.PolicyResponse, error) {
	op := mutation.Op[policyv1.UpdatePolicyRequest, policyv1.PolicyResponse]{
		Action:     "update",
		EntityType: entityType,
		MinRole:    membershipdomain.RoleAdmin,
		SkipPolicy: true,
		Validate: func(in *policyv1.UpdatePolicyRequest) error {
			var v apperr.Validator
			v.Check(in.PolicyID != "", "policy_id", "is required")
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *policyv1.UpdatePolicyRequest) (*policyv1.PolicyResponse, mutation.Result, error) {
			p, err := s.repo.GetByID(ctx, in.OrgID, in.PolicyID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if p == nil {
				return nil, mutation.Result{}, apperr.NotFound("policy", in.PolicyID)
			}
			changed := map[string]any{}
			if in.Name != nil {
				p.Name = strings.TrimSpace(*in.Name)
				changed["name"] = p.Name
			}
			if in.Rules != nil {
				p.Rules = *in.Rules
				changed["rules"] = true
			}
			if in.Enabled != nil {
				p.Enabled = *in.Enabled
				changed["enabled"] = p.Enabled
			}
			if err := validate(p); err != nil {
				return nil, mutation.Result{}, err
			}
			p.UpdatedAt = s.pipeline.Now()
			ok, err := s.repo.Update(ctx, p)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if !ok {
				return nil, mutation.Result{}, apperr.NotFound("policy", in.PolicyID)
			}
			return &policyv1.PolicyResponse{Policy: toProto(p)}, result(p, changed), nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) DeletePolicy(ctx context.Context, req *policyv1.DeletePolicyRequest) (*policyv1.DeletePolicyResponse, error) {
	op := mutation.Op[policyv1.DeletePolicyRequest, policyv1.DeletePolicyResponse]{
		Action:     "delete",
		EntityType: entityType,
		MinRole:    membershipdomain.RoleAdmin,
		SkipPolicy: true,
		Validate: func(in *policyv1.DeletePolicyRequest) error {
			var v apperr.Validator
			v.Check(in.PolicyID != "", "policy_id", "is required")
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *policyv1.DeletePolicyRequest) (*policyv1.DeletePolicyResponse, mutation.Result, error) {
			ok, err := s.repo.Delete(ctx, in.OrgID, in.PolicyID, s.pipeline.Now())
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if !ok {
				return nil, mutation.Result{}, apperr.NotFound("policy", in.PolicyID)
			}
			return &policyv1.DeletePolicyResponse{}, mutation.Result{
				EntityIDs: []string{in.PolicyID},
				Paths:     []string{revalidate.OrgPath(in.OrgID)},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) GetPolicy(ctx context.Context, req *policyv1.GetPolicyRequest) (*policyv1.PolicyResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleAdmin); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, req.OrgID, req.PolicyID)
	if err != nil {
		return nil, apperr.Storage("get policy", err)
	}
	if p == nil {
		return nil, apperr.NotFound("policy", req.PolicyID)
	}
	return &policyv1.PolicyResponse{Policy: toProto(p)}, nil
}

func (s *Server) ListPolicies(ctx context.Context, req *policyv1.ListPoliciesRequest) (*policyv1.ListPoliciesResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleAdmin); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByOrg(ctx, req.OrgID)
	if err != nil {
		return nil, apperr.Storage("list policies", err)
	}
	out := make([]*policyv1.Policy, len(list))
	for i, p := range list {
		out[i] = toProto(p)
	}
	return &policyv1.ListPoliciesResponse{Policies: out}, nil
}

func result(p *domain.Policy, metadata map[string]any) mutation.Result {
	return mutation.Result{
		EntityIDs: []string{p.ID},
		Metadata:  metadata,
		Paths:     []string{revalidate.OrgPath(p.OrgID)},
	}
}

func toProto(p *domain.Policy) *policyv1.Policy {
	return &policyv1.Policy{
		ID:        p.ID,
		OrgID:     p.OrgID,
		Name:      p.Name,
		Rules:     p.Rules,
		Enabled:   p.Enabled,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
