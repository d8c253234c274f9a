package handler

import (
	"context"

	"github.com/google/uuid"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	personav1 "github.com/foozio/prodmatic-sub002/api/persona/v1"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/persona/domain"
	personarepo "github.com/foozio/prodmatic-sub002/internal/persona/repository"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/product/scope"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	"github.com/foozio/prodmatic-sub002/internal/session"
)

// Server implements PersonaService.
type Server struct {
	repo     personarepo.Repository
	products scope.Checker
	pipeline *mutation.Pipeline
}

func NewServer(repo personarepo.Repository, products scope.Checker, pipeline *mutation.Pipeline) *Server {
	return &Server{repo: repo, products: products, pipeline: pipeline}
}

func (s *Server) CreatePersona(ctx context.Context, req *personav1.CreatePersonaRequest) (*personav1.PersonaResponse, error) {
	var p *domain.Persona
	op := mutation.Op[personav1.CreatePersonaRequest, personav1.PersonaResponse]{
		Action:     "create",
		EntityType: "persona",
		MinRole:    membershipdomain.RoleContributor,
		Validate: func(in *personav1.CreatePersonaRequest) error {
			p = &domain.Persona{
				ProductID:   in.ProductID,
				Name:        in.Name,
				Title:       in.Title,
				Description: in.Description,
				Goals:       in.Goals,
				PainPoints:  in.PainPoints,
			}
			var v apperr.Validator
			v.Check(in.ProductID != "", "product_id", "is required")
			v.Merge(p.Validate())
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *personav1.CreatePersonaRequest) (*personav1.PersonaResponse, mutation.Result, error) {
			if err := scope.Require(ctx, s.products, in.OrgID, in.ProductID); err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			p.ID, p.OrgID, p.CreatedAt, p.UpdatedAt = uuid.NewString(), in.OrgID, now, now
			if err := s.repo.CreatePersona(ctx, p); err != nil {
				return nil, mutation.Result{}, err
			}
			return respond(p)
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdatePersona(ctx context.Context, req *personav1.UpdatePersonaRequest) (*personav1.PersonaResponse, error) {
	op := mutation.Op[personav1.UpdatePersonaRequest, personav1.PersonaResponse]{
		Action:     "update",
		EntityType: "persona",
		MinRole:    membershipdomain.RoleContributor,
		Validate:   func(in *personav1.UpdatePersonaRequest) error { return requireID(in.PersonaID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *personav1.UpdatePersonaRequest) (*personav1.PersonaResponse, mutation.Result, error) {
			p, err := s.load(ctx, in.OrgID, in.PersonaID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if in.Name != nil {
				p.Name = *in.Name
			}
			if in.Title != nil {
				p.Title = *in.Title
			}
			if in.Description != nil {
				p.Description = *in.Description
			}
			if in.Goals != nil {
				p.Goals = *in.Goals
			}
			if in.PainPoints != nil {
				p.PainPoints = *in.PainPoints
			}
			if err := p.Validate(); err != nil {
				return nil, mutation.Result{}, err
			}
			p.UpdatedAt = s.pipeline.Now()
			if _, err := s.repo.UpdatePersona(ctx, p); err != nil {
				return nil, mutation.Result{}, err
			}
			return respond(p)
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) DeletePersona(ctx context.Context, req *personav1.PersonaRequest) (*commonv1.Empty, error) {
	op := mutation.Op[personav1.PersonaRequest, commonv1.Empty]{
		Action:     "delete",
		EntityType: "persona",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *personav1.PersonaRequest) error { return requireID(in.PersonaID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *personav1.PersonaRequest) (*commonv1.Empty, mutation.Result, error) {
			p, err := s.load(ctx, in.OrgID, in.PersonaID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if _, err := s.repo.DeletePersona(ctx, in.OrgID, p.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			_, res, _ := respond(p)
			return &commonv1.Empty{}, res, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) GetPersona(ctx context.Context, req *personav1.PersonaRequest) (*personav1.PersonaResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	p, err := s.load(ctx, req.OrgID, req.PersonaID)
	if err != nil {
		return nil, apperr.Storage("get persona", err)
	}
	return &personav1.PersonaResponse{Persona: toProto(p)}, nil
}

func (s *Server) ListPersonas(ctx context.Context, req *personav1.ListPersonasRequest) (*personav1.ListPersonasResponse, error) {
	var v apperr.Validator
	v.Check(req.ProductID != "", "product_id", "is required")
	if err := v.Err(); err != nil {
		return nil, err
	}
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	limit, offset := req.Pagination.LimitOffset()
	list, err := s.repo.ListPersonas(ctx, req.OrgID, req.ProductID, limit, offset)
	if err != nil {
		return nil, apperr.Storage("list personas", err)
	}
	out := make([]*personav1.Persona, len(list))
	for i, p := range list {
		out[i] = toProto(p)
	}
	return &personav1.ListPersonasResponse{Personas: out, Pagination: commonv1.Next(limit, offset, len(list))}, nil
}

func (s *Server) load(ctx context.Context, orgID, id string) (*domain.Persona, error) {
	p, err := s.repo.GetPersona(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("persona", id)
	}
	return p, nil
}

func respond(p *domain.Persona) (*personav1.PersonaResponse, mutation.Result, error) {
	return &personav1.PersonaResponse{Persona: toProto(p)}, mutation.Result{
		EntityIDs: []string{p.ID},
		Metadata:  map[string]any{"name": p.Name},
		Paths:     []string{revalidate.ProductPath(p.OrgID, p.ProductID)},
	}, nil
}

func requireID(id string) error {
	var v apperr.Validator
	v.Check(id != "", "persona_id", "is required")
	return v.Err()
}

func toProto(p *domain.Persona) *personav1.Persona {
	return &personav1.Persona{
		ID:          p.ID,
		OrgID:       p.OrgID,
		ProductID:   p.ProductID,
		Name:        p.Name,
		Title:       p.Title,
		Description: p.Description,
		Goals:       domain.CleanList(p.Goals),
		PainPoints:  domain.CleanList(p.PainPoints),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
