package handler

import (
	"context"
	"strings"

	"github.com/google/uuid"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	experimentv1 "github.com/foozio/prodmatic-sub002/api/experiment/v1"
	"github.com/foozio/prodmatic-sub002/internal/experiment/domain"
	experimentrepo "github.com/foozio/prodmatic-sub002/internal/experiment/repository"
	ideadomain "github.com/foozio/prodmatic-sub002/internal/idea/domain"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/product/scope"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	"github.com/foozio/prodmatic-sub002/internal/session"
)

// IdeaGetter looks up a live idea of an organization.
type IdeaGetter interface {
	GetIdea(ctx context.Context, orgID, id string) (*ideadomain.Idea, error)
}

// Server implements ExperimentService.
type Server struct {
	repo     experimentrepo.Repository
	products scope.Checker
	ideas    IdeaGetter
	pipeline *mutation.Pipeline
}

func NewServer(repo experimentrepo.Repository, products scope.Checker, ideas IdeaGetter, pipeline *mutation.Pipeline) *Server {
	return &Server{repo: repo, products: products, ideas: ideas, pipeline: pipeline}
}

func (s *Server) CreateExperiment(ctx context.Context, req *experimentv1.CreateExperimentRequest) (*experimentv1.ExperimentResponse, error) {
	var e *domain.Experiment
	op := mutation.Op[experimentv1.CreateExperimentRequest, experimentv1.ExperimentResponse]{
		Action:     "create",
		EntityType: "experiment",
		MinRole:    membershipdomain.RoleContributor,
		Validate: func(in *experimentv1.CreateExperimentRequest) error {
			e = &domain.Experiment{
				ProductID:  in.ProductID,
				IdeaID:     strings.TrimSpace(in.IdeaID),
				Name:       in.Name,
				Hypothesis: in.Hypothesis,
				Metric:     in.Metric,
				Status:     domain.StatusDraft,
			}
			var v apperr.Validator
			v.Check(in.ProductID != "", "product_id", "is required")
			v.Merge(e.Validate())
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *experimentv1.CreateExperimentRequest) (*experimentv1.ExperimentResponse, mutation.Result, error) {
			if err := scope.Require(ctx, s.products, in.OrgID, in.ProductID); err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			e.ID, e.OrgID, e.CreatedAt, e.UpdatedAt = uuid.NewString(), in.OrgID, now, now
			if err := s.checkIdea(ctx, e); err != nil {
				return nil, mutation.Result{}, err
			}
			if err := s.repo.CreateExperiment(ctx, e); err != nil {
				return nil, mutation.Result{}, err
			}
			return respond(e, map[string]any{"name": e.Name})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdateExperiment(ctx context.Context, req *experimentv1.UpdateExperimentRequest) (*experimentv1.ExperimentResponse, error) {
	op := mutation.Op[experimentv1.UpdateExperimentRequest, experimentv1.ExperimentResponse]{
		Action:     "update",
		EntityType: "experiment",
		MinRole:    membershipdomain.RoleContributor,
		Validate:   func(in *experimentv1.UpdateExperimentRequest) error { return requireID(in.ExperimentID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *experimentv1.UpdateExperimentRequest) (*experimentv1.ExperimentResponse, mutation.Result, error) {
			e, err := s.load(ctx, in.OrgID, in.ExperimentID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			for dst, src := range map[*string]*string{&e.IdeaID: in.IdeaID, &e.Name: in.Name, &e.Hypothesis: in.Hypothesis, &e.Metric: in.Metric, &e.Learnings: in.Learnings} {
				if src != nil {
					*dst = strings.TrimSpace(*src)
				}
			}
			if err := e.Validate(); err != nil {
				return nil, mutation.Result{}, err
			}
			if err := s.checkIdea(ctx, e); err != nil {
				return nil, mutation.Result{}, err
			}
			if err := s.save(ctx, e); err != nil {
				return nil, mutation.Result{}, err
			}
			return respond(e, map[string]any{"name": e.Name})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// TransitionExperiment moves an experiment through DRAFT, RUNNING and COMPLETED or CANCELLED.
func (s *Server) TransitionExperiment(ctx context.Context, req *experimentv1.TransitionExperimentRequest) (*experimentv1.ExperimentResponse, error) {
	op := mutation.Op[experimentv1.TransitionExperimentRequest, experimentv1.ExperimentResponse]{
		Action:     "transition",
		EntityType: "experiment",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *experimentv1.TransitionExperimentRequest) error {
			in.Status = strings.ToUpper(strings.TrimSpace(in.Status))
			in.Outcome = strings.ToUpper(strings.TrimSpace(in.Outcome))
			var v apperr.Validator
			v.Merge(requireID(in.ExperimentID))
			v.Check(domain.Status(in.Status).Valid(), "status", "must be one of DRAFT, RUNNING, COMPLETED, CANCELLED")
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *experimentv1.TransitionExperimentRequest) (*experimentv1.ExperimentResponse, mutation.Result, error) {
			e, err := s.load(ctx, in.OrgID, in.ExperimentID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			from := e.Status
			if err := e.Transition(domain.Status(in.Status), domain.Outcome(in.Outcome), in.Learnings, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			if err := s.save(ctx, e); err != nil {
				return nil, mutation.Result{}, err
			}
			meta := map[string]any{"from": string(from), "to": string(e.Status)}
			if e.Outcome != "" {
				meta["outcome"] = string(e.Outcome)
			}
			return respond(e, meta)
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) DeleteExperiment(ctx context.Context, req *experimentv1.ExperimentRequest) (*commonv1.Empty, error) {
	op := mutation.Op[experimentv1.ExperimentRequest, commonv1.Empty]{
		Action:     "delete",
		EntityType: "experiment",
		MinRole:    membershipdomain.RoleContributor,
		Validate:   func(in *experimentv1.ExperimentRequest) error { return requireID(in.ExperimentID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *experimentv1.ExperimentRequest) (*commonv1.Empty, mutation.Result, error) {
			e, err := s.load(ctx, in.OrgID, in.ExperimentID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if _, err := s.repo.DeleteExperiment(ctx, in.OrgID, e.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			_, res, _ := respond(e, map[string]any{"name": e.Name})
			return &commonv1.Empty{}, res, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) GetExperiment(ctx context.Context, req *experimentv1.ExperimentRequest) (*experimentv1.ExperimentResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	e, err := s.load(ctx, req.OrgID, req.ExperimentID)
	if err != nil {
		return nil, apperr.Storage("get experiment", err)
	}
	return &experimentv1.ExperimentResponse{Experiment: toProto(e)}, nil
}

func (s *Server) ListExperiments(ctx context.Context, req *experimentv1.ListExperimentsRequest) (*experimentv1.ListExperimentsResponse, error) {
	status := domain.Status(strings.ToUpper(strings.TrimSpace(req.Status)))
	var v apperr.Validator
	v.Check(status == "" || status.Valid(), "status", "is not a known experiment status")
	if err := v.Err(); err != nil {
		return nil, err
	}
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	limit, offset := req.Pagination.LimitOffset()
	list, err := s.repo.ListExperiments(ctx, req.OrgID, req.ProductID, status, limit, offset)
	if err != nil {
		return nil, apperr.Storage("list experiments", err)
	}
	out := make([]*experimentv1.Experiment, len(list))
	for i, e := range list {
		out[i] = toProto(e)
	}
	return &experimentv1.ListExperimentsResponse{Experiments: out, Pagination: commonv1.Next(limit, offset, len(list))}, nil
}

func (s *Server) checkIdea(ctx context.Context, e *domain.Experiment) error {
	if e.IdeaID == "" {
		return nil
	}
	idea, err := s.ideas.GetIdea(ctx, e.OrgID, e.IdeaID)
	if err != nil {
		return err
	}
	var v apperr.Validator
	v.Check(idea != nil && idea.ProductID == e.ProductID, "idea_id", "must be an idea of the same product")
	return v.Err()
}

func (s *Server) load(ctx context.Context, orgID, id string) (*domain.Experiment, error) {
	e, err := s.repo.GetExperiment(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperr.NotFound("experiment", id)
	}
	return e, nil
}

func (s *Server) save(ctx context.Context, e *domain.Experiment) error {
	e.UpdatedAt = s.pipeline.Now()
	_, err := s.repo.UpdateExperiment(ctx, e)
	return err
}

func respond(e *domain.Experiment, meta map[string]any) (*experimentv1.ExperimentResponse, mutation.Result, error) {
	return &experimentv1.ExperimentResponse{Experiment: toProto(e)}, mutation.Result{
		EntityIDs: []string{e.ID},
		Metadata:  meta,
		Paths:     []string{revalidate.ProductPath(e.OrgID, e.ProductID)},
	}, nil
}

func requireID(id string) error {
	var v apperr.Validator
	v.Check(id != "", "experiment_id", "is required")
	return v.Err()
}

func toProto(e *domain.Experiment) *experimentv1.Experiment {
	return &experimentv1.Experiment{
		ID:         e.ID,
		OrgID:      e.OrgID,
		ProductID:  e.ProductID,
		IdeaID:     e.IdeaID,
		Name:       e.Name,
		Hypothesis: e.Hypothesis,
		Metric:     e.Metric,
		Status:     string(e.Status),
		Outcome:    string(e.Outcome),
		Learnings:  e.Learnings,
		StartedAt:  e.StartedAt,
		EndedAt:    e.EndedAt,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}
