package handler

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	ideav1 "github.com/foozio/prodmatic-sub002/api/idea/v1"
	"github.com/foozio/prodmatic-sub002/internal/idea/domain"
	idearepo "github.com/foozio/prodmatic-sub002/internal/idea/repository"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/product/scope"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	"github.com/foozio/prodmatic-sub002/internal/session"
)

// Server implements IdeaService.
type Server struct {
	repo     idearepo.Repository
	products scope.Checker
	pipeline *mutation.Pipeline
}

func NewServer(repo idearepo.Repository, products scope.Checker, pipeline *mutation.Pipeline) *Server {
	return &Server{repo: repo, products: products, pipeline: pipeline}
}

func (s *Server) CreateIdea(ctx context.Context, req *ideav1.CreateIdeaRequest) (*ideav1.IdeaResponse, error) {
	op := mutation.Op[ideav1.CreateIdeaRequest, ideav1.IdeaResponse]{
		Action:     "create",
		EntityType: "idea",
		MinRole:    membershipdomain.RoleContributor,
		Validate: func(in *ideav1.CreateIdeaRequest) error {
			var v apperr.Validator
			v.Check(in.ProductID != "", "product_id", "is required")
			v.Merge((&domain.Idea{Title: in.Title, Description: in.Description, Status: domain.StatusSubmitted}).Validate())
			return v.Err()
		},
		Apply: func(ctx context.Context, p *session.Principal, in *ideav1.CreateIdeaRequest) (*ideav1.IdeaResponse, mutation.Result, error) {
			if err := scope.Require(ctx, s.products, in.OrgID, in.ProductID); err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			i := &domain.Idea{
				ID:          uuid.NewString(),
				OrgID:       in.OrgID,
				ProductID:   in.ProductID,
				Title:       strings.TrimSpace(in.Title),
				Description: in.Description,
				Status:      domain.StatusSubmitted,
				CreatedBy:   p.UserID,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.repo.CreateIdea(ctx, i); err != nil {
				return nil, mutation.Result{}, err
			}
			return respond(i, map[string]any{"title": i.Title})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdateIdea(ctx context.Context, req *ideav1.UpdateIdeaRequest) (*ideav1.IdeaResponse, error) {
	op := mutation.Op[ideav1.UpdateIdeaRequest, ideav1.IdeaResponse]{
		Action:     "update",
		EntityType: "idea",
		MinRole:    membershipdomain.RoleContributor,
		Validate:   func(in *ideav1.UpdateIdeaRequest) error { return requireID(in.IdeaID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *ideav1.UpdateIdeaRequest) (*ideav1.IdeaResponse, mutation.Result, error) {
			i, err := s.load(ctx, in.OrgID, in.IdeaID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if in.Title != nil {
				i.Title = *in.Title
			}
			if in.Description != nil {
				i.Description = *in.Description
			}
			if err := s.save(ctx, i); err != nil {
				return nil, mutation.Result{}, err
			}
			return respond(i, map[string]any{"title": i.Title})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) ChangeIdeaStatus(ctx context.Context, req *ideav1.ChangeIdeaStatusRequest) (*ideav1.IdeaResponse, error) {
	op := mutation.Op[ideav1.ChangeIdeaStatusRequest, ideav1.IdeaResponse]{
		Action:     "status_change",
		EntityType: "idea",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *ideav1.ChangeIdeaStatusRequest) error {
			var v apperr.Validator
			v.Merge(requireID(in.IdeaID))
			in.Status = strings.ToUpper(strings.TrimSpace(in.Status))
			v.Check(domain.Status(in.Status).Valid(), "status", "must be one of SUBMITTED, UNDER_REVIEW, PLANNED, IN_PROGRESS, SHIPPED, REJECTED")
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *ideav1.ChangeIdeaStatusRequest) (*ideav1.IdeaResponse, mutation.Result, error) {
			i, err := s.load(ctx, in.OrgID, in.IdeaID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			from := i.Status
			i.Status = domain.Status(in.Status)
			if err := s.save(ctx, i); err != nil {
				return nil, mutation.Result{}, err
			}
			return respond(i, map[string]any{"from": string(from), "to": in.Status})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// ScoreIdea recomputes the score of every method whose inputs the request carries.
func (s *Server) ScoreIdea(ctx context.Context, req *ideav1.ScoreIdeaRequest) (*ideav1.IdeaResponse, error) {
	var rice, ice, wsjf float64
	op := mutation.Op[ideav1.ScoreIdeaRequest, ideav1.IdeaResponse]{
		Action:     "score",
		EntityType: "idea",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *ideav1.ScoreIdeaRequest) error {
			var (
				v   apperr.Validator
				err error
			)
			v.Merge(requireID(in.IdeaID))
			if in.RICE == nil && in.ICE == nil && in.WSJF == nil {
				v.Add("rice", "at least one of rice, ice or wsjf is required")
			}
			if r := in.RICE; r != nil {
				rice, err = domain.RICE(r.Reach, r.Impact, r.Confidence, r.Effort)
				v.Merge(err)
			}
			if c := in.ICE; c != nil {
				ice, err = domain.ICE(c.Impact, c.Confidence, c.Ease)
				v.Merge(err)
			}
			if w := in.WSJF; w != nil {
				wsjf, err = domain.WSJF(w.BusinessValue, w.TimeCriticality, w.RiskReduction, w.JobSize)
				v.Merge(err)
			}
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *ideav1.ScoreIdeaRequest) (*ideav1.IdeaResponse, mutation.Result, error) {
			i, err := s.load(ctx, in.OrgID, in.IdeaID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			meta := map[string]any{}
			if r := in.RICE; r != nil {
				i.Inputs.Reach, i.Inputs.Impact, i.Inputs.Confidence, i.Inputs.Effort = r.Reach, r.Impact, r.Confidence, r.Effort
				i.RICEScore = &rice
				meta["rice"] = rice
			}
			if c := in.ICE; c != nil {
				i.Inputs.ICEImpact, i.Inputs.ICEConfidence, i.Inputs.Ease = c.Impact, c.Confidence, c.Ease
				i.ICEScore = &ice
				meta["ice"] = ice
			}
			if w := in.WSJF; w != nil {
				i.Inputs.BusinessValue, i.Inputs.TimeCriticality, i.Inputs.RiskReduction, i.Inputs.JobSize = w.BusinessValue, w.TimeCriticality, w.RiskReduction, w.JobSize
				i.WSJFScore = &wsjf
				meta["wsjf"] = wsjf
			}
			if err := s.save(ctx, i); err != nil {
				return nil, mutation.Result{}, err
			}
			return respond(i, meta)
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) DeleteIdea(ctx context.Context, req *ideav1.DeleteIdeaRequest) (*ideav1.DeleteIdeaResponse, error) {
	op := mutation.Op[ideav1.DeleteIdeaRequest, ideav1.DeleteIdeaResponse]{
		Action:     "delete",
		EntityType: "idea",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *ideav1.DeleteIdeaRequest) error { return requireID(in.IdeaID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *ideav1.DeleteIdeaRequest) (*ideav1.DeleteIdeaResponse, mutation.Result, error) {
			i, err := s.load(ctx, in.OrgID, in.IdeaID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if _, err := s.repo.DeleteIdea(ctx, in.OrgID, i.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			return &ideav1.DeleteIdeaResponse{}, mutation.Result{
				EntityIDs: []string{i.ID},
				Metadata:  map[string]any{"title": i.Title},
				Paths:     []string{revalidate.ProductPath(i.OrgID, i.ProductID)},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// VoteIdea records one vote per user; a repeat vote is a ConflictError.
func (s *Server) VoteIdea(ctx context.Context, req *ideav1.VoteIdeaRequest) (*ideav1.IdeaResponse, error) {
	return s.vote(ctx, req, "vote", s.repo.AddVote, "already voted for this idea")
}

func (s *Server) UnvoteIdea(ctx context.Context, req *ideav1.VoteIdeaRequest) (*ideav1.IdeaResponse, error) {
	return s.vote(ctx, req, "unvote", s.repo.RemoveVote, "no vote to remove")
}

type voteFunc func(ctx context.Context, orgID, ideaID, userID string, at time.Time) (bool, error)

func (s *Server) vote(ctx context.Context, req *ideav1.VoteIdeaRequest, action string, apply voteFunc, conflict string) (*ideav1.IdeaResponse, error) {
	op := mutation.Op[ideav1.VoteIdeaRequest, ideav1.IdeaResponse]{
		Action:     action,
		EntityType: "idea",
		MinRole:    membershipdomain.RoleStakeholder,
		Validate:   func(in *ideav1.VoteIdeaRequest) error { return requireID(in.IdeaID) },
		Apply: func(ctx context.Context, p *session.Principal, in *ideav1.VoteIdeaRequest) (*ideav1.IdeaResponse, mutation.Result, error) {
			if _, err := s.load(ctx, in.OrgID, in.IdeaID); err != nil {
				return nil, mutation.Result{}, err
			}
			ok, err := apply(ctx, in.OrgID, in.IdeaID, p.UserID, s.pipeline.Now())
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if !ok {
				return nil, mutation.Result{}, apperr.Conflict("%s", conflict)
			}
			i, err := s.load(ctx, in.OrgID, in.IdeaID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			return respond(i, map[string]any{"vote_count": i.VoteCount})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) GetIdea(ctx context.Context, req *ideav1.GetIdeaRequest) (*ideav1.IdeaResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	i, err := s.load(ctx, req.OrgID, req.IdeaID)
	if err != nil {
		return nil, apperr.Storage("get idea", err)
	}
	return &ideav1.IdeaResponse{Idea: ideaToProto(i)}, nil
}

// ListIdeas returns live ideas, optionally of one product or status, ordered by the chosen score.
// Ideas without that score sort last.
func (s *Server) ListIdeas(ctx context.Context, req *ideav1.ListIdeasRequest) (*ideav1.ListIdeasResponse, error) {
	sortKey, ok := domain.ParseSortKey(req.SortBy)
	var v apperr.Validator
	v.Check(ok, "sort_by", "must be one of newest, rice, ice, wsjf, votes")
	status := domain.Status(strings.ToUpper(req.Status))
	v.Check(req.Status == "" || status.Valid(), "status", "is not a known status")
	if err := v.Err(); err != nil {
		return nil, err
	}
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	limit, offset := req.Pagination.LimitOffset()
	list, err := s.repo.ListIdeas(ctx, req.OrgID, domain.Filter{ProductID: req.ProductID, Status: status, Sort: sortKey}, limit, offset)
	if err != nil {
		return nil, apperr.Storage("list ideas", err)
	}
	out := make([]*ideav1.Idea, len(list))
	for i, idea := range list {
		out[i] = ideaToProto(idea)
	}
	return &ideav1.ListIdeasResponse{Ideas: out, Pagination: commonv1.Next(limit, offset, len(list))}, nil
}

func (s *Server) load(ctx context.Context, orgID, id string) (*domain.Idea, error) {
	i, err := s.repo.GetIdea(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if i == nil {
		return nil, apperr.NotFound("idea", id)
	}
	return i, nil
}

func (s *Server) save(ctx context.Context, i *domain.Idea) error {
	if err := i.Validate(); err != nil {
		return err
	}
	i.UpdatedAt = s.pipeline.Now()
	_, err := s.repo.UpdateIdea(ctx, i)
	return err
}

func respond(i *domain.Idea, meta map[string]any) (*ideav1.IdeaResponse, mutation.Result, error) {
	return &ideav1.IdeaResponse{Idea: ideaToProto(i)}, mutation.Result{
		EntityIDs: []string{i.ID},
		Metadata:  meta,
		Paths:     []string{revalidate.ProductPath(i.OrgID, i.ProductID)},
	}, nil
}

func requireID(id string) error {
	var v apperr.Validator
	v.Check(id != "", "idea_id", "is required")
	return v.Err()
}

func ideaToProto(i *domain.Idea) *ideav1.Idea {
	out := &ideav1.Idea{
		ID:          i.ID,
		OrgID:       i.OrgID,
		ProductID:   i.ProductID,
		Title:       i.Title,
		Description: i.Description,
		Status:      string(i.Status),
		RICEScore:   i.RICEScore,
		ICEScore:    i.ICEScore,
		WSJFScore:   i.WSJFScore,
		VoteCount:   i.VoteCount,
		CreatedBy:   i.CreatedBy,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
	in := i.Inputs
	if i.RICEScore != nil {
		out.RICE = &ideav1.RICEInput{Reach: in.Reach, Impact: in.Impact, Confidence: in.Confidence, Effort: in.Effort}
	}
	if i.ICEScore != nil {
		out.ICE = &ideav1.ICEInput{Impact: in.ICEImpact, Confidence: in.ICEConfidence, Ease: in.Ease}
	}
	if i.WSJFScore != nil {
		out.WSJF = &ideav1.WSJFInput{BusinessValue: in.BusinessValue, TimeCriticality: in.TimeCriticality, RiskReduction: in.RiskReduction, JobSize: in.JobSize}
	}
	return out
}
