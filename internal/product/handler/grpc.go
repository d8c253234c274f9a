package handler

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	productv1 "github.com/foozio/prodmatic-sub002/api/product/v1"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	orgdomain "github.com/foozio/prodmatic-sub002/internal/organization/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/product/domain"
	productrepo "github.com/foozio/prodmatic-sub002/internal/product/repository"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	"github.com/foozio/prodmatic-sub002/internal/session"
)

// TeamGetter looks up a live team of an organization.
type TeamGetter interface {
	GetTeam(ctx context.Context, orgID, id string) (*orgdomain.Team, error)
}

// Server implements ProductService.
type Server struct {
	repo     productrepo.Repository
	teams    TeamGetter
	pipeline *mutation.Pipeline
	cache    *revalidate.ViewCache
}

// NewServer returns a Product server. cache may be nil; stats are then computed on every call.
func NewServer(repo productrepo.Repository, teams TeamGetter, pipeline *mutation.Pipeline, cache *revalidate.ViewCache) *Server {
	return &Server{repo: repo, teams: teams, pipeline: pipeline, cache: cache}
}

func (s *Server) CreateProduct(ctx context.Context, req *productv1.CreateProductRequest) (*productv1.ProductResponse, error) {
	var p *domain.Product
	op := mutation.Op[productv1.CreateProductRequest, productv1.ProductResponse]{
		Action:     "create",
		EntityType: "product",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *productv1.CreateProductRequest) error {
			p = &domain.Product{
				Name:        in.Name,
				Key:         in.Key,
				Description: in.Description,
				Stage:       domain.Stage(in.Stage),
				TeamID:      in.TeamID,
			}
			p.Normalize()
			return p.Validate()
		},
		Apply: func(ctx context.Context, pr *session.Principal, in *productv1.CreateProductRequest) (*productv1.ProductResponse, mutation.Result, error) {
			if err := s.requireTeam(ctx, in.OrgID, p.TeamID); err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			p.ID, p.OrgID, p.CreatedBy, p.CreatedAt, p.UpdatedAt = uuid.NewString(), in.OrgID, pr.UserID, now, now
			if err := s.repo.CreateProduct(ctx, p); err != nil {
				return nil, mutation.Result{}, err
			}
			return &productv1.ProductResponse{Product: productToProto(p)}, mutation.Result{
				EntityIDs: []string{p.ID},
				Metadata:  map[string]any{"name": p.Name, "key": p.Key},
				Paths:     []string{revalidate.OrgPath(in.OrgID)},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdateProduct(ctx context.Context, req *productv1.UpdateProductRequest) (*productv1.ProductResponse, error) {
	op := mutation.Op[productv1.UpdateProductRequest, productv1.ProductResponse]{
		Action:     "update",
		EntityType: "product",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *productv1.UpdateProductRequest) error {
			var v apperr.Validator
			v.Check(in.ProductID != "", "product_id", "is required")
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *productv1.UpdateProductRequest) (*productv1.ProductResponse, mutation.Result, error) {
			p, err := s.repo.GetProduct(ctx, in.OrgID, in.ProductID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if p == nil {
				return nil, mutation.Result{}, apperr.NotFound("product", in.ProductID)
			}
			prevStage := p.Stage
			if in.Name != nil {
				p.Name = *in.Name
			}
			if in.Key != nil {
				p.Key = *in.Key
			}
			if in.Description != nil {
				p.Description = *in.Description
			}
			if in.Stage != nil {
				p.Stage = domain.Stage(*in.Stage)
			}
			if in.TeamID != nil {
				p.TeamID = *in.TeamID
			}
			p.Normalize()
			if err := p.Validate(); err != nil {
				return nil, mutation.Result{}, err
			}
			if in.TeamID != nil {
				if err := s.requireTeam(ctx, in.OrgID, p.TeamID); err != nil {
					return nil, mutation.Result{}, err
				}
			}
			p.UpdatedAt = s.pipeline.Now()
			if _, err := s.repo.UpdateProduct(ctx, p); err != nil {
				return nil, mutation.Result{}, err
			}
			meta := map[string]any{"name": p.Name}
			if p.Stage != prevStage {
				meta["from_stage"], meta["to_stage"] = string(prevStage), string(p.Stage)
			}
			return &productv1.ProductResponse{Product: productToProto(p)}, mutation.Result{
				EntityIDs: []string{p.ID},
				Metadata:  meta,
				Paths:     []string{revalidate.OrgPath(in.OrgID)},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) DeleteProduct(ctx context.Context, req *productv1.DeleteProductRequest) (*productv1.DeleteProductResponse, error) {
	op := mutation.Op[productv1.DeleteProductRequest, productv1.DeleteProductResponse]{
		Action:     "delete",
		EntityType: "product",
		MinRole:    membershipdomain.RoleProductManager,
		Apply: func(ctx context.Context, _ *session.Principal, in *productv1.DeleteProductRequest) (*productv1.DeleteProductResponse, mutation.Result, error) {
			ok, err := s.repo.DeleteProduct(ctx, in.OrgID, in.ProductID, s.pipeline.Now())
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if !ok {
				return nil, mutation.Result{}, apperr.NotFound("product", in.ProductID)
			}
			return &productv1.DeleteProductResponse{}, mutation.Result{
				EntityIDs: []string{in.ProductID},
				Paths:     []string{revalidate.OrgPath(in.OrgID)},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) GetProduct(ctx context.Context, req *productv1.GetProductRequest) (*productv1.ProductResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	p, err := s.repo.GetProduct(ctx, req.OrgID, req.ProductID)
	if err != nil {
		return nil, apperr.Storage("get product", err)
	}
	if p == nil {
		return nil, apperr.NotFound("product", req.ProductID)
	}
	return &productv1.ProductResponse{Product: productToProto(p)}, nil
}

func (s *Server) ListProducts(ctx context.Context, req *productv1.ListProductsRequest) (*productv1.ListProductsResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	limit, offset := req.Pagination.LimitOffset()
	list, err := s.repo.ListProducts(ctx, req.OrgID, limit, offset)
	if err != nil {
		return nil, apperr.Storage("list products", err)
	}
	out := make([]*productv1.Product, len(list))
	for i, p := range list {
		out[i] = productToProto(p)
	}
	return &productv1.ListProductsResponse{Products: out, Pagination: commonv1.Next(limit, offset, len(list))}, nil
}

// GetProductStats aggregates idea, task, OKR and experiment state. The four reads run
// concurrently; the result is cached until a mutation invalidates the product.
func (s *Server) GetProductStats(ctx context.Context, req *productv1.GetProductStatsRequest) (*productv1.GetProductStatsResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	ok, err := s.repo.ProductExists(ctx, req.OrgID, req.ProductID)
	if err != nil {
		return nil, apperr.Storage("get product", err)
	}
	if !ok {
		return nil, apperr.NotFound("product", req.ProductID)
	}
	path := revalidate.ViewPath(req.OrgID, req.ProductID, "stats")
	stats, err := revalidate.Load(ctx, s.cache, req.OrgID, path, func(ctx context.Context) (*domain.Stats, error) {
		return s.loadStats(ctx, req.OrgID, req.ProductID)
	})
	if err != nil {
		return nil, apperr.Storage("product stats", err)
	}
	return &productv1.GetProductStatsResponse{Stats: &productv1.ProductStats{
		ProductID:          req.ProductID,
		IdeasByStatus:      stats.IdeasByStatus,
		TasksByStatus:      stats.TasksByStatus,
		AverageOKRProgress: stats.AverageOKRProgress,
		RunningExperiments: stats.RunningExperiments,
		GeneratedAt:        stats.GeneratedAt,
	}}, nil
}

func (s *Server) loadStats(ctx context.Context, orgID, productID string) (*domain.Stats, error) {
	st := &domain.Stats{GeneratedAt: s.pipeline.Now()}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.IdeasByStatus, err = s.repo.CountIdeasByStatus(ctx, orgID, productID)
		return err
	})
	g.Go(func() (err error) {
		st.TasksByStatus, err = s.repo.CountTasksByStatus(ctx, orgID, productID)
		return err
	})
	g.Go(func() (err error) {
		st.AverageOKRProgress, err = s.repo.AverageOKRProgress(ctx, orgID, productID)
		return err
	})
	g.Go(func() (err error) {
		st.RunningExperiments, err = s.repo.CountRunningExperiments(ctx, orgID, productID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Server) requireTeam(ctx context.Context, orgID, teamID string) error {
	if teamID == "" {
		return nil
	}
	t, err := s.teams.GetTeam(ctx, orgID, teamID)
	if err != nil {
		return err
	}
	if t == nil {
		var v apperr.Validator
		v.Add("team_id", "must reference a team of this organization")
		return v.Err()
	}
	return nil
}

func productToProto(p *domain.Product) *productv1.Product {
	return &productv1.Product{
		ID:          p.ID,
		OrgID:       p.OrgID,
		TeamID:      p.TeamID,
		Name:        p.Name,
		Key:         p.Key,
		Description: p.Description,
		Stage:       string(p.Stage),
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
