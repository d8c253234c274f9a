package handler

import (
	"context"
	"strings"

	"github.com/google/uuid"

	checklistv1 "github.com/foozio/prodmatic-sub002/api/checklist/v1"
	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	"github.com/foozio/prodmatic-sub002/internal/checklist/domain"
	checklistrepo "github.com/foozio/prodmatic-sub002/internal/checklist/repository"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/product/scope"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	"github.com/foozio/prodmatic-sub002/internal/session"
)

// Server implements ChecklistService.
type Server struct {
	repo     checklistrepo.Repository
	products scope.Checker
	pipeline *mutation.Pipeline
}

func NewServer(repo checklistrepo.Repository, products scope.Checker, pipeline *mutation.Pipeline) *Server {
	return &Server{repo: repo, products: products, pipeline: pipeline}
}

func (s *Server) ListTemplates(ctx context.Context, _ *commonv1.Empty) (*checklistv1.ListTemplatesResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, "", ""); err != nil {
		return nil, err
	}
	var out []*checklistv1.Template
	for _, t := range domain.Templates() {
		out = append(out, &checklistv1.Template{Name: t.Name, Items: append([]string(nil), t.Items...)})
	}
	return &checklistv1.ListTemplatesResponse{Templates: out}, nil
}

// ApplyTemplate appends a template's items to a list in one insert, with one audit entry per item.
func (s *Server) ApplyTemplate(ctx context.Context, req *checklistv1.ApplyTemplateRequest) (*checklistv1.ItemsResponse, error) {
	var (
		tpl  domain.Template
		list string
	)
	op := mutation.Op[checklistv1.ApplyTemplateRequest, checklistv1.ItemsResponse]{
		Action:     "apply_template",
		EntityType: "checklist_item",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *checklistv1.ApplyTemplateRequest) error {
			var (
				v  apperr.Validator
				ok bool
			)
			v.Check(in.ProductID != "", "product_id", "is required")
			tpl, ok = domain.LookupTemplate(in.Template)
			v.Check(ok, "template", "must be one of LAUNCH, RELEASE, DISCOVERY")
			list = domain.NormalizeList(in.List)
			if list == "" {
				list = strings.ToLower(tpl.Name)
			}
			v.Check(!ok || domain.ValidList(list), "list", "must be 1-40 lowercase letters, digits, '-' or '_'")
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *checklistv1.ApplyTemplateRequest) (*checklistv1.ItemsResponse, mutation.Result, error) {
			if err := scope.Require(ctx, s.products, in.OrgID, in.ProductID); err != nil {
				return nil, mutation.Result{}, err
			}
			maxPos, err := s.repo.MaxPosition(ctx, in.OrgID, in.ProductID, list)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			items := tpl.Expand(in.OrgID, in.ProductID, list, maxPos, s.pipeline.Now(), uuid.NewString)
			if err := s.repo.InsertItems(ctx, items); err != nil {
				return nil, mutation.Result{}, err
			}
			ids := make([]string, len(items))
			out := make([]*checklistv1.Item, len(items))
			for i, it := range items {
				ids[i], out[i] = it.ID, toProto(it)
			}
			return &checklistv1.ItemsResponse{Items: out}, mutation.Result{
				EntityIDs: ids,
				Metadata:  map[string]any{"template": tpl.Name, "list": list},
				Paths:     []string{revalidate.ProductPath(in.OrgID, in.ProductID)},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) AddItem(ctx context.Context, req *checklistv1.AddItemRequest) (*checklistv1.ItemResponse, error) {
	var it *domain.Item
	op := mutation.Op[checklistv1.AddItemRequest, checklistv1.ItemResponse]{
		Action:     "create",
		EntityType: "checklist_item",
		MinRole:    membershipdomain.RoleContributor,
		Validate: func(in *checklistv1.AddItemRequest) error {
			it = &domain.Item{ProductID: in.ProductID, List: in.List, Title: in.Title}
			var v apperr.Validator
			v.Check(in.ProductID != "", "product_id", "is required")
			v.Merge(it.Validate())
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *checklistv1.AddItemRequest) (*checklistv1.ItemResponse, mutation.Result, error) {
			if err := scope.Require(ctx, s.products, in.OrgID, in.ProductID); err != nil {
				return nil, mutation.Result{}, err
			}
			maxPos, err := s.repo.MaxPosition(ctx, in.OrgID, in.ProductID, it.List)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			it.ID, it.OrgID, it.Position, it.CreatedAt, it.UpdatedAt = uuid.NewString(), in.OrgID, maxPos+1, now, now
			if err := s.repo.InsertItems(ctx, []*domain.Item{it}); err != nil {
				return nil, mutation.Result{}, err
			}
			return respond(it, map[string]any{"list": it.List, "title": it.Title})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdateItem(ctx context.Context, req *checklistv1.UpdateItemRequest) (*checklistv1.ItemResponse, error) {
	op := mutation.Op[checklistv1.UpdateItemRequest, checklistv1.ItemResponse]{
		Action:     "update",
		EntityType: "checklist_item",
		MinRole:    membershipdomain.RoleContributor,
		Validate:   func(in *checklistv1.UpdateItemRequest) error { return requireID(in.ItemID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *checklistv1.UpdateItemRequest) (*checklistv1.ItemResponse, mutation.Result, error) {
			it, err := s.load(ctx, in.OrgID, in.ItemID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if in.Title != nil {
				it.Title = *in.Title
			}
			if in.Position != nil {
				it.Position = *in.Position
			}
			if err := it.Validate(); err != nil {
				return nil, mutation.Result{}, err
			}
			it.UpdatedAt = s.pipeline.Now()
			if _, err := s.repo.UpdateItem(ctx, it); err != nil {
				return nil, mutation.Result{}, err
			}
			return respond(it, map[string]any{"title": it.Title, "position": it.Position})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// ToggleItem sets or clears an item's completion, recording who finished it.
func (s *Server) ToggleItem(ctx context.Context, req *checklistv1.ToggleItemRequest) (*checklistv1.ItemResponse, error) {
	op := mutation.Op[checklistv1.ToggleItemRequest, checklistv1.ItemResponse]{
		Action:     "toggle",
		EntityType: "checklist_item",
		MinRole:    membershipdomain.RoleContributor,
		Validate:   func(in *checklistv1.ToggleItemRequest) error { return requireID(in.ItemID) },
		Apply: func(ctx context.Context, p *session.Principal, in *checklistv1.ToggleItemRequest) (*checklistv1.ItemResponse, mutation.Result, error) {
			it, err := s.load(ctx, in.OrgID, in.ItemID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if it.Done != in.Done {
				now := s.pipeline.Now()
				it.SetDone(in.Done, p.UserID, now)
				it.UpdatedAt = now
				if _, err := s.repo.UpdateItem(ctx, it); err != nil {
					return nil, mutation.Result{}, err
				}
			}
			return respond(it, map[string]any{"done": it.Done})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) DeleteItem(ctx context.Context, req *checklistv1.ItemRequest) (*commonv1.Empty, error) {
	op := mutation.Op[checklistv1.ItemRequest, commonv1.Empty]{
		Action:     "delete",
		EntityType: "checklist_item",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *checklistv1.ItemRequest) error { return requireID(in.ItemID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *checklistv1.ItemRequest) (*commonv1.Empty, mutation.Result, error) {
			it, err := s.load(ctx, in.OrgID, in.ItemID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if _, err := s.repo.DeleteItem(ctx, in.OrgID, it.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			_, res, _ := respond(it, map[string]any{"list": it.List, "title": it.Title})
			return &commonv1.Empty{}, res, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// ListItems returns items ordered by list and position, with per-list progress.
func (s *Server) ListItems(ctx context.Context, req *checklistv1.ListItemsRequest) (*checklistv1.ItemsResponse, error) {
	var v apperr.Validator
	v.Check(req.ProductID != "", "product_id", "is required")
	if err := v.Err(); err != nil {
		return nil, err
	}
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, req.OrgID, req.ProductID, domain.NormalizeList(req.List))
	if err != nil {
		return nil, apperr.Storage("list checklist items", err)
	}
	out := &checklistv1.ItemsResponse{Items: make([]*checklistv1.Item, len(items))}
	for i, it := range items {
		out.Items[i] = toProto(it)
	}
	for _, p := range domain.Summarize(items) {
		out.Progress = append(out.Progress, &checklistv1.ListProgress{List: p.List, Done: p.Done, Total: p.Total})
	}
	return out, nil
}

func (s *Server) load(ctx context.Context, orgID, id string) (*domain.Item, error) {
	it, err := s.repo.GetItem(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, apperr.NotFound("checklist item", id)
	}
	return it, nil
}

func respond(it *domain.Item, meta map[string]any) (*checklistv1.ItemResponse, mutation.Result, error) {
	return &checklistv1.ItemResponse{Item: toProto(it)}, mutation.Result{
		EntityIDs: []string{it.ID},
		Metadata:  meta,
		Paths:     []string{revalidate.ProductPath(it.OrgID, it.ProductID)},
	}, nil
}

func requireID(id string) error {
	var v apperr.Validator
	v.Check(id != "", "item_id", "is required")
	return v.Err()
}

func toProto(it *domain.Item) *checklistv1.Item {
	return &checklistv1.Item{
		ID:        it.ID,
		OrgID:     it.OrgID,
		ProductID: it.ProductID,
		List:      it.List,
		Title:     it.Title,
		Position:  it.Position,
		Done:      it.Done,
		DoneBy:    it.DoneBy,
		DoneAt:    it.DoneAt,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
}
