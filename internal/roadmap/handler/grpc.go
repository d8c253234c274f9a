package handler

import (
	"context"
	"strings"

	"github.com/google/uuid"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	roadmapv1 "github.com/foozio/prodmatic-sub002/api/roadmap/v1"
	ideadomain "github.com/foozio/prodmatic-sub002/internal/idea/domain"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/product/scope"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	"github.com/foozio/prodmatic-sub002/internal/roadmap/domain"
	roadmaprepo "github.com/foozio/prodmatic-sub002/internal/roadmap/repository"
	"github.com/foozio/prodmatic-sub002/internal/session"
)

// IdeaGetter looks up a live idea of an organization.
type IdeaGetter interface {
	GetIdea(ctx context.Context, orgID, id string) (*ideadomain.Idea, error)
}

// Server implements RoadmapService.
type Server struct {
	repo     roadmaprepo.Repository
	products scope.Checker
	ideas    IdeaGetter
	pipeline *mutation.Pipeline
	cache    *revalidate.ViewCache
}

// NewServer returns a Roadmap server. cache may be nil.
func NewServer(repo roadmaprepo.Repository, products scope.Checker, ideas IdeaGetter, pipeline *mutation.Pipeline, cache *revalidate.ViewCache) *Server {
	return &Server{repo: repo, products: products, ideas: ideas, pipeline: pipeline, cache: cache}
}

// --- roadmap items ---

func (s *Server) CreateRoadmapItem(ctx context.Context, req *roadmapv1.CreateRoadmapItemRequest) (*roadmapv1.RoadmapItemResponse, error) {
	var it *domain.Item
	op := mutation.Op[roadmapv1.CreateRoadmapItemRequest, roadmapv1.RoadmapItemResponse]{
		Action:     "create",
		EntityType: "roadmap_item",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *roadmapv1.CreateRoadmapItemRequest) error {
			it = &domain.Item{
				ProductID:   in.ProductID,
				IdeaID:      strings.TrimSpace(in.IdeaID),
				Title:       in.Title,
				Description: in.Description,
				Lane:        domain.Lane(upper(in.Lane, "")),
				Status:      domain.ItemStatus(upper(in.Status, string(domain.ItemPlanned))),
				StartsOn:    in.StartsOn,
				EndsOn:      in.EndsOn,
			}
			var v apperr.Validator
			v.Check(in.ProductID != "", "product_id", "is required")
			v.Merge(it.Validate())
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *roadmapv1.CreateRoadmapItemRequest) (*roadmapv1.RoadmapItemResponse, mutation.Result, error) {
			if err := scope.Require(ctx, s.products, in.OrgID, in.ProductID); err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			it.ID, it.OrgID, it.CreatedAt, it.UpdatedAt = uuid.NewString(), in.OrgID, now, now
			if err := s.checkIdea(ctx, it); err != nil {
				return nil, mutation.Result{}, err
			}
			if err := s.repo.CreateItem(ctx, it); err != nil {
				return nil, mutation.Result{}, err
			}
			return respondItem(it, map[string]any{"title": it.Title, "lane": string(it.Lane)})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdateRoadmapItem(ctx context.Context, req *roadmapv1.UpdateRoadmapItemRequest) (*roadmapv1.RoadmapItemResponse, error) {
	op := mutation.Op[roadmapv1.UpdateRoadmapItemRequest, roadmapv1.RoadmapItemResponse]{
		Action:     "update",
		EntityType: "roadmap_item",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *roadmapv1.UpdateRoadmapItemRequest) error { return requireID("item_id", in.ItemID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *roadmapv1.UpdateRoadmapItemRequest) (*roadmapv1.RoadmapItemResponse, mutation.Result, error) {
			it, err := s.loadItem(ctx, in.OrgID, in.ItemID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			fromLane := it.Lane
			setString(&it.IdeaID, in.IdeaID)
			setString(&it.Title, in.Title)
			setString(&it.Description, in.Description)
			if in.Lane != nil {
				it.Lane = domain.Lane(upper(*in.Lane, ""))
			}
			if in.Status != nil {
				it.Status = domain.ItemStatus(upper(*in.Status, ""))
			}
			if in.StartsOn != nil {
				it.StartsOn = in.StartsOn
			}
			if in.EndsOn != nil {
				it.EndsOn = in.EndsOn
			}
			if err := it.Validate(); err != nil {
				return nil, mutation.Result{}, err
			}
			if err := s.checkIdea(ctx, it); err != nil {
				return nil, mutation.Result{}, err
			}
			it.UpdatedAt = s.pipeline.Now()
			if _, err := s.repo.UpdateItem(ctx, it); err != nil {
				return nil, mutation.Result{}, err
			}
			meta := map[string]any{"title": it.Title}
			if fromLane != it.Lane {
				meta["from_lane"], meta["to_lane"] = string(fromLane), string(it.Lane)
			}
			return respondItem(it, meta)
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) DeleteRoadmapItem(ctx context.Context, req *roadmapv1.DeleteRoadmapItemRequest) (*commonv1.Empty, error) {
	op := mutation.Op[roadmapv1.DeleteRoadmapItemRequest, commonv1.Empty]{
		Action:     "delete",
		EntityType: "roadmap_item",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *roadmapv1.DeleteRoadmapItemRequest) error { return requireID("item_id", in.ItemID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *roadmapv1.DeleteRoadmapItemRequest) (*commonv1.Empty, mutation.Result, error) {
			it, err := s.loadItem(ctx, in.OrgID, in.ItemID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if _, err := s.repo.DeleteItem(ctx, in.OrgID, it.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			return deleted(it.OrgID, it.ProductID, it.ID, it.Title)
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// GetRoadmap returns the product's live items grouped into NOW, NEXT and LATER.
func (s *Server) GetRoadmap(ctx context.Context, req *roadmapv1.GetRoadmapRequest) (*roadmapv1.GetRoadmapResponse, error) {
	var v apperr.Validator
	v.Check(req.ProductID != "", "product_id", "is required")
	if err := v.Err(); err != nil {
		return nil, err
	}
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	path := revalidate.ViewPath(req.OrgID, req.ProductID, "roadmap")
	groups, err := revalidate.Load(ctx, s.cache, req.OrgID, path, func(ctx context.Context) ([]domain.LaneGroup, error) {
		items, err := s.repo.ListItems(ctx, req.OrgID, req.ProductID)
		if err != nil {
			return nil, err
		}
		return domain.Group(items), nil
	})
	if err != nil {
		return nil, apperr.Storage("roadmap", err)
	}
	out := &roadmapv1.GetRoadmapResponse{ProductID: req.ProductID, Lanes: make([]*roadmapv1.Lane, len(groups))}
	for i, g := range groups {
		lane := &roadmapv1.Lane{Lane: string(g.Lane), Items: make([]*roadmapv1.RoadmapItem, len(g.Items))}
		for j, it := range g.Items {
			lane.Items[j] = itemToProto(it)
		}
		out.Lanes[i] = lane
	}
	return out, nil
}

// --- releases ---

func (s *Server) CreateRelease(ctx context.Context, req *roadmapv1.CreateReleaseRequest) (*roadmapv1.ReleaseResponse, error) {
	var rel *domain.Release
	op := mutation.Op[roadmapv1.CreateReleaseRequest, roadmapv1.ReleaseResponse]{
		Action:     "create",
		EntityType: "release",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *roadmapv1.CreateReleaseRequest) error {
			rel = &domain.Release{ProductID: in.ProductID, Version: in.Version, Name: in.Name, Status: domain.ReleasePlanned, TargetOn: in.TargetOn}
			var v apperr.Validator
			v.Check(in.ProductID != "", "product_id", "is required")
			v.Merge(rel.Validate())
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *roadmapv1.CreateReleaseRequest) (*roadmapv1.ReleaseResponse, mutation.Result, error) {
			if err := scope.Require(ctx, s.products, in.OrgID, in.ProductID); err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			rel.ID, rel.OrgID, rel.CreatedAt, rel.UpdatedAt = uuid.NewString(), in.OrgID, now, now
			if err := s.repo.CreateRelease(ctx, rel); err != nil {
				return nil, mutation.Result{}, err
			}
			return respondRelease(rel, map[string]any{"version": rel.Version})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdateRelease(ctx context.Context, req *roadmapv1.UpdateReleaseRequest) (*roadmapv1.ReleaseResponse, error) {
	op := mutation.Op[roadmapv1.UpdateReleaseRequest, roadmapv1.ReleaseResponse]{
		Action:     "update",
		EntityType: "release",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *roadmapv1.UpdateReleaseRequest) error {
			var v apperr.Validator
			v.Merge(requireID("release_id", in.ReleaseID))
			v.Check(in.Status == nil || upper(*in.Status, "") != string(domain.ReleaseReleased), "status", "use PublishRelease to release")
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *roadmapv1.UpdateReleaseRequest) (*roadmapv1.ReleaseResponse, mutation.Result, error) {
			rel, err := s.loadRelease(ctx, in.OrgID, in.ReleaseID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if in.Status != nil {
				if rel.Status == domain.ReleaseReleased {
					return nil, mutation.Result{}, statusError("a released release cannot change status")
				}
				rel.Status = domain.ReleaseStatus(upper(*in.Status, ""))
			}
			setString(&rel.Version, in.Version)
			setString(&rel.Name, in.Name)
			if in.TargetOn != nil {
				rel.TargetOn = in.TargetOn
			}
			if err := s.saveRelease(ctx, rel); err != nil {
				return nil, mutation.Result{}, err
			}
			return respondRelease(rel, map[string]any{"version": rel.Version, "status": string(rel.Status)})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// DeleteRelease soft-deletes the release; its changelog entries are kept without a release.
func (s *Server) DeleteRelease(ctx context.Context, req *roadmapv1.ReleaseRequest) (*commonv1.Empty, error) {
	op := mutation.Op[roadmapv1.ReleaseRequest, commonv1.Empty]{
		Action:     "delete",
		EntityType: "release",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *roadmapv1.ReleaseRequest) error { return requireID("release_id", in.ReleaseID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *roadmapv1.ReleaseRequest) (*commonv1.Empty, mutation.Result, error) {
			rel, err := s.loadRelease(ctx, in.OrgID, in.ReleaseID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if _, err := s.repo.DeleteRelease(ctx, in.OrgID, rel.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			return deleted(rel.OrgID, rel.ProductID, rel.ID, rel.Version)
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// PublishRelease marks the release RELEASED and stamps released_at. RELEASED is terminal.
func (s *Server) PublishRelease(ctx context.Context, req *roadmapv1.ReleaseRequest) (*roadmapv1.ReleaseResponse, error) {
	op := mutation.Op[roadmapv1.ReleaseRequest, roadmapv1.ReleaseResponse]{
		Action:     "publish",
		EntityType: "release",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *roadmapv1.ReleaseRequest) error { return requireID("release_id", in.ReleaseID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *roadmapv1.ReleaseRequest) (*roadmapv1.ReleaseResponse, mutation.Result, error) {
			rel, err := s.loadRelease(ctx, in.OrgID, in.ReleaseID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if rel.Status == domain.ReleaseReleased {
				return nil, mutation.Result{}, statusError("release is already released")
			}
			from := rel.Status
			now := s.pipeline.Now()
			rel.Status, rel.ReleasedAt = domain.ReleaseReleased, &now
			if err := s.saveRelease(ctx, rel); err != nil {
				return nil, mutation.Result{}, err
			}
			return respondRelease(rel, map[string]any{"version": rel.Version, "from": string(from), "to": string(rel.Status)})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) ListReleases(ctx context.Context, req *roadmapv1.ListReleasesRequest) (*roadmapv1.ListReleasesResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	list, err := s.repo.ListReleases(ctx, req.OrgID, req.ProductID)
	if err != nil {
		return nil, apperr.Storage("list releases", err)
	}
	out := make([]*roadmapv1.Release, len(list))
	for i, rel := range list {
		out[i] = releaseToProto(rel)
	}
	return &roadmapv1.ListReleasesResponse{Releases: out}, nil
}

// --- changelog ---

func (s *Server) CreateChangelogEntry(ctx context.Context, req *roadmapv1.CreateChangelogEntryRequest) (*roadmapv1.ChangelogEntryResponse, error) {
	var c *domain.ChangelogEntry
	op := mutation.Op[roadmapv1.CreateChangelogEntryRequest, roadmapv1.ChangelogEntryResponse]{
		Action:     "create",
		EntityType: "changelog_entry",
		MinRole:    membershipdomain.RoleContributor,
		Validate: func(in *roadmapv1.CreateChangelogEntryRequest) error {
			c = &domain.ChangelogEntry{
				ProductID: in.ProductID,
				ReleaseID: strings.TrimSpace(in.ReleaseID),
				Title:     in.Title,
				Body:      in.Body,
				Kind:      domain.ChangeKind(upper(in.Kind, "")),
			}
			var v apperr.Validator
			v.Check(in.ProductID != "", "product_id", "is required")
			v.Merge(c.Validate())
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *roadmapv1.CreateChangelogEntryRequest) (*roadmapv1.ChangelogEntryResponse, mutation.Result, error) {
			if err := scope.Require(ctx, s.products, in.OrgID, in.ProductID); err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			c.ID, c.OrgID, c.CreatedAt, c.UpdatedAt = uuid.NewString(), in.OrgID, now, now
			if err := s.checkRelease(ctx, c); err != nil {
				return nil, mutation.Result{}, err
			}
			if err := s.repo.CreateEntry(ctx, c); err != nil {
				return nil, mutation.Result{}, err
			}
			return respondEntry(c, map[string]any{"title": c.Title, "kind": string(c.Kind)})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdateChangelogEntry(ctx context.Context, req *roadmapv1.UpdateChangelogEntryRequest) (*roadmapv1.ChangelogEntryResponse, error) {
	op := mutation.Op[roadmapv1.UpdateChangelogEntryRequest, roadmapv1.ChangelogEntryResponse]{
		Action:     "update",
		EntityType: "changelog_entry",
		MinRole:    membershipdomain.RoleContributor,
		Validate:   func(in *roadmapv1.UpdateChangelogEntryRequest) error { return requireID("entry_id", in.EntryID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *roadmapv1.UpdateChangelogEntryRequest) (*roadmapv1.ChangelogEntryResponse, mutation.Result, error) {
			c, err := s.loadEntry(ctx, in.OrgID, in.EntryID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			setString(&c.ReleaseID, in.ReleaseID)
			setString(&c.Title, in.Title)
			if in.Body != nil {
				c.Body = *in.Body
			}
			if in.Kind != nil {
				c.Kind = domain.ChangeKind(upper(*in.Kind, ""))
			}
			if err := c.Validate(); err != nil {
				return nil, mutation.Result{}, err
			}
			if err := s.checkRelease(ctx, c); err != nil {
				return nil, mutation.Result{}, err
			}
			c.UpdatedAt = s.pipeline.Now()
			if _, err := s.repo.UpdateEntry(ctx, c); err != nil {
				return nil, mutation.Result{}, err
			}
			return respondEntry(c, map[string]any{"title": c.Title})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) DeleteChangelogEntry(ctx context.Context, req *roadmapv1.ChangelogEntryRequest) (*commonv1.Empty, error) {
	op := mutation.Op[roadmapv1.ChangelogEntryRequest, commonv1.Empty]{
		Action:     "delete",
		EntityType: "changelog_entry",
		MinRole:    membershipdomain.RoleContributor,
		Validate:   func(in *roadmapv1.ChangelogEntryRequest) error { return requireID("entry_id", in.EntryID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *roadmapv1.ChangelogEntryRequest) (*commonv1.Empty, mutation.Result, error) {
			c, err := s.loadEntry(ctx, in.OrgID, in.EntryID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if _, err := s.repo.DeleteEntry(ctx, in.OrgID, c.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			return deleted(c.OrgID, c.ProductID, c.ID, c.Title)
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// PublishChangelogEntry stamps published_at. Publishing twice is a ConflictError.
func (s *Server) PublishChangelogEntry(ctx context.Context, req *roadmapv1.ChangelogEntryRequest) (*roadmapv1.ChangelogEntryResponse, error) {
	op := mutation.Op[roadmapv1.ChangelogEntryRequest, roadmapv1.ChangelogEntryResponse]{
		Action:     "publish",
		EntityType: "changelog_entry",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *roadmapv1.ChangelogEntryRequest) error { return requireID("entry_id", in.EntryID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *roadmapv1.ChangelogEntryRequest) (*roadmapv1.ChangelogEntryResponse, mutation.Result, error) {
			c, err := s.loadEntry(ctx, in.OrgID, in.EntryID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if c.PublishedAt != nil {
				return nil, mutation.Result{}, apperr.Conflict("changelog entry was already published")
			}
			now := s.pipeline.Now()
			c.PublishedAt, c.UpdatedAt = &now, now
			if _, err := s.repo.UpdateEntry(ctx, c); err != nil {
				return nil, mutation.Result{}, err
			}
			return respondEntry(c, map[string]any{"title": c.Title})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) ListChangelog(ctx context.Context, req *roadmapv1.ListChangelogRequest) (*roadmapv1.ListChangelogResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	list, err := s.repo.ListEntries(ctx, req.OrgID, req.ProductID, req.PublishedOnly)
	if err != nil {
		return nil, apperr.Storage("list changelog", err)
	}
	out := make([]*roadmapv1.ChangelogEntry, len(list))
	for i, c := range list {
		out[i] = entryToProto(c)
	}
	return &roadmapv1.ListChangelogResponse{Entries: out}, nil
}

func (s *Server) checkIdea(ctx context.Context, it *domain.Item) error {
	if it.IdeaID == "" {
		return nil
	}
	idea, err := s.ideas.GetIdea(ctx, it.OrgID, it.IdeaID)
	if err != nil {
		return err
	}
	var v apperr.Validator
	v.Check(idea != nil && idea.ProductID == it.ProductID, "idea_id", "must be an idea of the same product")
	return v.Err()
}

func (s *Server) checkRelease(ctx context.Context, c *domain.ChangelogEntry) error {
	if c.ReleaseID == "" {
		return nil
	}
	rel, err := s.repo.GetRelease(ctx, c.OrgID, c.ReleaseID)
	if err != nil {
		return err
	}
	var v apperr.Validator
	v.Check(rel != nil && rel.ProductID == c.ProductID, "release_id", "must be a release of the same product")
	return v.Err()
}

func (s *Server) loadItem(ctx context.Context, orgID, id string) (*domain.Item, error) {
	it, err := s.repo.GetItem(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, apperr.NotFound("roadmap item", id)
	}
	return it, nil
}

func (s *Server) loadRelease(ctx context.Context, orgID, id string) (*domain.Release, error) {
	rel, err := s.repo.GetRelease(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, apperr.NotFound("release", id)
	}
	return rel, nil
}

func (s *Server) saveRelease(ctx context.Context, rel *domain.Release) error {
	if err := rel.Validate(); err != nil {
		return err
	}
	rel.UpdatedAt = s.pipeline.Now()
	_, err := s.repo.UpdateRelease(ctx, rel)
	return err
}

func (s *Server) loadEntry(ctx context.Context, orgID, id string) (*domain.ChangelogEntry, error) {
	c, err := s.repo.GetEntry(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("changelog entry", id)
	}
	return c, nil
}

func respondItem(it *domain.Item, meta map[string]any) (*roadmapv1.RoadmapItemResponse, mutation.Result, error) {
	return &roadmapv1.RoadmapItemResponse{Item: itemToProto(it)}, result(it.OrgID, it.ProductID, it.ID, meta), nil
}

func respondRelease(rel *domain.Release, meta map[string]any) (*roadmapv1.ReleaseResponse, mutation.Result, error) {
	return &roadmapv1.ReleaseResponse{Release: releaseToProto(rel)}, result(rel.OrgID, rel.ProductID, rel.ID, meta), nil
}

func respondEntry(c *domain.ChangelogEntry, meta map[string]any) (*roadmapv1.ChangelogEntryResponse, mutation.Result, error) {
	return &roadmapv1.ChangelogEntryResponse{Entry: entryToProto(c)}, result(c.OrgID, c.ProductID, c.ID, meta), nil
}

func deleted(orgID, productID, id, label string) (*commonv1.Empty, mutation.Result, error) {
	return &commonv1.Empty{}, result(orgID, productID, id, map[string]any{"title": label}), nil
}

func result(orgID, productID, id string, meta map[string]any) mutation.Result {
	return mutation.Result{
		EntityIDs: []string{id},
		Metadata:  meta,
		Paths:     []string{revalidate.ProductPath(orgID, productID)},
	}
}

func statusError(msg string) error {
	var v apperr.Validator
	v.Add("status", msg)
	return v.Err()
}

func requireID(field, id string) error {
	var v apperr.Validator
	v.Check(id != "", field, "is required")
	return v.Err()
}

func upper(s, def string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	return s
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func itemToProto(it *domain.Item) *roadmapv1.RoadmapItem {
	return &roadmapv1.RoadmapItem{
		ID:          it.ID,
		OrgID:       it.OrgID,
		ProductID:   it.ProductID,
		IdeaID:      it.IdeaID,
		Title:       it.Title,
		Description: it.Description,
		Lane:        string(it.Lane),
		Status:      string(it.Status),
		StartsOn:    it.StartsOn,
		EndsOn:      it.EndsOn,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

func releaseToProto(rel *domain.Release) *roadmapv1.Release {
	return &roadmapv1.Release{
		ID:         rel.ID,
		OrgID:      rel.OrgID,
		ProductID:  rel.ProductID,
		Version:    rel.Version,
		Name:       rel.Name,
		Status:     string(rel.Status),
		TargetOn:   rel.TargetOn,
		ReleasedAt: rel.ReleasedAt,
		CreatedAt:  rel.CreatedAt,
		UpdatedAt:  rel.UpdatedAt,
	}
}

func entryToProto(c *domain.ChangelogEntry) *roadmapv1.ChangelogEntry {
	return &roadmapv1.ChangelogEntry{
		ID:          c.ID,
		OrgID:       c.OrgID,
		ProductID:   c.ProductID,
		ReleaseID:   c.ReleaseID,
		Title:       c.Title,
		Body:        c.Body,
		Kind:        string(c.Kind),
		PublishedAt: c.PublishedAt,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
