package handler

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	roadmapv1 "github.com/foozio/prodmatic-sub002/api/roadmap/v1"
	ideadomain "github.com/foozio/prodmatic-sub002/internal/idea/domain"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation/mutationtest"
	"github.com/foozio/prodmatic-sub002/internal/product/scope"
	"github.com/foozio/prodmatic-sub002/internal/roadmap/domain"
)

type memRoadmap struct {
	mu        sync.Mutex
	items     map[string]*domain.Item
	releases  map[string]*domain.Release
	entries   map[string]*domain.ChangelogEntry
	itemLists int
}

func newMemRoadmap() *memRoadmap {
	return &memRoadmap{items: map[string]*domain.Item{}, releases: map[string]*domain.Release{}, entries: map[string]*domain.ChangelogEntry{}}
}

func (m *memRoadmap) GetItem(ctx context.Context, orgID, id string) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[id]; ok && it.OrgID == orgID {
		cp := *it
		return &cp, nil
	}
	return nil, nil
}

func (m *memRoadmap) ListItems(ctx context.Context, orgID, productID string) ([]*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.itemLists++
	var out []*domain.Item
	for _, it := range m.items {
		if it.OrgID == orgID && it.ProductID == productID {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (m *memRoadmap) CreateItem(ctx context.Context, it *domain.Item) error {
	_, err := m.UpdateItem(ctx, it)
	return err
}

func (m *memRoadmap) UpdateItem(ctx context.Context, it *domain.Item) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *it
	m.items[it.ID] = &cp
	return true, nil
}

func (m *memRoadmap) DeleteItem(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return true, nil
}

func (m *memRoadmap) GetRelease(ctx context.Context, orgID, id string) (*domain.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rel, ok := m.releases[id]; ok && rel.OrgID == orgID {
		cp := *rel
		return &cp, nil
	}
	return nil, nil
}

func (m *memRoadmap) ListReleases(ctx context.Context, orgID, productID string) ([]*domain.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Release
	for _, rel := range m.releases {
		if rel.OrgID == orgID && rel.ProductID == productID {
			out = append(out, rel)
		}
	}
	domain.SortReleases(out)
	return out, nil
}

func (m *memRoadmap) CreateRelease(ctx context.Context, rel *domain.Release) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.releases {
		if existing.ProductID == rel.ProductID && existing.Version == rel.Version {
			return &pgconn.PgError{Code: "23505", ConstraintName: "releases_product_version"}
		}
	}
	cp := *rel
	m.releases[rel.ID] = &cp
	return nil
}

func (m *memRoadmap) UpdateRelease(ctx context.Context, rel *domain.Release) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rel
	m.releases[rel.ID] = &cp
	return true, nil
}

func (m *memRoadmap) DeleteRelease(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.releases, id)
	for _, c := range m.entries {
		if c.ReleaseID == id {
			c.ReleaseID = ""
		}
	}
	return true, nil
}

func (m *memRoadmap) GetEntry(ctx context.Context, orgID, id string) (*domain.ChangelogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.entries[id]; ok && c.OrgID == orgID {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *memRoadmap) ListEntries(ctx context.Context, orgID, productID string, publishedOnly bool) ([]*domain.ChangelogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ChangelogEntry
	for _, c := range m.entries {
		if c.OrgID == orgID && c.ProductID == productID && (!publishedOnly || c.PublishedAt != nil) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRoadmap) CreateEntry(ctx context.Context, c *domain.ChangelogEntry) error {
	_, err := m.UpdateEntry(ctx, c)
	return err
}

func (m *memRoadmap) UpdateEntry(ctx context.Context, c *domain.ChangelogEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.entries[c.ID] = &cp
	return true, nil
}

func (m *memRoadmap) DeleteEntry(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return true, nil
}

type fixedIdeas map[string]*ideadomain.Idea

func (f fixedIdeas) GetIdea(_ context.Context, orgID, id string) (*ideadomain.Idea, error) {
	if i, ok := f[id]; ok && i.OrgID == orgID {
		return i, nil
	}
	return nil, nil
}

func newTestServer(t *testing.T) (*Server, *memRoadmap, *mutationtest.Harness) {
	t.Helper()
	h := mutationtest.New()
	h.Memberships.Add("pm", "org-1", membershipdomain.RoleProductManager)
	h.Memberships.Add("dev", "org-1", membershipdomain.RoleContributor)
	h.Memberships.Add("viewer", "org-1", membershipdomain.RoleStakeholder)
	ideas := fixedIdeas{
		"idea-1": {ID: "idea-1", OrgID: "org-1", ProductID: "prod-1"},
		"idea-2": {ID: "idea-2", OrgID: "org-1", ProductID: "prod-2"},
	}
	repo := newMemRoadmap()
	return NewServer(repo, scope.Fixed{"prod-1": "org-1", "prod-2": "org-1"}, ideas, h.Pipeline, h.Cache), repo, h
}

func TestCreateRoadmapItem(t *testing.T) {
	srv, _, h := newTestServer(t)

	out, err := srv.CreateRoadmapItem(mutationtest.Ctx("pm"), &roadmapv1.CreateRoadmapItemRequest{
		OrgID: "org-1", ProductID: "prod-1", IdeaID: "idea-1", Title: "Dark mode", Lane: "now",
	})
	require.NoError(t, err)
	assert.Equal(t, "NOW", out.Item.Lane)
	assert.Equal(t, "PLANNED", out.Item.Status)

	_, err = srv.CreateRoadmapItem(mutationtest.Ctx("pm"), &roadmapv1.CreateRoadmapItemRequest{
		OrgID: "org-1", ProductID: "prod-1", IdeaID: "idea-2", Title: "x", Lane: "NEXT",
	})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("idea_id"))

	_, err = srv.CreateRoadmapItem(mutationtest.Ctx("pm"), &roadmapv1.CreateRoadmapItemRequest{OrgID: "org-1", ProductID: "prod-1", Title: "x"})
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("lane"))

	_, err = srv.CreateRoadmapItem(mutationtest.Ctx("dev"), &roadmapv1.CreateRoadmapItemRequest{OrgID: "org-1", ProductID: "prod-1", Title: "x", Lane: "NOW"})
	assert.True(t, apperr.IsUnauthorized(err))

	assert.Len(t, h.Audit.Entries(), 1)
}

func TestGetRoadmap_GroupsAndCaches(t *testing.T) {
	srv, repo, h := newTestServer(t)
	for _, lane := range []string{"LATER", "NOW", "NOW"} {
		_, err := srv.CreateRoadmapItem(mutationtest.Ctx("pm"), &roadmapv1.CreateRoadmapItemRequest{OrgID: "org-1", ProductID: "prod-1", Title: lane, Lane: lane})
		require.NoError(t, err)
	}

	req := &roadmapv1.GetRoadmapRequest{OrgID: "org-1", ProductID: "prod-1"}
	out, err := srv.GetRoadmap(mutationtest.Ctx("viewer"), req)
	require.NoError(t, err)
	require.Len(t, out.Lanes, 3)
	assert.Equal(t, "NOW", out.Lanes[0].Lane)
	assert.Len(t, out.Lanes[0].Items, 2)
	assert.Empty(t, out.Lanes[1].Items)
	assert.Len(t, out.Lanes[2].Items, 1)

	_, err = srv.GetRoadmap(mutationtest.Ctx("viewer"), req)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.itemLists)

	later := out.Lanes[2].Items[0]
	lane := "next"
	_, err = srv.UpdateRoadmapItem(mutationtest.Ctx("pm"), &roadmapv1.UpdateRoadmapItemRequest{OrgID: "org-1", ItemID: later.ID, Lane: &lane})
	require.NoError(t, err)
	last := h.Audit.Entries()[len(h.Audit.Entries())-1]
	assert.Equal(t, "LATER", last.Metadata["from_lane"])
	assert.Equal(t, "NEXT", last.Metadata["to_lane"])

	out, err = srv.GetRoadmap(mutationtest.Ctx("viewer"), req)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.itemLists)
	assert.Len(t, out.Lanes[1].Items, 1)
}

func TestReleases(t *testing.T) {
	srv, _, h := newTestServer(t)
	create := func(version string) (*roadmapv1.ReleaseResponse, error) {
		return srv.CreateRelease(mutationtest.Ctx("pm"), &roadmapv1.CreateReleaseRequest{OrgID: "org-1", ProductID: "prod-1", Version: version})
	}

	first, err := create("1.2.0")
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0", first.Release.Version)
	_, err = create("v1.10.0")
	require.NoError(t, err)

	_, err = create("v1.2.0")
	assert.True(t, apperr.IsConflict(err), "version is unique per product")
	_, err = create("1.2")
	assert.True(t, apperr.IsValidation(err))

	list, err := srv.ListReleases(mutationtest.Ctx("viewer"), &roadmapv1.ListReleasesRequest{OrgID: "org-1", ProductID: "prod-1"})
	require.NoError(t, err)
	require.Len(t, list.Releases, 2)
	assert.Equal(t, "v1.10.0", list.Releases[0].Version)

	released := "RELEASED"
	_, err = srv.UpdateRelease(mutationtest.Ctx("pm"), &roadmapv1.UpdateReleaseRequest{OrgID: "org-1", ReleaseID: first.Release.ID, Status: &released})
	assert.True(t, apperr.IsValidation(err))

	pub, err := srv.PublishRelease(mutationtest.Ctx("pm"), &roadmapv1.ReleaseRequest{OrgID: "org-1", ReleaseID: first.Release.ID})
	require.NoError(t, err)
	assert.Equal(t, "RELEASED", pub.Release.Status)
	require.NotNil(t, pub.Release.ReleasedAt)

	_, err = srv.PublishRelease(mutationtest.Ctx("pm"), &roadmapv1.ReleaseRequest{OrgID: "org-1", ReleaseID: first.Release.ID})
	assert.True(t, apperr.IsValidation(err))

	planned := "PLANNED"
	_, err = srv.UpdateRelease(mutationtest.Ctx("pm"), &roadmapv1.UpdateReleaseRequest{OrgID: "org-1", ReleaseID: first.Release.ID, Status: &planned})
	assert.True(t, apperr.IsValidation(err), "RELEASED is terminal")

	name := "Spring"
	renamed, err := srv.UpdateRelease(mutationtest.Ctx("pm"), &roadmapv1.UpdateReleaseRequest{OrgID: "org-1", ReleaseID: first.Release.ID, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Spring", renamed.Release.Name)
	assert.Equal(t, "RELEASED", renamed.Release.Status)

	var publishes int
	for _, e := range h.Audit.Entries() {
		if e.Action == "publish" {
			publishes++
		}
	}
	assert.Equal(t, 1, publishes)
}

func TestChangelog(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rel, err := srv.CreateRelease(mutationtest.Ctx("pm"), &roadmapv1.CreateReleaseRequest{OrgID: "org-1", ProductID: "prod-2", Version: "1.0.0"})
	require.NoError(t, err)

	_, err = srv.CreateChangelogEntry(mutationtest.Ctx("dev"), &roadmapv1.CreateChangelogEntryRequest{
		OrgID: "org-1", ProductID: "prod-1", ReleaseID: rel.Release.ID, Title: "x", Kind: "FIX",
	})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("release_id"))

	entry, err := srv.CreateChangelogEntry(mutationtest.Ctx("dev"), &roadmapv1.CreateChangelogEntryRequest{
		OrgID: "org-1", ProductID: "prod-1", Title: "Faster search", Kind: "improvement",
	})
	require.NoError(t, err)
	assert.Equal(t, "IMPROVEMENT", entry.Entry.Kind)
	assert.Nil(t, entry.Entry.PublishedAt)

	_, err = srv.PublishChangelogEntry(mutationtest.Ctx("dev"), &roadmapv1.ChangelogEntryRequest{OrgID: "org-1", EntryID: entry.Entry.ID})
	assert.True(t, apperr.IsUnauthorized(err))

	list, err := srv.ListChangelog(mutationtest.Ctx("viewer"), &roadmapv1.ListChangelogRequest{OrgID: "org-1", ProductID: "prod-1", PublishedOnly: true})
	require.NoError(t, err)
	assert.Empty(t, list.Entries)

	pub, err := srv.PublishChangelogEntry(mutationtest.Ctx("pm"), &roadmapv1.ChangelogEntryRequest{OrgID: "org-1", EntryID: entry.Entry.ID})
	require.NoError(t, err)
	assert.NotNil(t, pub.Entry.PublishedAt)

	_, err = srv.PublishChangelogEntry(mutationtest.Ctx("pm"), &roadmapv1.ChangelogEntryRequest{OrgID: "org-1", EntryID: entry.Entry.ID})
	assert.True(t, apperr.IsConflict(err))

	list, err = srv.ListChangelog(mutationtest.Ctx("viewer"), &roadmapv1.ListChangelogRequest{OrgID: "org-1", ProductID: "prod-1", PublishedOnly: true})
	require.NoError(t, err)
	assert.Len(t, list.Entries, 1)
}
