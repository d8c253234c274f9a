package handler

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	okrv1 "github.com/foozio/prodmatic-sub002/api/okr/v1"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/okr/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation/mutationtest"
	"github.com/foozio/prodmatic-sub002/internal/product/scope"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
)

type memOKR struct {
	mu         sync.Mutex
	objectives map[string]*domain.Objective
	krs        map[string]*domain.KeyResult
	krQueries  int
}

func newMemOKR() *memOKR {
	return &memOKR{objectives: map[string]*domain.Objective{}, krs: map[string]*domain.KeyResult{}}
}

func (m *memOKR) GetObjective(ctx context.Context, orgID, id string) (*domain.Objective, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.objectives[id]; ok && o.OrgID == orgID {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (m *memOKR) ListObjectives(ctx context.Context, orgID string, f domain.Filter, limit, offset int32) ([]*domain.Objective, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Objective
	for _, o := range m.objectives {
		if o.OrgID == orgID && (f.ProductID == "" || o.ProductID == f.ProductID) && (f.Period == "" || o.Period == f.Period) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (m *memOKR) CreateObjective(ctx context.Context, o *domain.Objective) error {
	_, err := m.UpdateObjective(ctx, o)
	return err
}

func (m *memOKR) UpdateObjective(ctx context.Context, o *domain.Objective) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.objectives[o.ID] = &cp
	return true, nil
}

func (m *memOKR) DeleteObjective(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objectives, id)
	for kid, k := range m.krs {
		if k.ObjectiveID == id {
			delete(m.krs, kid)
		}
	}
	return true, nil
}

func (m *memOKR) GetKeyResult(ctx context.Context, orgID, id string) (*domain.KeyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k, ok := m.krs[id]; ok && k.OrgID == orgID {
		cp := *k
		return &cp, nil
	}
	return nil, nil
}

func (m *memOKR) ListKeyResults(ctx context.Context, orgID string, objectiveIDs []string) ([]*domain.KeyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.krQueries++
	want := map[string]bool{}
	for _, id := range objectiveIDs {
		want[id] = true
	}
	var out []*domain.KeyResult
	for _, k := range m.krs {
		if k.OrgID == orgID && want[k.ObjectiveID] {
			cp := *k
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (m *memOKR) CreateKeyResult(ctx context.Context, k *domain.KeyResult) error {
	_, err := m.UpdateKeyResult(ctx, k)
	return err
}

func (m *memOKR) UpdateKeyResult(ctx context.Context, k *domain.KeyResult) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *k
	m.krs[k.ID] = &cp
	return true, nil
}

func (m *memOKR) DeleteKeyResult(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.krs, id)
	return true, nil
}

func newTestServer(t *testing.T) (*Server, *memOKR, *mutationtest.Harness) {
	t.Helper()
	h := mutationtest.New()
	h.Memberships.Add("pm", "org-1", membershipdomain.RoleProductManager)
	h.Memberships.Add("dev", "org-1", membershipdomain.RoleContributor)
	h.Memberships.Add("viewer", "org-1", membershipdomain.RoleStakeholder)
	h.Memberships.Add("stranger", "org-2", membershipdomain.RoleAdmin)
	repo := newMemOKR()
	return NewServer(repo, scope.Fixed{"prod-1": "org-1"}, h.Memberships, h.Pipeline), repo, h
}

func createObjective(t *testing.T, srv *Server, product string) *okrv1.Objective {
	t.Helper()
	out, err := srv.CreateObjective(mutationtest.Ctx("pm"), &okrv1.CreateObjectiveRequest{
		OrgID: "org-1", ProductID: product, Title: "Grow activation", Period: "2026-q4", OwnerID: "dev",
	})
	require.NoError(t, err)
	return out.Objective
}

func addKR(t *testing.T, srv *Server, objectiveID string, start, target float64) *okrv1.KeyResult {
	t.Helper()
	out, err := srv.CreateKeyResult(mutationtest.Ctx("pm"), &okrv1.CreateKeyResultRequest{
		OrgID: "org-1", ObjectiveID: objectiveID, Title: "kr", StartValue: start, TargetValue: target,
	})
	require.NoError(t, err)
	return out.KeyResult
}

func TestCreateObjective(t *testing.T) {
	srv, _, _ := newTestServer(t)
	o := createObjective(t, srv, "prod-1")
	assert.Equal(t, "2026-Q4", o.Period)
	assert.Equal(t, "ON_TRACK", o.Status)
	assert.Equal(t, 0.0, o.Progress)
	assert.Empty(t, o.KeyResults)

	_, err := srv.CreateObjective(mutationtest.Ctx("pm"), &okrv1.CreateObjectiveRequest{OrgID: "org-1", Title: "x", Period: "2026", OwnerID: "stranger"})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("owner_id"))

	_, err = srv.CreateObjective(mutationtest.Ctx("dev"), &okrv1.CreateObjectiveRequest{OrgID: "org-1", Title: "x", Period: "2026"})
	assert.True(t, apperr.IsUnauthorized(err))

	orgWide, err := srv.CreateObjective(mutationtest.Ctx("pm"), &okrv1.CreateObjectiveRequest{OrgID: "org-1", Title: "Company", Period: "2026"})
	require.NoError(t, err)
	assert.Empty(t, orgWide.Objective.ProductID)
}

func TestCheckIn_UpdatesProgress(t *testing.T) {
	srv, _, h := newTestServer(t)
	o := createObjective(t, srv, "prod-1")
	signups := addKR(t, srv, o.ID, 0, 200)
	churn := addKR(t, srv, o.ID, 10, 5)
	assert.Equal(t, 0.0, signups.Progress)

	out, err := srv.CheckIn(mutationtest.Ctx("dev"), &okrv1.CheckInRequest{OrgID: "org-1", KeyResultID: signups.ID, CurrentValue: 150, Note: " good week "})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, out.KeyResult.Progress, 1e-9)
	assert.InDelta(t, 0.375, out.ObjectiveProgress, 1e-9)

	last := h.Audit.Entries()[len(h.Audit.Entries())-1]
	assert.Equal(t, "check_in", last.Action)
	assert.Equal(t, 0.0, last.Metadata["from"])
	assert.Equal(t, 150.0, last.Metadata["to"])
	assert.Equal(t, "good week", last.Metadata["note"])

	out, err = srv.CheckIn(mutationtest.Ctx("dev"), &okrv1.CheckInRequest{OrgID: "org-1", KeyResultID: churn.ID, CurrentValue: 2})
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.KeyResult.Progress, "overshooting a decreasing target clamps to 1")
	assert.InDelta(t, 0.875, out.ObjectiveProgress, 1e-9)

	_, err = srv.CheckIn(mutationtest.Ctx("viewer"), &okrv1.CheckInRequest{OrgID: "org-1", KeyResultID: churn.ID, CurrentValue: 3})
	assert.True(t, apperr.IsUnauthorized(err))

	got, err := srv.GetObjective(mutationtest.Ctx("viewer"), &okrv1.ObjectiveRequest{OrgID: "org-1", ObjectiveID: o.ID})
	require.NoError(t, err)
	assert.InDelta(t, 0.875, got.Objective.Progress, 1e-9)
	assert.Len(t, got.Objective.KeyResults, 2)
}

func TestCheckIn_InvalidatesProductStats(t *testing.T) {
	srv, _, h := newTestServer(t)
	o := createObjective(t, srv, "prod-1")
	kr := addKR(t, srv, o.ID, 0, 10)

	path := revalidate.ViewPath("org-1", "prod-1", "stats")
	calls := 0
	load := func(context.Context) (int, error) { calls++; return calls, nil }
	_, err := revalidate.Load(context.Background(), h.Cache, "org-1", path, load)
	require.NoError(t, err)

	_, err = srv.CheckIn(mutationtest.Ctx("dev"), &okrv1.CheckInRequest{OrgID: "org-1", KeyResultID: kr.ID, CurrentValue: 5})
	require.NoError(t, err)
	_, err = revalidate.Load(context.Background(), h.Cache, "org-1", path, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestKeyResult_Validation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	o := createObjective(t, srv, "")

	_, err := srv.CreateKeyResult(mutationtest.Ctx("pm"), &okrv1.CreateKeyResultRequest{OrgID: "org-1", ObjectiveID: o.ID, Title: "flat", StartValue: 5, TargetValue: 5})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("target_value"))

	_, err = srv.CreateKeyResult(mutationtest.Ctx("pm"), &okrv1.CreateKeyResultRequest{OrgID: "org-1", ObjectiveID: "missing", Title: "x", StartValue: 0, TargetValue: 1})
	assert.True(t, apperr.IsNotFound(err))

	kr := addKR(t, srv, o.ID, 0, 10)
	target := 0.0
	_, err = srv.UpdateKeyResult(mutationtest.Ctx("pm"), &okrv1.UpdateKeyResultRequest{OrgID: "org-1", KeyResultID: kr.ID, TargetValue: &target})
	assert.True(t, apperr.IsValidation(err))
}

func TestListObjectives_BatchesKeyResults(t *testing.T) {
	srv, repo, _ := newTestServer(t)
	a := createObjective(t, srv, "prod-1")
	b := createObjective(t, srv, "prod-1")
	addKR(t, srv, a.ID, 0, 10)
	addKR(t, srv, b.ID, 0, 10)
	addKR(t, srv, b.ID, 0, 10)

	before := repo.krQueries
	out, err := srv.ListObjectives(mutationtest.Ctx("viewer"), &okrv1.ListObjectivesRequest{OrgID: "org-1", Period: "2026-q4"})
	require.NoError(t, err)
	require.Len(t, out.Objectives, 2)
	counts := map[string]int{}
	for _, o := range out.Objectives {
		counts[o.ID] = len(o.KeyResults)
	}
	assert.Equal(t, map[string]int{a.ID: 1, b.ID: 2}, counts)
	assert.Equal(t, 1, repo.krQueries-before)

	_, err = srv.DeleteObjective(mutationtest.Ctx("pm"), &okrv1.ObjectiveRequest{OrgID: "org-1", ObjectiveID: b.ID})
	require.NoError(t, err)
	out, err = srv.ListObjectives(mutationtest.Ctx("viewer"), &okrv1.ListObjectivesRequest{OrgID: "org-1"})
	require.NoError(t, err)
	assert.Len(t, out.Objectives, 1)
}
