package handler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	policyv1 "github.com/foozio/prodmatic-sub002/api/policy/v1"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation/mutationtest"
	"github.com/foozio/prodmatic-sub002/internal/policy/domain"
	"github.com/foozio/prodmatic-sub002/internal/policy/engine"
)

type memPolicies struct {
	mu   sync.Mutex
	byID map[string]*domain.Policy
}

func (m *memPolicies) GetByID(ctx context.Context, orgID, id string) (*domain.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok && p.OrgID == orgID {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memPolicies) ListByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Policy
	for _, p := range m.byID {
		if p.OrgID == orgID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPolicies) GetEnabledPoliciesByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error) {
	all, _ := m.ListByOrg(ctx, orgID)
	var out []*domain.Policy
	for _, p := range all {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPolicies) Create(ctx context.Context, p *domain.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memPolicies) Update(ctx context.Context, p *domain.Policy) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.byID[p.ID]; !ok || cur.OrgID != p.OrgID {
		return false, nil
	}
	cp := *p
	m.byID[p.ID] = &cp
	return true, nil
}

func (m *memPolicies) Delete(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok && p.OrgID == orgID {
		delete(m.byID, id)
		return true, nil
	}
	return false, nil
}

const denyAll = `package prodmatic.authz

deny contains "frozen" if { true }
`

func fixture() (*Server, *memPolicies, *mutationtest.Harness) {
	repo := &memPolicies{byID: make(map[string]*domain.Policy)}
	h := mutationtest.New(mutationtest.WithPolicy(engine.NewOPAEvaluator(repo)))
	h.Memberships.Add("admin", "org-1", membershipdomain.RoleAdmin)
	h.Memberships.Add("pm", "org-1", membershipdomain.RoleProductManager)
	return NewServer(repo, h.Pipeline), repo, h
}

func TestCreatePolicy_AdminOnly(t *testing.T) {
	srv, _, h := fixture()
	_, err := srv.CreatePolicy(mutationtest.Ctx("pm"), &policyv1.CreatePolicyRequest{OrgID: "org-1", Name: "p", Rules: engine.SamplePolicy})
	assert.True(t, apperr.IsUnauthorized(err))

	resp, err := srv.CreatePolicy(mutationtest.Ctx("admin"), &policyv1.CreatePolicyRequest{OrgID: "org-1", Name: " sample ", Rules: engine.SamplePolicy, Enabled: true})
	require.NoError(t, err)
	assert.Equal(t, "sample", resp.Policy.Name)
	require.Len(t, h.Audit.Entries(), 1)
	assert.Equal(t, "policy", h.Audit.Entries()[0].EntityType)
}

func TestCreatePolicy_RejectsUncompilableRules(t *testing.T) {
	srv, _, h := fixture()
	_, err := srv.CreatePolicy(mutationtest.Ctx("admin"), &policyv1.CreatePolicyRequest{OrgID: "org-1", Name: "bad", Rules: "package other\n"})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("rules"))
	assert.Zero(t, h.Tx.Commits)
}

func TestPolicy_ManagementBypassesPolicies(t *testing.T) {
	srv, _, _ := fixture()
	created, err := srv.CreatePolicy(mutationtest.Ctx("admin"), &policyv1.CreatePolicyRequest{OrgID: "org-1", Name: "freeze", Rules: denyAll, Enabled: true})
	require.NoError(t, err)

	disabled := false
	resp, err := srv.UpdatePolicy(mutationtest.Ctx("admin"), &policyv1.UpdatePolicyRequest{OrgID: "org-1", PolicyID: created.Policy.ID, Enabled: &disabled})
	require.NoError(t, err)
	assert.False(t, resp.Policy.Enabled)

	_, err = srv.DeletePolicy(mutationtest.Ctx("admin"), &policyv1.DeletePolicyRequest{OrgID: "org-1", PolicyID: created.Policy.ID})
	require.NoError(t, err)
}

func TestUpdatePolicy_OtherOrgNotFound(t *testing.T) {
	srv, repo, h := fixture()
	h.Memberships.Add("admin", "org-2", membershipdomain.RoleAdmin)
	require.NoError(t, repo.Create(context.Background(), &domain.Policy{ID: "p1", OrgID: "org-1", Name: "x", Rules: engine.SamplePolicy}))

	name := "renamed"
	_, err := srv.UpdatePolicy(mutationtest.Ctx("admin"), &policyv1.UpdatePolicyRequest{OrgID: "org-2", PolicyID: "p1", Name: &name})
	var nf *apperr.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestListAndGetPolicies(t *testing.T) {
	srv, repo, _ := fixture()
	require.NoError(t, repo.Create(context.Background(), &domain.Policy{ID: "p1", OrgID: "org-1", Name: "x", Rules: engine.SamplePolicy}))

	list, err := srv.ListPolicies(mutationtest.Ctx("admin"), &policyv1.ListPoliciesRequest{OrgID: "org-1"})
	require.NoError(t, err)
	assert.Len(t, list.Policies, 1)

	got, err := srv.GetPolicy(mutationtest.Ctx("admin"), &policyv1.GetPolicyRequest{OrgID: "org-1", PolicyID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "x", got.Policy.Name)

	_, err = srv.ListPolicies(mutationtest.Ctx("pm"), &policyv1.ListPoliciesRequest{OrgID: "org-1"})
	assert.True(t, apperr.IsUnauthorized(err))
}
