package handler

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ideav1 "github.com/foozio/prodmatic-sub002/api/idea/v1"
	"github.com/foozio/prodmatic-sub002/internal/idea/domain"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation/mutationtest"
	"github.com/foozio/prodmatic-sub002/internal/product/scope"
)

type memIdeas struct {
	mu    sync.Mutex
	ideas map[string]*domain.Idea
	votes map[string]bool
}

func newMemIdeas() *memIdeas {
	return &memIdeas{ideas: map[string]*domain.Idea{}, votes: map[string]bool{}}
}

func (m *memIdeas) GetIdea(ctx context.Context, orgID, id string) (*domain.Idea, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.ideas[id]; ok && i.OrgID == orgID && i.DeletedAt == nil {
		cp := *i
		return &cp, nil
	}
	return nil, nil
}

func (m *memIdeas) ListIdeas(ctx context.Context, orgID string, f domain.Filter, limit, offset int32) ([]*domain.Idea, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Idea
	for _, i := range m.ideas {
		if i.OrgID != orgID || i.DeletedAt != nil {
			continue
		}
		if (f.ProductID != "" && i.ProductID != f.ProductID) || (f.Status != "" && i.Status != f.Status) {
			continue
		}
		out = append(out, i)
	}
	score := func(i *domain.Idea) float64 {
		var p *float64
		switch f.Sort {
		case domain.SortRICE:
			p = i.RICEScore
		case domain.SortICE:
			p = i.ICEScore
		case domain.SortWSJF:
			p = i.WSJFScore
		case domain.SortVotes:
			return float64(i.VoteCount)
		default:
			return float64(i.CreatedAt.UnixNano())
		}
		if p == nil {
			return -1
		}
		return *p
	}
	sort.SliceStable(out, func(a, b int) bool { return score(out[a]) > score(out[b]) })
	return out, nil
}

func (m *memIdeas) CreateIdea(ctx context.Context, i *domain.Idea) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *i
	m.ideas[i.ID] = &cp
	return nil
}

func (m *memIdeas) UpdateIdea(ctx context.Context, i *domain.Idea) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *i
	cp.VoteCount = m.ideas[i.ID].VoteCount
	m.ideas[i.ID] = &cp
	return true, nil
}

func (m *memIdeas) DeleteIdea(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ideas[id].DeletedAt = &at
	return true, nil
}

func (m *memIdeas) AddVote(ctx context.Context, orgID, ideaID, userID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.votes[ideaID+userID] {
		return false, nil
	}
	m.votes[ideaID+userID] = true
	m.ideas[ideaID].VoteCount++
	return true, nil
}

func (m *memIdeas) RemoveVote(ctx context.Context, orgID, ideaID, userID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.votes[ideaID+userID] {
		return false, nil
	}
	delete(m.votes, ideaID+userID)
	m.ideas[ideaID].VoteCount--
	return true, nil
}

func newTestServer(t *testing.T) (*Server, *mutationtest.Harness) {
	t.Helper()
	h := mutationtest.New()
	h.Memberships.Add("pm", "org-1", membershipdomain.RoleProductManager)
	h.Memberships.Add("dev", "org-1", membershipdomain.RoleContributor)
	h.Memberships.Add("viewer", "org-1", membershipdomain.RoleStakeholder)
	h.Memberships.Add("other", "org-2", membershipdomain.RoleAdmin)
	return NewServer(newMemIdeas(), scope.Fixed{"prod-1": "org-1", "prod-2": "org-2"}, h.Pipeline), h
}

func createIdea(t *testing.T, srv *Server, title string) *ideav1.Idea {
	t.Helper()
	out, err := srv.CreateIdea(mutationtest.Ctx("dev"), &ideav1.CreateIdeaRequest{OrgID: "org-1", ProductID: "prod-1", Title: title})
	require.NoError(t, err)
	return out.Idea
}

func TestCreateIdea(t *testing.T) {
	srv, h := newTestServer(t)

	idea := createIdea(t, srv, "  Dark mode ")
	assert.Equal(t, "Dark mode", idea.Title)
	assert.Equal(t, "SUBMITTED", idea.Status)
	assert.Nil(t, idea.RICEScore)

	_, err := srv.CreateIdea(mutationtest.Ctx("viewer"), &ideav1.CreateIdeaRequest{OrgID: "org-1", ProductID: "prod-1", Title: "x"})
	assert.True(t, apperr.IsUnauthorized(err))

	_, err = srv.CreateIdea(mutationtest.Ctx("dev"), &ideav1.CreateIdeaRequest{OrgID: "org-1", ProductID: "prod-2", Title: "x"})
	assert.True(t, apperr.IsNotFound(err), "product of another org")

	_, err = srv.CreateIdea(mutationtest.Ctx("dev"), &ideav1.CreateIdeaRequest{OrgID: "org-1"})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("product_id"))
	assert.NotEmpty(t, ve.Field("title"))

	assert.Len(t, h.Audit.Entries(), 1)
	assert.Equal(t, 1, h.Tx.Rollbacks)
}

func TestScoreIdea(t *testing.T) {
	srv, h := newTestServer(t)
	idea := createIdea(t, srv, "Dark mode")

	out, err := srv.ScoreIdea(mutationtest.Ctx("pm"), &ideav1.ScoreIdeaRequest{
		OrgID:  "org-1",
		IdeaID: idea.ID,
		RICE:   &ideav1.RICEInput{Reach: 1000, Impact: 2, Confidence: 80, Effort: 3},
		WSJF:   &ideav1.WSJFInput{BusinessValue: 8, TimeCriticality: 5, RiskReduction: 3, JobSize: 3},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Idea.RICEScore)
	assert.Equal(t, 533.33, *out.Idea.RICEScore)
	assert.Equal(t, 5.33, *out.Idea.WSJFScore)
	assert.Nil(t, out.Idea.ICEScore)
	assert.Equal(t, 2.0, out.Idea.RICE.Impact)

	// ICE alone leaves the other scores in place.
	out, err = srv.ScoreIdea(mutationtest.Ctx("pm"), &ideav1.ScoreIdeaRequest{
		OrgID: "org-1", IdeaID: idea.ID, ICE: &ideav1.ICEInput{Impact: 7, Confidence: 5, Ease: 9},
	})
	require.NoError(t, err)
	assert.Equal(t, 315.0, *out.Idea.ICEScore)
	assert.Equal(t, 533.33, *out.Idea.RICEScore)

	entries := h.Audit.Entries()
	assert.Equal(t, "score", entries[len(entries)-1].Action)
	assert.Equal(t, 315.0, entries[len(entries)-1].Metadata["ice"])
}

func TestScoreIdea_Validation(t *testing.T) {
	srv, h := newTestServer(t)
	idea := createIdea(t, srv, "Dark mode")

	_, err := srv.ScoreIdea(mutationtest.Ctx("pm"), &ideav1.ScoreIdeaRequest{OrgID: "org-1", IdeaID: idea.ID})
	assert.True(t, apperr.IsValidation(err))

	_, err = srv.ScoreIdea(mutationtest.Ctx("pm"), &ideav1.ScoreIdeaRequest{
		OrgID:  "org-1",
		IdeaID: idea.ID,
		RICE:   &ideav1.RICEInput{Reach: 10, Impact: 4, Confidence: 50, Effort: 0},
		ICE:    &ideav1.ICEInput{Impact: 5, Confidence: 5, Ease: 5},
	})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("rice.impact"))
	assert.NotEmpty(t, ve.Field("rice.effort"))
	assert.Empty(t, ve.Field("ice.impact"))

	_, err = srv.ScoreIdea(mutationtest.Ctx("dev"), &ideav1.ScoreIdeaRequest{
		OrgID: "org-1", IdeaID: idea.ID, ICE: &ideav1.ICEInput{Impact: 5, Confidence: 5, Ease: 5},
	})
	assert.True(t, apperr.IsUnauthorized(err))
	assert.Len(t, h.Audit.Entries(), 1, "only the create was audited")
}

func TestScoreIdea_OverflowIsFieldError(t *testing.T) {
	srv, h := newTestServer(t)
	idea := createIdea(t, srv, "Dark mode")

	_, err := srv.ScoreIdea(mutationtest.Ctx("pm"), &ideav1.ScoreIdeaRequest{
		OrgID:  "org-1",
		IdeaID: idea.ID,
		RICE:   &ideav1.RICEInput{Reach: 1e308, Impact: 3, Confidence: 100, Effort: 0.5},
	})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("rice.reach"))
	assert.Len(t, h.Audit.Entries(), 1, "only the create was audited")
}

func TestVoteIdea(t *testing.T) {
	srv, _ := newTestServer(t)
	idea := createIdea(t, srv, "Dark mode")
	req := &ideav1.VoteIdeaRequest{OrgID: "org-1", IdeaID: idea.ID}

	out, err := srv.VoteIdea(mutationtest.Ctx("viewer"), req)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Idea.VoteCount)

	_, err = srv.VoteIdea(mutationtest.Ctx("viewer"), req)
	assert.True(t, apperr.IsConflict(err))

	out, err = srv.VoteIdea(mutationtest.Ctx("dev"), req)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Idea.VoteCount)

	out, err = srv.UnvoteIdea(mutationtest.Ctx("viewer"), req)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Idea.VoteCount)

	_, err = srv.UnvoteIdea(mutationtest.Ctx("viewer"), req)
	assert.True(t, apperr.IsConflict(err))

	_, err = srv.VoteIdea(mutationtest.Ctx("other"), req)
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestChangeIdeaStatus(t *testing.T) {
	srv, h := newTestServer(t)
	idea := createIdea(t, srv, "Dark mode")

	out, err := srv.ChangeIdeaStatus(mutationtest.Ctx("pm"), &ideav1.ChangeIdeaStatusRequest{OrgID: "org-1", IdeaID: idea.ID, Status: "planned"})
	require.NoError(t, err)
	assert.Equal(t, "PLANNED", out.Idea.Status)
	last := h.Audit.Entries()[1]
	assert.Equal(t, "status_change", last.Action)
	assert.Equal(t, "SUBMITTED", last.Metadata["from"])

	_, err = srv.ChangeIdeaStatus(mutationtest.Ctx("pm"), &ideav1.ChangeIdeaStatusRequest{OrgID: "org-1", IdeaID: idea.ID, Status: "DONE"})
	assert.True(t, apperr.IsValidation(err))
}

func TestListIdeas_SortAndSoftDelete(t *testing.T) {
	srv, _ := newTestServer(t)
	low := createIdea(t, srv, "Low")
	high := createIdea(t, srv, "High")
	unscored := createIdea(t, srv, "Unscored")
	gone := createIdea(t, srv, "Gone")

	for id, reach := range map[string]float64{low.ID: 10, high.ID: 1000, gone.ID: 5000} {
		_, err := srv.ScoreIdea(mutationtest.Ctx("pm"), &ideav1.ScoreIdeaRequest{
			OrgID: "org-1", IdeaID: id, RICE: &ideav1.RICEInput{Reach: reach, Impact: 1, Confidence: 100, Effort: 1},
		})
		require.NoError(t, err)
	}
	_, err := srv.DeleteIdea(mutationtest.Ctx("pm"), &ideav1.DeleteIdeaRequest{OrgID: "org-1", IdeaID: gone.ID})
	require.NoError(t, err)

	out, err := srv.ListIdeas(mutationtest.Ctx("viewer"), &ideav1.ListIdeasRequest{OrgID: "org-1", SortBy: "rice"})
	require.NoError(t, err)
	require.Len(t, out.Ideas, 3)
	assert.Equal(t, []string{high.ID, low.ID, unscored.ID}, []string{out.Ideas[0].ID, out.Ideas[1].ID, out.Ideas[2].ID})

	_, err = srv.GetIdea(mutationtest.Ctx("viewer"), &ideav1.GetIdeaRequest{OrgID: "org-1", IdeaID: gone.ID})
	assert.True(t, apperr.IsNotFound(err))

	_, err = srv.ListIdeas(mutationtest.Ctx("viewer"), &ideav1.ListIdeasRequest{OrgID: "org-1", SortBy: "priority"})
	assert.True(t, apperr.IsValidation(err))
}
