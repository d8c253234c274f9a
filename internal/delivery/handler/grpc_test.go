package handler

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deliveryv1 "github.com/foozio/prodmatic-sub002/api/delivery/v1"
	"github.com/foozio/prodmatic-sub002/internal/delivery/domain"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation/mutationtest"
	"github.com/foozio/prodmatic-sub002/internal/product/scope"
)

type memDelivery struct {
	mu        sync.Mutex
	epics     map[string]*domain.Epic
	sprints   map[string]*domain.Sprint
	tasks     map[string]*domain.Task
	taskLists int
}

func newMemDelivery() *memDelivery {
	return &memDelivery{epics: map[string]*domain.Epic{}, sprints: map[string]*domain.Sprint{}, tasks: map[string]*domain.Task{}}
}

func (m *memDelivery) GetEpic(ctx context.Context, orgID, id string) (*domain.Epic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.epics[id]; ok && e.OrgID == orgID {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (m *memDelivery) ListEpics(ctx context.Context, orgID, productID string) ([]*domain.Epic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Epic
	for _, e := range m.epics {
		if e.OrgID == orgID && (productID == "" || e.ProductID == productID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memDelivery) CreateEpic(ctx context.Context, e *domain.Epic) error {
	return m.putEpic(e)
}

func (m *memDelivery) putEpic(e *domain.Epic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.epics[e.ID] = &cp
	return nil
}

func (m *memDelivery) UpdateEpic(ctx context.Context, e *domain.Epic) (bool, error) {
	return true, m.putEpic(e)
}

func (m *memDelivery) DeleteEpic(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.epics, id)
	for _, t := range m.tasks {
		if t.EpicID == id {
			t.EpicID = ""
		}
	}
	return true, nil
}

func (m *memDelivery) GetSprint(ctx context.Context, orgID, id string) (*domain.Sprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sp, ok := m.sprints[id]; ok && sp.OrgID == orgID {
		cp := *sp
		return &cp, nil
	}
	return nil, nil
}

func (m *memDelivery) ListSprints(ctx context.Context, orgID, productID string) ([]*domain.Sprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Sprint
	for _, sp := range m.sprints {
		if sp.OrgID == orgID && (productID == "" || sp.ProductID == productID) {
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].StartsOn.Before(out[b].StartsOn) })
	return out, nil
}

func (m *memDelivery) ActiveSprint(ctx context.Context, orgID, productID string) (*domain.Sprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sp := range m.sprints {
		if sp.OrgID == orgID && sp.ProductID == productID && sp.Status == domain.SprintActive {
			cp := *sp
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memDelivery) CreateSprint(ctx context.Context, sp *domain.Sprint) error {
	_, err := m.UpdateSprint(ctx, sp)
	return err
}

func (m *memDelivery) UpdateSprint(ctx context.Context, sp *domain.Sprint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sp
	m.sprints[sp.ID] = &cp
	return true, nil
}

func (m *memDelivery) DeleteSprint(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sprints, id)
	for _, t := range m.tasks {
		if t.SprintID == id {
			t.SprintID = ""
		}
	}
	return true, nil
}

func (m *memDelivery) GetTask(ctx context.Context, orgID, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[id]; ok && t.OrgID == orgID {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (m *memDelivery) ListTasks(ctx context.Context, orgID string, f domain.TaskFilter, limit, offset int32) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taskLists++
	var out []*domain.Task
	for _, t := range m.tasks {
		if t.OrgID != orgID ||
			(f.ProductID != "" && t.ProductID != f.ProductID) ||
			(f.SprintID != "" && t.SprintID != f.SprintID) ||
			(f.EpicID != "" && t.EpicID != f.EpicID) ||
			(f.AssigneeID != "" && t.AssigneeID != f.AssigneeID) ||
			(f.Status != "" && t.Status != f.Status) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (m *memDelivery) CreateTask(ctx context.Context, t *domain.Task) error {
	_, err := m.UpdateTask(ctx, t)
	return err
}

func (m *memDelivery) UpdateTask(ctx context.Context, t *domain.Task) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return true, nil
}

func (m *memDelivery) DeleteTask(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[id]
	delete(m.tasks, id)
	return ok, nil
}

func (m *memDelivery) SetTaskStatus(ctx context.Context, orgID, productID string, ids []string, status domain.TaskStatus, at time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, id := range ids {
		if t, ok := m.tasks[id]; ok && t.OrgID == orgID && t.ProductID == productID {
			t.Status, t.UpdatedAt = status, at
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memDelivery) MoveUnfinishedToBacklog(ctx context.Context, orgID, sprintID string, at time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, t := range m.tasks {
		if t.OrgID == orgID && t.SprintID == sprintID && t.Status != domain.TaskDone {
			t.SprintID, t.Status, t.UpdatedAt = "", domain.TaskBacklog, at
			out = append(out, t.ID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func newTestServer(t *testing.T) (*Server, *memDelivery, *mutationtest.Harness) {
	t.Helper()
	h := mutationtest.New()
	h.Memberships.Add("pm", "org-1", membershipdomain.RoleProductManager)
	h.Memberships.Add("dev", "org-1", membershipdomain.RoleContributor)
	h.Memberships.Add("viewer", "org-1", membershipdomain.RoleStakeholder)
	h.Memberships.Add("outsider", "org-2", membershipdomain.RoleAdmin)
	repo := newMemDelivery()
	products := scope.Fixed{"prod-1": "org-1", "prod-2": "org-1", "prod-x": "org-2"}
	return NewServer(repo, products, h.Memberships, h.Pipeline, h.Cache), repo, h
}

func createTask(t *testing.T, srv *Server, req *deliveryv1.CreateTaskRequest) *deliveryv1.Task {
	t.Helper()
	if req.OrgID == "" {
		req.OrgID = "org-1"
	}
	if req.ProductID == "" {
		req.ProductID = "prod-1"
	}
	out, err := srv.CreateTask(mutationtest.Ctx("dev"), req)
	require.NoError(t, err)
	return out.Task
}

func createSprint(t *testing.T, srv *Server, product, name string) *deliveryv1.Sprint {
	t.Helper()
	start := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	out, err := srv.CreateSprint(mutationtest.Ctx("pm"), &deliveryv1.CreateSprintRequest{
		OrgID: "org-1", ProductID: product, Name: name, StartsOn: start, EndsOn: start.AddDate(0, 0, 13),
	})
	require.NoError(t, err)
	return out.Sprint
}

func TestCreateTask(t *testing.T) {
	srv, _, h := newTestServer(t)

	task := createTask(t, srv, &deliveryv1.CreateTaskRequest{Title: " Ship login ", Priority: "high", AssigneeID: "pm"})
	assert.Equal(t, "Ship login", task.Title)
	assert.Equal(t, "BACKLOG", task.Status)
	assert.Equal(t, "HIGH", task.Priority)
	assert.Equal(t, "dev", task.CreatedBy)

	_, err := srv.CreateTask(mutationtest.Ctx("viewer"), &deliveryv1.CreateTaskRequest{OrgID: "org-1", ProductID: "prod-1", Title: "x"})
	assert.True(t, apperr.IsUnauthorized(err))

	_, err = srv.CreateTask(mutationtest.Ctx("dev"), &deliveryv1.CreateTaskRequest{OrgID: "org-1", ProductID: "prod-1", Title: "x", AssigneeID: "outsider"})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("assignee_id"))

	_, err = srv.CreateTask(mutationtest.Ctx("dev"), &deliveryv1.CreateTaskRequest{OrgID: "org-1", ProductID: "prod-1", Title: "x", StoryPoints: 101, Priority: "whenever"})
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("story_points"))
	assert.NotEmpty(t, ve.Field("priority"))

	_, err = srv.CreateTask(mutationtest.Ctx("dev"), &deliveryv1.CreateTaskRequest{OrgID: "org-1", ProductID: "prod-x", Title: "x"})
	assert.True(t, apperr.IsNotFound(err))

	entries := h.Audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "task", entries[0].EntityType)
	assert.Equal(t, task.ID, entries[0].EntityID)
}

func TestCreateTask_RefsMustShareProduct(t *testing.T) {
	srv, _, _ := newTestServer(t)
	other := createSprint(t, srv, "prod-2", "Other product")
	epic, err := srv.CreateEpic(mutationtest.Ctx("pm"), &deliveryv1.CreateEpicRequest{OrgID: "org-1", ProductID: "prod-2", Title: "Onboarding"})
	require.NoError(t, err)

	_, err = srv.CreateTask(mutationtest.Ctx("dev"), &deliveryv1.CreateTaskRequest{
		OrgID: "org-1", ProductID: "prod-1", Title: "x", SprintID: other.ID, EpicID: epic.Epic.ID,
	})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("sprint_id"))
	assert.NotEmpty(t, ve.Field("epic_id"))
}

func TestUpdateTask(t *testing.T) {
	srv, _, h := newTestServer(t)
	due := time.Date(2026, 11, 1, 15, 30, 0, 0, time.UTC)
	task := createTask(t, srv, &deliveryv1.CreateTaskRequest{Title: "Ship login", DueOn: &due})
	require.NotNil(t, task.DueOn)
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), *task.DueOn)

	status := "in_progress"
	out, err := srv.UpdateTask(mutationtest.Ctx("dev"), &deliveryv1.UpdateTaskRequest{OrgID: "org-1", TaskID: task.ID, Status: &status, ClearDueOn: true})
	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", out.Task.Status)
	assert.Nil(t, out.Task.DueOn)

	last := h.Audit.Entries()[1]
	assert.Equal(t, "update", last.Action)
	assert.Equal(t, "BACKLOG", last.Metadata["from"])
	assert.Equal(t, "IN_PROGRESS", last.Metadata["to"])

	_, err = srv.UpdateTask(mutationtest.Ctx("dev"), &deliveryv1.UpdateTaskRequest{OrgID: "org-1", TaskID: "missing"})
	assert.True(t, apperr.IsNotFound(err))
}

func TestBulkUpdateTaskStatus(t *testing.T) {
	srv, _, h := newTestServer(t)
	a := createTask(t, srv, &deliveryv1.CreateTaskRequest{Title: "a"})
	b := createTask(t, srv, &deliveryv1.CreateTaskRequest{Title: "b"})
	elsewhere := createTask(t, srv, &deliveryv1.CreateTaskRequest{ProductID: "prod-2", Title: "c"})
	before := len(h.Audit.Entries())

	out, err := srv.BulkUpdateTaskStatus(mutationtest.Ctx("dev"), &deliveryv1.BulkUpdateTaskStatusRequest{
		OrgID: "org-1", ProductID: "prod-1", Status: "done", TaskIDs: []string{a.ID, b.ID, a.ID, elsewhere.ID, "missing"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Affected)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, out.TaskIDs)

	entries := h.Audit.Entries()[before:]
	require.Len(t, entries, 2, "one audit row per affected task")
	for _, e := range entries {
		assert.Equal(t, "bulk_status", e.Action)
		assert.Equal(t, "DONE", e.Metadata["status"])
	}

	got, err := srv.GetTask(mutationtest.Ctx("viewer"), &deliveryv1.GetTaskRequest{OrgID: "org-1", TaskID: elsewhere.ID})
	require.NoError(t, err)
	assert.Equal(t, "BACKLOG", got.Task.Status)

	_, err = srv.BulkUpdateTaskStatus(mutationtest.Ctx("dev"), &deliveryv1.BulkUpdateTaskStatusRequest{OrgID: "org-1", ProductID: "prod-1", Status: "DONE"})
	assert.True(t, apperr.IsValidation(err))

	ids := make([]string, MaxBulkTasks+1)
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	_, err = srv.BulkUpdateTaskStatus(mutationtest.Ctx("dev"), &deliveryv1.BulkUpdateTaskStatusRequest{OrgID: "org-1", ProductID: "prod-1", Status: "DONE", TaskIDs: ids})
	assert.True(t, apperr.IsValidation(err))
}

func TestSprintLifecycle(t *testing.T) {
	srv, _, h := newTestServer(t)
	first := createSprint(t, srv, "prod-1", "Sprint 1")
	second := createSprint(t, srv, "prod-1", "Sprint 2")
	assert.Equal(t, "PLANNED", first.Status)

	done := createTask(t, srv, &deliveryv1.CreateTaskRequest{Title: "done", SprintID: first.ID, Status: "DONE"})
	open := createTask(t, srv, &deliveryv1.CreateTaskRequest{Title: "open", SprintID: first.ID, Status: "IN_PROGRESS"})

	_, err := srv.CompleteSprint(mutationtest.Ctx("pm"), &deliveryv1.SprintRequest{OrgID: "org-1", SprintID: first.ID})
	assert.True(t, apperr.IsValidation(err), "a planned sprint cannot be completed")

	started, err := srv.StartSprint(mutationtest.Ctx("pm"), &deliveryv1.SprintRequest{OrgID: "org-1", SprintID: first.ID})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", started.Sprint.Status)

	_, err = srv.StartSprint(mutationtest.Ctx("pm"), &deliveryv1.SprintRequest{OrgID: "org-1", SprintID: second.ID})
	assert.True(t, apperr.IsConflict(err), "only one active sprint per product")

	_, err = srv.StartSprint(mutationtest.Ctx("dev"), &deliveryv1.SprintRequest{OrgID: "org-1", SprintID: second.ID})
	assert.True(t, apperr.IsUnauthorized(err))

	completed, err := srv.CompleteSprint(mutationtest.Ctx("pm"), &deliveryv1.SprintRequest{OrgID: "org-1", SprintID: first.ID})
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", completed.Sprint.Status)
	assert.Equal(t, []string{open.ID}, completed.MovedToBacklog)

	moved, err := srv.GetTask(mutationtest.Ctx("viewer"), &deliveryv1.GetTaskRequest{OrgID: "org-1", TaskID: open.ID})
	require.NoError(t, err)
	assert.Equal(t, "BACKLOG", moved.Task.Status)
	assert.Empty(t, moved.Task.SprintID)
	kept, err := srv.GetTask(mutationtest.Ctx("viewer"), &deliveryv1.GetTaskRequest{OrgID: "org-1", TaskID: done.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, kept.Task.SprintID)

	last := h.Audit.Entries()[len(h.Audit.Entries())-1]
	assert.Equal(t, "complete", last.Action)
	assert.Equal(t, first.ID, last.EntityID)

	_, err = srv.StartSprint(mutationtest.Ctx("pm"), &deliveryv1.SprintRequest{OrgID: "org-1", SprintID: second.ID})
	assert.NoError(t, err, "the product has no active sprint any more")
}

func TestCreateSprint_Validation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	start := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	_, err := srv.CreateSprint(mutationtest.Ctx("pm"), &deliveryv1.CreateSprintRequest{
		OrgID: "org-1", ProductID: "prod-1", Name: "Backwards", StartsOn: start, EndsOn: start.AddDate(0, 0, -1),
	})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Field("ends_on"))
}

func TestGetBoard(t *testing.T) {
	srv, repo, _ := newTestServer(t)
	low := createTask(t, srv, &deliveryv1.CreateTaskRequest{Title: "low", Priority: "LOW", Status: "TODO"})
	urgent := createTask(t, srv, &deliveryv1.CreateTaskRequest{Title: "urgent", Priority: "URGENT", Status: "TODO"})
	createTask(t, srv, &deliveryv1.CreateTaskRequest{Title: "review", Status: "IN_REVIEW"})

	req := &deliveryv1.GetBoardRequest{OrgID: "org-1", ProductID: "prod-1"}
	out, err := srv.GetBoard(mutationtest.Ctx("viewer"), req)
	require.NoError(t, err)
	cols := out.Board.Columns
	require.Len(t, cols, 5)
	assert.Equal(t, []string{"BACKLOG", "TODO", "IN_PROGRESS", "IN_REVIEW", "DONE"},
		[]string{cols[0].Status, cols[1].Status, cols[2].Status, cols[3].Status, cols[4].Status})
	require.Len(t, cols[1].Tasks, 2)
	assert.Equal(t, urgent.ID, cols[1].Tasks[0].ID)
	assert.Equal(t, low.ID, cols[1].Tasks[1].ID)
	assert.Empty(t, cols[0].Tasks)

	_, err = srv.GetBoard(mutationtest.Ctx("viewer"), req)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.taskLists, "second read served from the view cache")

	createTask(t, srv, &deliveryv1.CreateTaskRequest{Title: "new"})
	out, err = srv.GetBoard(mutationtest.Ctx("viewer"), req)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.taskLists, "task mutation invalidated the board")
	assert.Len(t, out.Board.Columns[0].Tasks, 1)

	_, err = srv.GetBoard(mutationtest.Ctx("outsider"), req)
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestDeleteEpic_DetachesTasks(t *testing.T) {
	srv, _, _ := newTestServer(t)
	epic, err := srv.CreateEpic(mutationtest.Ctx("pm"), &deliveryv1.CreateEpicRequest{OrgID: "org-1", ProductID: "prod-1", Title: "Onboarding"})
	require.NoError(t, err)
	task := createTask(t, srv, &deliveryv1.CreateTaskRequest{Title: "a", EpicID: epic.Epic.ID})

	_, err = srv.DeleteEpic(mutationtest.Ctx("dev"), &deliveryv1.DeleteEpicRequest{OrgID: "org-1", EpicID: epic.Epic.ID})
	assert.True(t, apperr.IsUnauthorized(err))

	_, err = srv.DeleteEpic(mutationtest.Ctx("pm"), &deliveryv1.DeleteEpicRequest{OrgID: "org-1", EpicID: epic.Epic.ID})
	require.NoError(t, err)

	got, err := srv.GetTask(mutationtest.Ctx("viewer"), &deliveryv1.GetTaskRequest{OrgID: "org-1", TaskID: task.ID})
	require.NoError(t, err)
	assert.Empty(t, got.Task.EpicID)

	list, err := srv.ListEpics(mutationtest.Ctx("viewer"), &deliveryv1.ListEpicsRequest{OrgID: "org-1", ProductID: "prod-1"})
	require.NoError(t, err)
	assert.Empty(t, list.Epics)
}
