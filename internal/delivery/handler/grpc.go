package handler

import (
	"context"
	"strings"

	"github.com/google/uuid"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	deliveryv1 "github.com/foozio/prodmatic-sub002/api/delivery/v1"
	"github.com/foozio/prodmatic-sub002/internal/delivery/domain"
	deliveryrepo "github.com/foozio/prodmatic-sub002/internal/delivery/repository"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/platform/mutation"
	"github.com/foozio/prodmatic-sub002/internal/product/scope"
	"github.com/foozio/prodmatic-sub002/internal/revalidate"
	"github.com/foozio/prodmatic-sub002/internal/session"
)

// MaxBulkTasks caps the ids accepted by BulkUpdateTaskStatus.
const MaxBulkTasks = 500

// boardLimit bounds the tasks loaded into one board.
const boardLimit = 2000

// MemberChecker resolves a user's membership in an organization.
type MemberChecker interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error)
}

// Server implements DeliveryService.
type Server struct {
	repo     deliveryrepo.Repository
	products scope.Checker
	members  MemberChecker
	pipeline *mutation.Pipeline
	cache    *revalidate.ViewCache
}

// NewServer returns a Delivery server. cache may be nil; boards are then built on every call.
func NewServer(repo deliveryrepo.Repository, products scope.Checker, members MemberChecker, pipeline *mutation.Pipeline, cache *revalidate.ViewCache) *Server {
	return &Server{repo: repo, products: products, members: members, pipeline: pipeline, cache: cache}
}

// --- tasks ---

func (s *Server) CreateTask(ctx context.Context, req *deliveryv1.CreateTaskRequest) (*deliveryv1.TaskResponse, error) {
	var t *domain.Task
	op := mutation.Op[deliveryv1.CreateTaskRequest, deliveryv1.TaskResponse]{
		Action:     "create",
		EntityType: "task",
		MinRole:    membershipdomain.RoleContributor,
		Validate: func(in *deliveryv1.CreateTaskRequest) error {
			t = &domain.Task{
				ProductID:   in.ProductID,
				EpicID:      in.EpicID,
				SprintID:    in.SprintID,
				Title:       in.Title,
				Description: in.Description,
				Status:      domain.TaskStatus(upper(in.Status, string(domain.TaskBacklog))),
				Priority:    domain.Priority(upper(in.Priority, string(domain.PriorityMedium))),
				AssigneeID:  in.AssigneeID,
				StoryPoints: in.StoryPoints,
				DueOn:       in.DueOn,
			}
			var v apperr.Validator
			v.Check(in.ProductID != "", "product_id", "is required")
			v.Merge(t.Validate())
			return v.Err()
		},
		Apply: func(ctx context.Context, p *session.Principal, in *deliveryv1.CreateTaskRequest) (*deliveryv1.TaskResponse, mutation.Result, error) {
			if err := scope.Require(ctx, s.products, in.OrgID, in.ProductID); err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			t.ID, t.OrgID, t.CreatedBy, t.CreatedAt, t.UpdatedAt = uuid.NewString(), in.OrgID, p.UserID, now, now
			if err := s.checkRefs(ctx, t); err != nil {
				return nil, mutation.Result{}, err
			}
			if err := s.repo.CreateTask(ctx, t); err != nil {
				return nil, mutation.Result{}, err
			}
			return respondTask(t, map[string]any{"title": t.Title, "status": string(t.Status)})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdateTask(ctx context.Context, req *deliveryv1.UpdateTaskRequest) (*deliveryv1.TaskResponse, error) {
	op := mutation.Op[deliveryv1.UpdateTaskRequest, deliveryv1.TaskResponse]{
		Action:     "update",
		EntityType: "task",
		MinRole:    membershipdomain.RoleContributor,
		Validate:   func(in *deliveryv1.UpdateTaskRequest) error { return requireID("task_id", in.TaskID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *deliveryv1.UpdateTaskRequest) (*deliveryv1.TaskResponse, mutation.Result, error) {
			t, err := s.loadTask(ctx, in.OrgID, in.TaskID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			from := t.Status
			setString(&t.EpicID, in.EpicID)
			setString(&t.SprintID, in.SprintID)
			setString(&t.Title, in.Title)
			setString(&t.Description, in.Description)
			setString(&t.AssigneeID, in.AssigneeID)
			if in.Status != nil {
				t.Status = domain.TaskStatus(upper(*in.Status, ""))
			}
			if in.Priority != nil {
				t.Priority = domain.Priority(upper(*in.Priority, ""))
			}
			if in.StoryPoints != nil {
				t.StoryPoints = *in.StoryPoints
			}
			switch {
			case in.ClearDueOn:
				t.DueOn = nil
			case in.DueOn != nil:
				t.DueOn = in.DueOn
			}
			if err := t.Validate(); err != nil {
				return nil, mutation.Result{}, err
			}
			if err := s.checkRefs(ctx, t); err != nil {
				return nil, mutation.Result{}, err
			}
			t.UpdatedAt = s.pipeline.Now()
			if _, err := s.repo.UpdateTask(ctx, t); err != nil {
				return nil, mutation.Result{}, err
			}
			meta := map[string]any{"title": t.Title}
			if from != t.Status {
				meta["from"], meta["to"] = string(from), string(t.Status)
			}
			return respondTask(t, meta)
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) DeleteTask(ctx context.Context, req *deliveryv1.DeleteTaskRequest) (*commonv1.Empty, error) {
	op := mutation.Op[deliveryv1.DeleteTaskRequest, commonv1.Empty]{
		Action:     "delete",
		EntityType: "task",
		MinRole:    membershipdomain.RoleContributor,
		Validate:   func(in *deliveryv1.DeleteTaskRequest) error { return requireID("task_id", in.TaskID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *deliveryv1.DeleteTaskRequest) (*commonv1.Empty, mutation.Result, error) {
			t, err := s.loadTask(ctx, in.OrgID, in.TaskID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if _, err := s.repo.DeleteTask(ctx, in.OrgID, t.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			return &commonv1.Empty{}, mutation.Result{
				EntityIDs: []string{t.ID},
				Metadata:  map[string]any{"title": t.Title},
				Paths:     []string{revalidate.ProductPath(t.OrgID, t.ProductID)},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// BulkUpdateTaskStatus moves many tasks of one product to a status with a single statement.
// Ids that are unknown, deleted or of another product are skipped; only changed tasks are audited.
func (s *Server) BulkUpdateTaskStatus(ctx context.Context, req *deliveryv1.BulkUpdateTaskStatusRequest) (*deliveryv1.BulkUpdateTaskStatusResponse, error) {
	op := mutation.Op[deliveryv1.BulkUpdateTaskStatusRequest, deliveryv1.BulkUpdateTaskStatusResponse]{
		Action:     "bulk_status",
		EntityType: "task",
		MinRole:    membershipdomain.RoleContributor,
		Validate: func(in *deliveryv1.BulkUpdateTaskStatusRequest) error {
			in.Status = upper(in.Status, "")
			in.TaskIDs = dedupe(in.TaskIDs)
			var v apperr.Validator
			v.Check(in.ProductID != "", "product_id", "is required")
			v.Check(len(in.TaskIDs) > 0, "task_ids", "is required")
			v.Check(len(in.TaskIDs) <= MaxBulkTasks, "task_ids", "must contain at most 500 ids")
			v.Check(domain.TaskStatus(in.Status).Valid(), "status", "must be one of BACKLOG, TODO, IN_PROGRESS, IN_REVIEW, DONE")
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *deliveryv1.BulkUpdateTaskStatusRequest) (*deliveryv1.BulkUpdateTaskStatusResponse, mutation.Result, error) {
			if err := scope.Require(ctx, s.products, in.OrgID, in.ProductID); err != nil {
				return nil, mutation.Result{}, err
			}
			ids, err := s.repo.SetTaskStatus(ctx, in.OrgID, in.ProductID, in.TaskIDs, domain.TaskStatus(in.Status), s.pipeline.Now())
			if err != nil {
				return nil, mutation.Result{}, err
			}
			return &deliveryv1.BulkUpdateTaskStatusResponse{Affected: int64(len(ids)), TaskIDs: ids}, mutation.Result{
				EntityIDs: ids,
				Metadata:  map[string]any{"status": in.Status},
				Paths:     []string{revalidate.ProductPath(in.OrgID, in.ProductID)},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) GetTask(ctx context.Context, req *deliveryv1.GetTaskRequest) (*deliveryv1.TaskResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	t, err := s.loadTask(ctx, req.OrgID, req.TaskID)
	if err != nil {
		return nil, apperr.Storage("get task", err)
	}
	return &deliveryv1.TaskResponse{Task: taskToProto(t)}, nil
}

func (s *Server) ListTasks(ctx context.Context, req *deliveryv1.ListTasksRequest) (*deliveryv1.ListTasksResponse, error) {
	status := domain.TaskStatus(upper(req.Status, ""))
	var v apperr.Validator
	v.Check(status == "" || status.Valid(), "status", "is not a known task status")
	if err := v.Err(); err != nil {
		return nil, err
	}
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	limit, offset := req.Pagination.LimitOffset()
	f := domain.TaskFilter{ProductID: req.ProductID, SprintID: req.SprintID, EpicID: req.EpicID, AssigneeID: req.AssigneeID, Status: status}
	list, err := s.repo.ListTasks(ctx, req.OrgID, f, limit, offset)
	if err != nil {
		return nil, apperr.Storage("list tasks", err)
	}
	return &deliveryv1.ListTasksResponse{Tasks: tasksToProto(list), Pagination: commonv1.Next(limit, offset, len(list))}, nil
}

// --- epics ---

func (s *Server) CreateEpic(ctx context.Context, req *deliveryv1.CreateEpicRequest) (*deliveryv1.EpicResponse, error) {
	var e *domain.Epic
	op := mutation.Op[deliveryv1.CreateEpicRequest, deliveryv1.EpicResponse]{
		Action:     "create",
		EntityType: "epic",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *deliveryv1.CreateEpicRequest) error {
			e = &domain.Epic{ProductID: in.ProductID, Title: in.Title, Description: in.Description, Status: domain.EpicOpen}
			var v apperr.Validator
			v.Check(in.ProductID != "", "product_id", "is required")
			v.Merge(e.Validate())
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *deliveryv1.CreateEpicRequest) (*deliveryv1.EpicResponse, mutation.Result, error) {
			if err := scope.Require(ctx, s.products, in.OrgID, in.ProductID); err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			e.ID, e.OrgID, e.CreatedAt, e.UpdatedAt = uuid.NewString(), in.OrgID, now, now
			if err := s.repo.CreateEpic(ctx, e); err != nil {
				return nil, mutation.Result{}, err
			}
			return respondEpic(e, map[string]any{"title": e.Title})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdateEpic(ctx context.Context, req *deliveryv1.UpdateEpicRequest) (*deliveryv1.EpicResponse, error) {
	op := mutation.Op[deliveryv1.UpdateEpicRequest, deliveryv1.EpicResponse]{
		Action:     "update",
		EntityType: "epic",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *deliveryv1.UpdateEpicRequest) error { return requireID("epic_id", in.EpicID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *deliveryv1.UpdateEpicRequest) (*deliveryv1.EpicResponse, mutation.Result, error) {
			e, err := s.loadEpic(ctx, in.OrgID, in.EpicID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			setString(&e.Title, in.Title)
			setString(&e.Description, in.Description)
			if in.Status != nil {
				e.Status = domain.EpicStatus(upper(*in.Status, ""))
			}
			if err := e.Validate(); err != nil {
				return nil, mutation.Result{}, err
			}
			e.UpdatedAt = s.pipeline.Now()
			if _, err := s.repo.UpdateEpic(ctx, e); err != nil {
				return nil, mutation.Result{}, err
			}
			return respondEpic(e, map[string]any{"title": e.Title, "status": string(e.Status)})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// DeleteEpic soft-deletes the epic; its tasks stay on the board without an epic.
func (s *Server) DeleteEpic(ctx context.Context, req *deliveryv1.DeleteEpicRequest) (*commonv1.Empty, error) {
	op := mutation.Op[deliveryv1.DeleteEpicRequest, commonv1.Empty]{
		Action:     "delete",
		EntityType: "epic",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *deliveryv1.DeleteEpicRequest) error { return requireID("epic_id", in.EpicID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *deliveryv1.DeleteEpicRequest) (*commonv1.Empty, mutation.Result, error) {
			e, err := s.loadEpic(ctx, in.OrgID, in.EpicID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if _, err := s.repo.DeleteEpic(ctx, in.OrgID, e.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			return &commonv1.Empty{}, mutation.Result{
				EntityIDs: []string{e.ID},
				Metadata:  map[string]any{"title": e.Title},
				Paths:     []string{revalidate.ProductPath(e.OrgID, e.ProductID)},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) ListEpics(ctx context.Context, req *deliveryv1.ListEpicsRequest) (*deliveryv1.ListEpicsResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	list, err := s.repo.ListEpics(ctx, req.OrgID, req.ProductID)
	if err != nil {
		return nil, apperr.Storage("list epics", err)
	}
	out := make([]*deliveryv1.Epic, len(list))
	for i, e := range list {
		out[i] = epicToProto(e)
	}
	return &deliveryv1.ListEpicsResponse{Epics: out}, nil
}

// --- sprints ---

func (s *Server) CreateSprint(ctx context.Context, req *deliveryv1.CreateSprintRequest) (*deliveryv1.SprintResponse, error) {
	var sp *domain.Sprint
	op := mutation.Op[deliveryv1.CreateSprintRequest, deliveryv1.SprintResponse]{
		Action:     "create",
		EntityType: "sprint",
		MinRole:    membershipdomain.RoleProductManager,
		Validate: func(in *deliveryv1.CreateSprintRequest) error {
			sp = &domain.Sprint{ProductID: in.ProductID, Name: in.Name, Goal: in.Goal, StartsOn: in.StartsOn, EndsOn: in.EndsOn, Status: domain.SprintPlanned}
			var v apperr.Validator
			v.Check(in.ProductID != "", "product_id", "is required")
			v.Merge(sp.Validate())
			return v.Err()
		},
		Apply: func(ctx context.Context, _ *session.Principal, in *deliveryv1.CreateSprintRequest) (*deliveryv1.SprintResponse, mutation.Result, error) {
			if err := scope.Require(ctx, s.products, in.OrgID, in.ProductID); err != nil {
				return nil, mutation.Result{}, err
			}
			now := s.pipeline.Now()
			sp.ID, sp.OrgID, sp.CreatedAt, sp.UpdatedAt = uuid.NewString(), in.OrgID, now, now
			if err := s.repo.CreateSprint(ctx, sp); err != nil {
				return nil, mutation.Result{}, err
			}
			return respondSprint(sp, map[string]any{"name": sp.Name})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) UpdateSprint(ctx context.Context, req *deliveryv1.UpdateSprintRequest) (*deliveryv1.SprintResponse, error) {
	op := mutation.Op[deliveryv1.UpdateSprintRequest, deliveryv1.SprintResponse]{
		Action:     "update",
		EntityType: "sprint",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *deliveryv1.UpdateSprintRequest) error { return requireID("sprint_id", in.SprintID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *deliveryv1.UpdateSprintRequest) (*deliveryv1.SprintResponse, mutation.Result, error) {
			sp, err := s.loadSprint(ctx, in.OrgID, in.SprintID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			setString(&sp.Name, in.Name)
			setString(&sp.Goal, in.Goal)
			if in.StartsOn != nil {
				sp.StartsOn = *in.StartsOn
			}
			if in.EndsOn != nil {
				sp.EndsOn = *in.EndsOn
			}
			if err := s.saveSprint(ctx, sp); err != nil {
				return nil, mutation.Result{}, err
			}
			return respondSprint(sp, map[string]any{"name": sp.Name})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// DeleteSprint soft-deletes the sprint and returns its tasks to the product backlog view.
func (s *Server) DeleteSprint(ctx context.Context, req *deliveryv1.SprintRequest) (*commonv1.Empty, error) {
	op := mutation.Op[deliveryv1.SprintRequest, commonv1.Empty]{
		Action:     "delete",
		EntityType: "sprint",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *deliveryv1.SprintRequest) error { return requireID("sprint_id", in.SprintID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *deliveryv1.SprintRequest) (*commonv1.Empty, mutation.Result, error) {
			sp, err := s.loadSprint(ctx, in.OrgID, in.SprintID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if _, err := s.repo.DeleteSprint(ctx, in.OrgID, sp.ID, s.pipeline.Now()); err != nil {
				return nil, mutation.Result{}, err
			}
			return &commonv1.Empty{}, mutation.Result{
				EntityIDs: []string{sp.ID},
				Metadata:  map[string]any{"name": sp.Name},
				Paths:     []string{revalidate.ProductPath(sp.OrgID, sp.ProductID)},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// StartSprint moves a PLANNED sprint to ACTIVE. A product has at most one ACTIVE sprint.
func (s *Server) StartSprint(ctx context.Context, req *deliveryv1.SprintRequest) (*deliveryv1.SprintResponse, error) {
	op := mutation.Op[deliveryv1.SprintRequest, deliveryv1.SprintResponse]{
		Action:     "start",
		EntityType: "sprint",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *deliveryv1.SprintRequest) error { return requireID("sprint_id", in.SprintID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *deliveryv1.SprintRequest) (*deliveryv1.SprintResponse, mutation.Result, error) {
			sp, err := s.loadSprint(ctx, in.OrgID, in.SprintID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if sp.Status != domain.SprintPlanned {
				return nil, mutation.Result{}, statusError("only a PLANNED sprint can be started")
			}
			active, err := s.repo.ActiveSprint(ctx, in.OrgID, sp.ProductID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if active != nil {
				return nil, mutation.Result{}, apperr.Conflict("sprint %q is already active for this product", active.Name)
			}
			sp.Status = domain.SprintActive
			if err := s.saveSprint(ctx, sp); err != nil {
				return nil, mutation.Result{}, err
			}
			return respondSprint(sp, map[string]any{"from": string(domain.SprintPlanned), "to": string(sp.Status)})
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

// CompleteSprint closes an ACTIVE sprint. Its tasks that are not DONE leave the sprint and go back
// to BACKLOG in one statement; their ids are recorded on the sprint's audit row.
func (s *Server) CompleteSprint(ctx context.Context, req *deliveryv1.SprintRequest) (*deliveryv1.CompleteSprintResponse, error) {
	op := mutation.Op[deliveryv1.SprintRequest, deliveryv1.CompleteSprintResponse]{
		Action:     "complete",
		EntityType: "sprint",
		MinRole:    membershipdomain.RoleProductManager,
		Validate:   func(in *deliveryv1.SprintRequest) error { return requireID("sprint_id", in.SprintID) },
		Apply: func(ctx context.Context, _ *session.Principal, in *deliveryv1.SprintRequest) (*deliveryv1.CompleteSprintResponse, mutation.Result, error) {
			sp, err := s.loadSprint(ctx, in.OrgID, in.SprintID)
			if err != nil {
				return nil, mutation.Result{}, err
			}
			if sp.Status != domain.SprintActive {
				return nil, mutation.Result{}, statusError("only an ACTIVE sprint can be completed")
			}
			moved, err := s.repo.MoveUnfinishedToBacklog(ctx, in.OrgID, sp.ID, s.pipeline.Now())
			if err != nil {
				return nil, mutation.Result{}, err
			}
			sp.Status = domain.SprintCompleted
			if err := s.saveSprint(ctx, sp); err != nil {
				return nil, mutation.Result{}, err
			}
			if moved == nil {
				moved = []string{}
			}
			return &deliveryv1.CompleteSprintResponse{Sprint: sprintToProto(sp), MovedToBacklog: moved}, mutation.Result{
				EntityIDs: []string{sp.ID},
				Metadata:  map[string]any{"moved_to_backlog": moved},
				Paths:     []string{revalidate.ProductPath(sp.OrgID, sp.ProductID)},
			}, nil
		},
	}
	return mutation.Run(ctx, s.pipeline, req.OrgID, op, req)
}

func (s *Server) ListSprints(ctx context.Context, req *deliveryv1.ListSprintsRequest) (*deliveryv1.ListSprintsResponse, error) {
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	list, err := s.repo.ListSprints(ctx, req.OrgID, req.ProductID)
	if err != nil {
		return nil, apperr.Storage("list sprints", err)
	}
	out := make([]*deliveryv1.Sprint, len(list))
	for i, sp := range list {
		out[i] = sprintToProto(sp)
	}
	return &deliveryv1.ListSprintsResponse{Sprints: out}, nil
}

// --- board ---

// GetBoard groups the product's live tasks, or one sprint's, into kanban columns.
func (s *Server) GetBoard(ctx context.Context, req *deliveryv1.GetBoardRequest) (*deliveryv1.GetBoardResponse, error) {
	var v apperr.Validator
	v.Check(req.ProductID != "", "product_id", "is required")
	if err := v.Err(); err != nil {
		return nil, err
	}
	if _, err := s.pipeline.Authorize(ctx, req.OrgID, membershipdomain.RoleStakeholder); err != nil {
		return nil, err
	}
	view := []string{"board"}
	if req.SprintID != "" {
		view = append(view, req.SprintID)
	}
	path := revalidate.ViewPath(req.OrgID, req.ProductID, view...)
	cols, err := revalidate.Load(ctx, s.cache, req.OrgID, path, func(ctx context.Context) ([]domain.Column, error) {
		tasks, err := s.repo.ListTasks(ctx, req.OrgID, domain.TaskFilter{ProductID: req.ProductID, SprintID: req.SprintID}, boardLimit, 0)
		if err != nil {
			return nil, err
		}
		return domain.Board(tasks), nil
	})
	if err != nil {
		return nil, apperr.Storage("board", err)
	}
	board := &deliveryv1.Board{ProductID: req.ProductID, SprintID: req.SprintID, Columns: make([]*deliveryv1.BoardColumn, len(cols))}
	for i, c := range cols {
		board.Columns[i] = &deliveryv1.BoardColumn{Status: string(c.Status), Tasks: tasksToProto(c.Tasks)}
	}
	return &deliveryv1.GetBoardResponse{Board: board}, nil
}

// checkRefs verifies that the task's epic and sprint belong to its product and that the assignee
// is a member of the organization.
func (s *Server) checkRefs(ctx context.Context, t *domain.Task) error {
	var v apperr.Validator
	if t.EpicID != "" {
		e, err := s.repo.GetEpic(ctx, t.OrgID, t.EpicID)
		if err != nil {
			return err
		}
		v.Check(e != nil && e.ProductID == t.ProductID, "epic_id", "must be an epic of the same product")
	}
	if t.SprintID != "" {
		sp, err := s.repo.GetSprint(ctx, t.OrgID, t.SprintID)
		if err != nil {
			return err
		}
		v.Check(sp != nil && sp.ProductID == t.ProductID, "sprint_id", "must be a sprint of the same product")
		v.Check(sp == nil || sp.Status != domain.SprintCompleted, "sprint_id", "must not be a completed sprint")
	}
	if t.AssigneeID != "" {
		m, err := s.members.GetMembershipByUserAndOrg(ctx, t.AssigneeID, t.OrgID)
		if err != nil {
			return err
		}
		v.Check(m != nil, "assignee_id", "must be a member of the organization")
	}
	return v.Err()
}

func (s *Server) loadTask(ctx context.Context, orgID, id string) (*domain.Task, error) {
	t, err := s.repo.GetTask(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("task", id)
	}
	return t, nil
}

func (s *Server) loadEpic(ctx context.Context, orgID, id string) (*domain.Epic, error) {
	e, err := s.repo.GetEpic(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperr.NotFound("epic", id)
	}
	return e, nil
}

func (s *Server) loadSprint(ctx context.Context, orgID, id string) (*domain.Sprint, error) {
	sp, err := s.repo.GetSprint(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, apperr.NotFound("sprint", id)
	}
	return sp, nil
}

func (s *Server) saveSprint(ctx context.Context, sp *domain.Sprint) error {
	if err := sp.Validate(); err != nil {
		return err
	}
	sp.UpdatedAt = s.pipeline.Now()
	_, err := s.repo.UpdateSprint(ctx, sp)
	return err
}

func respondTask(t *domain.Task, meta map[string]any) (*deliveryv1.TaskResponse, mutation.Result, error) {
	return &deliveryv1.TaskResponse{Task: taskToProto(t)}, mutation.Result{
		EntityIDs: []string{t.ID},
		Metadata:  meta,
		Paths:     []string{revalidate.ProductPath(t.OrgID, t.ProductID)},
	}, nil
}

func respondEpic(e *domain.Epic, meta map[string]any) (*deliveryv1.EpicResponse, mutation.Result, error) {
	return &deliveryv1.EpicResponse{Epic: epicToProto(e)}, mutation.Result{
		EntityIDs: []string{e.ID},
		Metadata:  meta,
		Paths:     []string{revalidate.ProductPath(e.OrgID, e.ProductID)},
	}, nil
}

func respondSprint(sp *domain.Sprint, meta map[string]any) (*deliveryv1.SprintResponse, mutation.Result, error) {
	return &deliveryv1.SprintResponse{Sprint: sprintToProto(sp)}, mutation.Result{
		EntityIDs: []string{sp.ID},
		Metadata:  meta,
		Paths:     []string{revalidate.ProductPath(sp.OrgID, sp.ProductID)},
	}, nil
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

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func taskToProto(t *domain.Task) *deliveryv1.Task {
	return &deliveryv1.Task{
		ID:          t.ID,
		OrgID:       t.OrgID,
		ProductID:   t.ProductID,
		EpicID:      t.EpicID,
		SprintID:    t.SprintID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		AssigneeID:  t.AssigneeID,
		StoryPoints: t.StoryPoints,
		DueOn:       t.DueOn,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func tasksToProto(list []*domain.Task) []*deliveryv1.Task {
	out := make([]*deliveryv1.Task, len(list))
	for i, t := range list {
		out[i] = taskToProto(t)
	}
	return out
}

func epicToProto(e *domain.Epic) *deliveryv1.Epic {
	return &deliveryv1.Epic{
		ID:          e.ID,
		OrgID:       e.OrgID,
		ProductID:   e.ProductID,
		Title:       e.Title,
		Description: e.Description,
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func sprintToProto(sp *domain.Sprint) *deliveryv1.Sprint {
	return &deliveryv1.Sprint{
		ID:        sp.ID,
		OrgID:     sp.OrgID,
		ProductID: sp.ProductID,
		Name:      sp.Name,
		Goal:      sp.Goal,
		StartsOn:  sp.StartsOn,
		EndsOn:    sp.EndsOn,
		Status:    string(sp.Status),
		CreatedAt: sp.CreatedAt,
		UpdatedAt: sp.UpdatedAt,
	}
}
