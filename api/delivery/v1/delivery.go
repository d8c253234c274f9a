// Package deliveryv1 defines DeliveryService: tasks, epics, sprints and the kanban board.
package deliveryv1

import (
	"context"
	"time"

	"google.golang.org/grpc"

	commonv1 "github.com/foozio/prodmatic-sub002/api/common/v1"
	"github.com/foozio/prodmatic-sub002/api/rpc"
)

const ServiceName = "prodmatic.delivery.v1.DeliveryService"

type Task struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id"`
	ProductID   string     `json:"product_id"`
	EpicID      string     `json:"epic_id,omitempty"`
	SprintID    string     `json:"sprint_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	StoryPoints int        `json:"story_points"`
	DueOn       *time.Time `json:"due_on,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Epic struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	ProductID   string    `json:"product_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Sprint struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Goal      string    `json:"goal"`
	StartsOn  time.Time `json:"starts_on"`
	EndsOn    time.Time `json:"ends_on"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BoardColumn struct {
	Status string  `json:"status"`
	Tasks  []*Task `json:"tasks"`
}

type Board struct {
	ProductID string         `json:"product_id"`
	SprintID  string         `json:"sprint_id,omitempty"`
	Columns   []*BoardColumn `json:"columns"`
}

type CreateTaskRequest struct {
	OrgID       string     `json:"org_id"`
	ProductID   string     `json:"product_id"`
	EpicID      string     `json:"epic_id,omitempty"`
	SprintID    string     `json:"sprint_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	StoryPoints int        `json:"story_points,omitempty"`
	DueOn       *time.Time `json:"due_on,omitempty"`
}

// UpdateTaskRequest changes the fields that are set. An empty string clears epic_id, sprint_id
// and assignee_id; ClearDueOn clears due_on.
type UpdateTaskRequest struct {
	OrgID       string     `json:"org_id"`
	TaskID      string     `json:"task_id"`
	EpicID      *string    `json:"epic_id,omitempty"`
	SprintID    *string    `json:"sprint_id,omitempty"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	StoryPoints *int       `json:"story_points,omitempty"`
	DueOn       *time.Time `json:"due_on,omitempty"`
	ClearDueOn  bool       `json:"clear_due_on,omitempty"`
}

type DeleteTaskRequest struct {
	OrgID  string `json:"org_id"`
	TaskID string `json:"task_id"`
}

type GetTaskRequest struct {
	OrgID  string `json:"org_id"`
	TaskID string `json:"task_id"`
}

type ListTasksRequest struct {
	OrgID      string               `json:"org_id"`
	ProductID  string               `json:"product_id,omitempty"`
	SprintID   string               `json:"sprint_id,omitempty"`
	EpicID     string               `json:"epic_id,omitempty"`
	AssigneeID string               `json:"assignee_id,omitempty"`
	Status     string               `json:"status,omitempty"`
	Pagination *commonv1.Pagination `json:"pagination,omitempty"`
}

type BulkUpdateTaskStatusRequest struct {
	OrgID     string   `json:"org_id"`
	ProductID string   `json:"product_id"`
	TaskIDs   []string `json:"task_ids"`
	Status    string   `json:"status"`
}

type CreateEpicRequest struct {
	OrgID       string `json:"org_id"`
	ProductID   string `json:"product_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type UpdateEpicRequest struct {
	OrgID       string  `json:"org_id"`
	EpicID      string  `json:"epic_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type DeleteEpicRequest struct {
	OrgID  string `json:"org_id"`
	EpicID string `json:"epic_id"`
}

type ListEpicsRequest struct {
	OrgID     string `json:"org_id"`
	ProductID string `json:"product_id"`
}

type CreateSprintRequest struct {
	OrgID     string    `json:"org_id"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Goal      string    `json:"goal,omitempty"`
	StartsOn  time.Time `json:"starts_on"`
	EndsOn    time.Time `json:"ends_on"`
}

type UpdateSprintRequest struct {
	OrgID    string     `json:"org_id"`
	SprintID string     `json:"sprint_id"`
	Name     *string    `json:"name,omitempty"`
	Goal     *string    `json:"goal,omitempty"`
	StartsOn *time.Time `json:"starts_on,omitempty"`
	EndsOn   *time.Time `json:"ends_on,omitempty"`
}

// SprintRequest targets one sprint: delete, start and complete.
type SprintRequest struct {
	OrgID    string `json:"org_id"`
	SprintID string `json:"sprint_id"`
}

type ListSprintsRequest struct {
	OrgID     string `json:"org_id"`
	ProductID string `json:"product_id"`
}

type GetBoardRequest struct {
	OrgID     string `json:"org_id"`
	ProductID string `json:"product_id"`
	SprintID  string `json:"sprint_id,omitempty"`
}

type TaskResponse struct {
	Task *Task `json:"task"`
}

type ListTasksResponse struct {
	Tasks      []*Task                    `json:"tasks"`
	Pagination *commonv1.PaginationResult `json:"pagination,omitempty"`
}

type BulkUpdateTaskStatusResponse struct {
	Affected int64    `json:"affected"`
	TaskIDs  []string `json:"task_ids"`
}

type EpicResponse struct {
	Epic *Epic `json:"epic"`
}

type ListEpicsResponse struct {
	Epics []*Epic `json:"epics"`
}

type SprintResponse struct {
	Sprint *Sprint `json:"sprint"`
}

type CompleteSprintResponse struct {
	Sprint         *Sprint  `json:"sprint"`
	MovedToBacklog []string `json:"moved_to_backlog"`
}

type ListSprintsResponse struct {
	Sprints []*Sprint `json:"sprints"`
}

type GetBoardResponse struct {
	Board *Board `json:"board"`
}

type DeliveryServiceServer interface {
	CreateTask(context.Context, *CreateTaskRequest) (*TaskResponse, error)
	UpdateTask(context.Context, *UpdateTaskRequest) (*TaskResponse, error)
	DeleteTask(context.Context, *DeleteTaskRequest) (*commonv1.Empty, error)
	GetTask(context.Context, *GetTaskRequest) (*TaskResponse, error)
	ListTasks(context.Context, *ListTasksRequest) (*ListTasksResponse, error)
	BulkUpdateTaskStatus(context.Context, *BulkUpdateTaskStatusRequest) (*BulkUpdateTaskStatusResponse, error)

	CreateEpic(context.Context, *CreateEpicRequest) (*EpicResponse, error)
	UpdateEpic(context.Context, *UpdateEpicRequest) (*EpicResponse, error)
	DeleteEpic(context.Context, *DeleteEpicRequest) (*commonv1.Empty, error)
	ListEpics(context.Context, *ListEpicsRequest) (*ListEpicsResponse, error)

	CreateSprint(context.Context, *CreateSprintRequest) (*SprintResponse, error)
	UpdateSprint(context.Context, *UpdateSprintRequest) (*SprintResponse, error)
	DeleteSprint(context.Context, *SprintRequest) (*commonv1.Empty, error)
	StartSprint(context.Context, *SprintRequest) (*SprintResponse, error)
	CompleteSprint(context.Context, *SprintRequest) (*CompleteSprintResponse, error)
	ListSprints(context.Context, *ListSprintsRequest) (*ListSprintsResponse, error)

	GetBoard(context.Context, *GetBoardRequest) (*GetBoardResponse, error)
}

var DeliveryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DeliveryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "CreateTask", DeliveryServiceServer.CreateTask),
		rpc.Unary(ServiceName, "UpdateTask", DeliveryServiceServer.UpdateTask),
		rpc.Unary(ServiceName, "DeleteTask", DeliveryServiceServer.DeleteTask),
		rpc.Unary(ServiceName, "GetTask", DeliveryServiceServer.GetTask),
		rpc.Unary(ServiceName, "ListTasks", DeliveryServiceServer.ListTasks),
		rpc.Unary(ServiceName, "BulkUpdateTaskStatus", DeliveryServiceServer.BulkUpdateTaskStatus),
		rpc.Unary(ServiceName, "CreateEpic", DeliveryServiceServer.CreateEpic),
		rpc.Unary(ServiceName, "UpdateEpic", DeliveryServiceServer.UpdateEpic),
		rpc.Unary(ServiceName, "DeleteEpic", DeliveryServiceServer.DeleteEpic),
		rpc.Unary(ServiceName, "ListEpics", DeliveryServiceServer.ListEpics),
		rpc.Unary(ServiceName, "CreateSprint", DeliveryServiceServer.CreateSprint),
		rpc.Unary(ServiceName, "UpdateSprint", DeliveryServiceServer.UpdateSprint),
		rpc.Unary(ServiceName, "DeleteSprint", DeliveryServiceServer.DeleteSprint),
		rpc.Unary(ServiceName, "StartSprint", DeliveryServiceServer.StartSprint),
		rpc.Unary(ServiceName, "CompleteSprint", DeliveryServiceServer.CompleteSprint),
		rpc.Unary(ServiceName, "ListSprints", DeliveryServiceServer.ListSprints),
		rpc.Unary(ServiceName, "GetBoard", DeliveryServiceServer.GetBoard),
	},
	Metadata: "prodmatic/delivery/v1/delivery.proto",
}

func RegisterDeliveryServiceServer(s grpc.ServiceRegistrar, srv DeliveryServiceServer) {
	s.RegisterService(&DeliveryService_ServiceDesc, srv)
}
