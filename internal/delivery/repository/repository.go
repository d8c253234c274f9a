package repository

import (
	"context"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/delivery/domain"
)

// Repository defines persistence for epics, sprints and tasks.
type Repository interface {
	GetEpic(ctx context.Context, orgID, id string) (*domain.Epic, error)
	ListEpics(ctx context.Context, orgID, productID string) ([]*domain.Epic, error)
	CreateEpic(ctx context.Context, e *domain.Epic) error
	UpdateEpic(ctx context.Context, e *domain.Epic) (bool, error)
	DeleteEpic(ctx context.Context, orgID, id string, at time.Time) (bool, error)

	GetSprint(ctx context.Context, orgID, id string) (*domain.Sprint, error)
	ListSprints(ctx context.Context, orgID, productID string) ([]*domain.Sprint, error)
	// ActiveSprint returns the product's ACTIVE sprint, or nil.
	ActiveSprint(ctx context.Context, orgID, productID string) (*domain.Sprint, error)
	CreateSprint(ctx context.Context, s *domain.Sprint) error
	UpdateSprint(ctx context.Context, s *domain.Sprint) (bool, error)
	DeleteSprint(ctx context.Context, orgID, id string, at time.Time) (bool, error)

	GetTask(ctx context.Context, orgID, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, orgID string, f domain.TaskFilter, limit, offset int32) ([]*domain.Task, error)
	CreateTask(ctx context.Context, t *domain.Task) error
	UpdateTask(ctx context.Context, t *domain.Task) (bool, error)
	DeleteTask(ctx context.Context, orgID, id string, at time.Time) (bool, error)
	// SetTaskStatus updates every live task of the product among ids in one statement and
	// returns the ids it changed.
	SetTaskStatus(ctx context.Context, orgID, productID string, ids []string, status domain.TaskStatus, at time.Time) ([]string, error)
	// MoveUnfinishedToBacklog detaches the sprint's tasks that are not DONE and resets them to
	// BACKLOG in one statement. It returns the ids it moved.
	MoveUnfinishedToBacklog(ctx context.Context, orgID, sprintID string, at time.Time) ([]string, error)
}
