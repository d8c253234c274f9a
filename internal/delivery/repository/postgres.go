package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/delivery/domain"
)

const (
	epicCols   = `id, org_id, product_id, title, description, status, created_at, updated_at`
	sprintCols = `id, org_id, product_id, name, goal, starts_on, ends_on, status, created_at, updated_at`
	taskCols   = `id, org_id, product_id, epic_id, sprint_id, title, description, status, priority,
		assignee_id, story_points, due_on, created_by, created_at, updated_at`
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) GetEpic(ctx context.Context, orgID, id string) (*domain.Epic, error) {
	q, args := db.SelectPage(epicCols, "epics", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), scanEpic)
}

func (r *PostgresRepository) ListEpics(ctx context.Context, orgID, productID string) ([]*domain.Epic, error) {
	q, args := db.SelectPage(epicCols, "epics", db.Live(orgID).And("product_id = ?", productID), "created_at, id", 0, 0)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	return db.Collect(rows, err, scanEpic)
}

func (r *PostgresRepository) CreateEpic(ctx context.Context, e *domain.Epic) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO epics (`+epicCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.OrgID, e.ProductID, e.Title, e.Description, string(e.Status), e.CreatedAt, e.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdateEpic(ctx context.Context, e *domain.Epic) (bool, error) {
	return db.Affected(db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE epics SET title = $3, description = $4, status = $5, updated_at = $6
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		e.ID, e.OrgID, e.Title, e.Description, string(e.Status), e.UpdatedAt))
}

// DeleteEpic soft-deletes the epic and detaches its tasks.
func (r *PostgresRepository) DeleteEpic(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	q := db.Conn(ctx, r.db)
	ok, err := db.SoftDelete(ctx, q, "epics", orgID, id, at)
	if err != nil || !ok {
		return ok, err
	}
	_, err = q.ExecContext(ctx,
		`UPDATE tasks SET epic_id = NULL, updated_at = $3 WHERE org_id = $1 AND epic_id = $2 AND deleted_at IS NULL`, orgID, id, at)
	return true, err
}

func (r *PostgresRepository) GetSprint(ctx context.Context, orgID, id string) (*domain.Sprint, error) {
	q, args := db.SelectPage(sprintCols, "sprints", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), scanSprint)
}

func (r *PostgresRepository) ListSprints(ctx context.Context, orgID, productID string) ([]*domain.Sprint, error) {
	q, args := db.SelectPage(sprintCols, "sprints", db.Live(orgID).And("product_id = ?", productID), "starts_on, id", 0, 0)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	return db.Collect(rows, err, scanSprint)
}

func (r *PostgresRepository) ActiveSprint(ctx context.Context, orgID, productID string) (*domain.Sprint, error) {
	w := db.Live(orgID).And("product_id = ?", productID).And("status = ?", string(domain.SprintActive))
	q, args := db.SelectPage(sprintCols, "sprints", w, "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q+" FOR UPDATE", args...), scanSprint)
}

func (r *PostgresRepository) CreateSprint(ctx context.Context, s *domain.Sprint) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO sprints (`+sprintCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.OrgID, s.ProductID, s.Name, s.Goal, s.StartsOn, s.EndsOn, string(s.Status), s.CreatedAt, s.UpdatedAt)
	return err
}

// UpdateSprint writes every mutable column. A second ACTIVE sprint for the product violates
// sprints_one_active.
func (r *PostgresRepository) UpdateSprint(ctx context.Context, s *domain.Sprint) (bool, error) {
	return db.Affected(db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE sprints SET name = $3, goal = $4, starts_on = $5, ends_on = $6, status = $7, updated_at = $8
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		s.ID, s.OrgID, s.Name, s.Goal, s.StartsOn, s.EndsOn, string(s.Status), s.UpdatedAt))
}

// DeleteSprint soft-deletes the sprint and returns its tasks to the backlog.
func (r *PostgresRepository) DeleteSprint(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	q := db.Conn(ctx, r.db)
	ok, err := db.SoftDelete(ctx, q, "sprints", orgID, id, at)
	if err != nil || !ok {
		return ok, err
	}
	_, err = q.ExecContext(ctx,
		`UPDATE tasks SET sprint_id = NULL, updated_at = $3 WHERE org_id = $1 AND sprint_id = $2 AND deleted_at IS NULL`, orgID, id, at)
	return true, err
}

func (r *PostgresRepository) GetTask(ctx context.Context, orgID, id string) (*domain.Task, error) {
	q, args := db.SelectPage(taskCols, "tasks", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), scanTask)
}

func (r *PostgresRepository) ListTasks(ctx context.Context, orgID string, f domain.TaskFilter, limit, offset int32) ([]*domain.Task, error) {
	w := db.Live(orgID).
		AndIf(f.ProductID != "", "product_id = ?", f.ProductID).
		AndIf(f.SprintID != "", "sprint_id = ?", f.SprintID).
		AndIf(f.EpicID != "", "epic_id = ?", f.EpicID).
		AndIf(f.AssigneeID != "", "assignee_id = ?", f.AssigneeID).
		AndIf(f.Status != "", "status = ?", string(f.Status))
	q, args := db.SelectPage(taskCols, "tasks", w, "created_at, id", limit, offset)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	return db.Collect(rows, err, scanTask)
}

func (r *PostgresRepository) CreateTask(ctx context.Context, t *domain.Task) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO tasks (`+taskCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		t.ID, t.OrgID, t.ProductID, db.NullString(t.EpicID), db.NullString(t.SprintID), t.Title, t.Description,
		string(t.Status), string(t.Priority), db.NullString(t.AssigneeID), t.StoryPoints, db.NullTime(t.DueOn),
		t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdateTask(ctx context.Context, t *domain.Task) (bool, error) {
	return db.Affected(db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE tasks SET epic_id = $3, sprint_id = $4, title = $5, description = $6, status = $7, priority = $8,
			assignee_id = $9, story_points = $10, due_on = $11, updated_at = $12
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		t.ID, t.OrgID, db.NullString(t.EpicID), db.NullString(t.SprintID), t.Title, t.Description,
		string(t.Status), string(t.Priority), db.NullString(t.AssigneeID), t.StoryPoints, db.NullTime(t.DueOn), t.UpdatedAt))
}

func (r *PostgresRepository) DeleteTask(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	return db.SoftDelete(ctx, db.Conn(ctx, r.db), "tasks", orgID, id, at)
}

func (r *PostgresRepository) SetTaskStatus(ctx context.Context, orgID, productID string, ids []string, status domain.TaskStatus, at time.Time) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return returningIDs(db.Conn(ctx, r.db).QueryContext(ctx,
		`UPDATE tasks SET status = $1, updated_at = $2
		 WHERE org_id = $3 AND product_id = $4 AND id = ANY($5) AND deleted_at IS NULL RETURNING id`,
		string(status), at, orgID, productID, ids))
}

func (r *PostgresRepository) MoveUnfinishedToBacklog(ctx context.Context, orgID, sprintID string, at time.Time) ([]string, error) {
	return returningIDs(db.Conn(ctx, r.db).QueryContext(ctx,
		`UPDATE tasks SET sprint_id = NULL, status = $1, updated_at = $2
		 WHERE org_id = $3 AND sprint_id = $4 AND status <> $5 AND deleted_at IS NULL RETURNING id`,
		string(domain.TaskBacklog), at, orgID, sprintID, string(domain.TaskDone)))
}

func returningIDs(rows *sql.Rows, err error) ([]string, error) {
	ids, err := db.Collect(rows, err, func(row db.Scanner) (*string, error) {
		var id string
		return &id, row.Scan(&id)
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = *id
	}
	return out, nil
}

func scanEpic(row db.Scanner) (*domain.Epic, error) {
	var e domain.Epic
	if err := row.Scan(&e.ID, &e.OrgID, &e.ProductID, &e.Title, &e.Description, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanSprint(row db.Scanner) (*domain.Sprint, error) {
	var s domain.Sprint
	if err := row.Scan(&s.ID, &s.OrgID, &s.ProductID, &s.Name, &s.Goal, &s.StartsOn, &s.EndsOn, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanTask(row db.Scanner) (*domain.Task, error) {
	var (
		t                      domain.Task
		epic, sprint, assignee sql.NullString
		due                    sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.OrgID, &t.ProductID, &epic, &sprint, &t.Title, &t.Description, &t.Status, &t.Priority,
		&assignee, &t.StoryPoints, &due, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.EpicID, t.SprintID, t.AssigneeID = epic.String, sprint.String, assignee.String
	t.DueOn = db.TimePtr(due)
	return &t, nil
}
