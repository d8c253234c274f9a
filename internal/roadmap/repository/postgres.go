package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/roadmap/domain"
)

const (
	itemCols    = `id, org_id, product_id, idea_id, title, description, lane, status, starts_on, ends_on, created_at, updated_at`
	releaseCols = `id, org_id, product_id, version, name, status, target_on, released_at, created_at, updated_at`
	entryCols   = `id, org_id, product_id, release_id, title, body, kind, published_at, created_at, updated_at`
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

func (r *PostgresRepository) GetItem(ctx context.Context, orgID, id string) (*domain.Item, error) {
	q, args := db.SelectPage(itemCols, "roadmap_items", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), scanItem)
}

func (r *PostgresRepository) ListItems(ctx context.Context, orgID, productID string) ([]*domain.Item, error) {
	q, args := db.SelectPage(itemCols, "roadmap_items", db.Live(orgID).And("product_id = ?", productID), "created_at, id", 0, 0)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	return db.Collect(rows, err, scanItem)
}

func (r *PostgresRepository) CreateItem(ctx context.Context, i *domain.Item) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO roadmap_items (`+itemCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		i.ID, i.OrgID, i.ProductID, db.NullString(i.IdeaID), i.Title, i.Description, string(i.Lane), string(i.Status),
		db.NullTime(i.StartsOn), db.NullTime(i.EndsOn), i.CreatedAt, i.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdateItem(ctx context.Context, i *domain.Item) (bool, error) {
	return db.Affected(db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE roadmap_items SET idea_id = $3, title = $4, description = $5, lane = $6, status = $7,
			starts_on = $8, ends_on = $9, updated_at = $10
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		i.ID, i.OrgID, db.NullString(i.IdeaID), i.Title, i.Description, string(i.Lane), string(i.Status),
		db.NullTime(i.StartsOn), db.NullTime(i.EndsOn), i.UpdatedAt))
}

func (r *PostgresRepository) DeleteItem(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	return db.SoftDelete(ctx, db.Conn(ctx, r.db), "roadmap_items", orgID, id, at)
}

func (r *PostgresRepository) GetRelease(ctx context.Context, orgID, id string) (*domain.Release, error) {
	q, args := db.SelectPage(releaseCols, "releases", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), scanRelease)
}

// ListReleases returns releases ordered by version, newest first.
func (r *PostgresRepository) ListReleases(ctx context.Context, orgID, productID string) ([]*domain.Release, error) {
	q, args := db.SelectPage(releaseCols, "releases", db.Live(orgID).And("product_id = ?", productID), "", 0, 0)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	list, err := db.Collect(rows, err, scanRelease)
	if err != nil {
		return nil, err
	}
	domain.SortReleases(list)
	return list, nil
}

func (r *PostgresRepository) CreateRelease(ctx context.Context, rel *domain.Release) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO releases (`+releaseCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rel.ID, rel.OrgID, rel.ProductID, rel.Version, rel.Name, string(rel.Status),
		db.NullTime(rel.TargetOn), db.NullTime(rel.ReleasedAt), rel.CreatedAt, rel.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdateRelease(ctx context.Context, rel *domain.Release) (bool, error) {
	return db.Affected(db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE releases SET version = $3, name = $4, status = $5, target_on = $6, released_at = $7, updated_at = $8
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		rel.ID, rel.OrgID, rel.Version, rel.Name, string(rel.Status),
		db.NullTime(rel.TargetOn), db.NullTime(rel.ReleasedAt), rel.UpdatedAt))
}

// DeleteRelease soft-deletes the release and detaches its changelog entries.
func (r *PostgresRepository) DeleteRelease(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	q := db.Conn(ctx, r.db)
	ok, err := db.SoftDelete(ctx, q, "releases", orgID, id, at)
	if err != nil || !ok {
		return ok, err
	}
	_, err = q.ExecContext(ctx,
		`UPDATE changelog_entries SET release_id = NULL, updated_at = $3
		 WHERE org_id = $1 AND release_id = $2 AND deleted_at IS NULL`, orgID, id, at)
	return true, err
}

func (r *PostgresRepository) GetEntry(ctx context.Context, orgID, id string) (*domain.ChangelogEntry, error) {
	q, args := db.SelectPage(entryCols, "changelog_entries", db.Live(orgID).And("id = ?", id), "", 0, 0)
	return db.One(db.Conn(ctx, r.db).QueryRowContext(ctx, q, args...), scanEntry)
}

func (r *PostgresRepository) ListEntries(ctx context.Context, orgID, productID string, publishedOnly bool) ([]*domain.ChangelogEntry, error) {
	w := db.Live(orgID).And("product_id = ?", productID)
	if publishedOnly {
		w = w.And("published_at IS NOT NULL")
	}
	q, args := db.SelectPage(entryCols, "changelog_entries", w, "COALESCE(published_at, created_at) DESC, id", 0, 0)
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, q, args...)
	return db.Collect(rows, err, scanEntry)
}

func (r *PostgresRepository) CreateEntry(ctx context.Context, c *domain.ChangelogEntry) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO changelog_entries (`+entryCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.OrgID, c.ProductID, db.NullString(c.ReleaseID), c.Title, c.Body, string(c.Kind),
		db.NullTime(c.PublishedAt), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdateEntry(ctx context.Context, c *domain.ChangelogEntry) (bool, error) {
	return db.Affected(db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE changelog_entries SET release_id = $3, title = $4, body = $5, kind = $6, published_at = $7, updated_at = $8
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		c.ID, c.OrgID, db.NullString(c.ReleaseID), c.Title, c.Body, string(c.Kind), db.NullTime(c.PublishedAt), c.UpdatedAt))
}

func (r *PostgresRepository) DeleteEntry(ctx context.Context, orgID, id string, at time.Time) (bool, error) {
	return db.SoftDelete(ctx, db.Conn(ctx, r.db), "changelog_entries", orgID, id, at)
}

func scanItem(row db.Scanner) (*domain.Item, error) {
	var (
		i            domain.Item
		idea         sql.NullString
		starts, ends sql.NullTime
	)
	if err := row.Scan(&i.ID, &i.OrgID, &i.ProductID, &idea, &i.Title, &i.Description, &i.Lane, &i.Status,
		&starts, &ends, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	i.IdeaID, i.StartsOn, i.EndsOn = idea.String, db.TimePtr(starts), db.TimePtr(ends)
	return &i, nil
}

func scanRelease(row db.Scanner) (*domain.Release, error) {
	var (
		rel              domain.Release
		target, released sql.NullTime
	)
	if err := row.Scan(&rel.ID, &rel.OrgID, &rel.ProductID, &rel.Version, &rel.Name, &rel.Status,
		&target, &released, &rel.CreatedAt, &rel.UpdatedAt); err != nil {
		return nil, err
	}
	rel.TargetOn, rel.ReleasedAt = db.TimePtr(target), db.TimePtr(released)
	return &rel, nil
}

func scanEntry(row db.Scanner) (*domain.ChangelogEntry, error) {
	var (
		c         domain.ChangelogEntry
		release   sql.NullString
		published sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.OrgID, &c.ProductID, &release, &c.Title, &c.Body, &c.Kind,
		&published, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ReleaseID, c.PublishedAt = release.String, db.TimePtr(published)
	return &c, nil
}
