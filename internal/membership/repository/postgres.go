package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/membership/domain"
)

const (
	membershipCols = `id, user_id, org_id, role, created_at, updated_at`
	invitationCols = `id, org_id, email, role, token_hash, invited_by, expires_at, accepted_at, accepted_by, created_at, updated_at`
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetMembershipByID returns the membership for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error) {
	return r.getMembership(ctx, `SELECT `+membershipCols+` FROM memberships WHERE id = $1`, id)
}

// GetMembershipByUserAndOrg returns the membership for the given user and org, or nil if not found.
// Memberships of soft-deleted organizations are not returned.
func (r *PostgresRepository) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	return r.getMembership(ctx,
		`SELECT m.id, m.user_id, m.org_id, m.role, m.created_at, m.updated_at
		 FROM memberships m JOIN organizations o ON o.id = m.org_id
		 WHERE m.user_id = $1 AND m.org_id = $2 AND o.deleted_at IS NULL`, userID, orgID)
}

// ListMembershipsByUser returns every membership of the user in live organizations.
func (r *PostgresRepository) ListMembershipsByUser(ctx context.Context, userID string) ([]*domain.Membership, error) {
	return r.listMemberships(ctx,
		`SELECT m.id, m.user_id, m.org_id, m.role, m.created_at, m.updated_at
		 FROM memberships m JOIN organizations o ON o.id = m.org_id
		 WHERE m.user_id = $1 AND o.deleted_at IS NULL ORDER BY m.created_at`, userID)
}

// ListMembershipsByOrg returns a page of the org's memberships, oldest first.
func (r *PostgresRepository) ListMembershipsByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*domain.Membership, error) {
	return r.listMemberships(ctx,
		`SELECT `+membershipCols+` FROM memberships WHERE org_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		orgID, limit, offset)
}

// CreateMembership persists m. A second membership for the same user and org violates the
// unique constraint.
func (r *PostgresRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO memberships (`+membershipCols+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.UserID, m.OrgID, string(m.Role), m.CreatedAt, m.UpdatedAt)
	return err
}

// DeleteByUserAndOrg removes the membership.
func (r *PostgresRepository) DeleteByUserAndOrg(ctx context.Context, userID, orgID string) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM memberships WHERE user_id = $1 AND org_id = $2`, userID, orgID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdateRole sets the role and returns the updated membership, or nil when none exists.
func (r *PostgresRepository) UpdateRole(ctx context.Context, userID, orgID string, role domain.Role, at time.Time) (*domain.Membership, error) {
	return r.getMembership(ctx,
		`UPDATE memberships SET role = $3, updated_at = $4 WHERE user_id = $1 AND org_id = $2 RETURNING `+membershipCols,
		userID, orgID, string(role), at)
}

// CountAdminsForUpdate locks the org's admin rows so concurrent demotions serialize.
func (r *PostgresRepository) CountAdminsForUpdate(ctx context.Context, orgID string) (int64, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT id FROM memberships WHERE org_id = $1 AND role = 'ADMIN' FOR UPDATE`, orgID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var n int64
	for rows.Next() {
		n++
	}
	return n, rows.Err()
}

// CreateInvitation persists inv.
func (r *PostgresRepository) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO invitations (`+invitationCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		inv.ID, inv.OrgID, inv.Email, string(inv.Role), inv.TokenHash, inv.InvitedBy, inv.ExpiresAt,
		db.NullTime(inv.AcceptedAt), db.NullString(inv.AcceptedBy), inv.CreatedAt, inv.UpdatedAt)
	return err
}

// GetInvitationByTokenHash returns the live invitation with tokenHash, or nil.
func (r *PostgresRepository) GetInvitationByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+invitationCols+` FROM invitations WHERE token_hash = $1 AND deleted_at IS NULL`, tokenHash)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

// MarkInvitationAccepted stamps the invitation once; it reports false when it was already accepted.
func (r *PostgresRepository) MarkInvitationAccepted(ctx context.Context, id, userID string, at time.Time) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE invitations SET accepted_at = $3, accepted_by = $2, updated_at = $3 WHERE id = $1 AND accepted_at IS NULL`,
		id, userID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ListPendingInvitations returns unaccepted, unexpired invitations of the org.
func (r *PostgresRepository) ListPendingInvitations(ctx context.Context, orgID string, now time.Time) ([]*domain.Invitation, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+invitationCols+` FROM invitations
		 WHERE org_id = $1 AND deleted_at IS NULL AND accepted_at IS NULL AND expires_at > $2
		 ORDER BY created_at DESC`, orgID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) getMembership(ctx context.Context, query string, args ...any) (*domain.Membership, error) {
	m, err := scanMembership(db.Conn(ctx, r.db).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *PostgresRepository) listMemberships(ctx context.Context, query string, args ...any) ([]*domain.Membership, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMembership(row scanner) (*domain.Membership, error) {
	var (
		m    domain.Membership
		role string
	)
	if err := row.Scan(&m.ID, &m.UserID, &m.OrgID, &role, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	return &m, nil
}

func scanInvitation(row scanner) (*domain.Invitation, error) {
	var (
		inv        domain.Invitation
		role       string
		acceptedAt sql.NullTime
		acceptedBy sql.NullString
	)
	if err := row.Scan(&inv.ID, &inv.OrgID, &inv.Email, &role, &inv.TokenHash, &inv.InvitedBy, &inv.ExpiresAt,
		&acceptedAt, &acceptedBy, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	inv.Role = domain.Role(role)
	inv.AcceptedAt = db.TimePtr(acceptedAt)
	inv.AcceptedBy = acceptedBy.String
	return &inv, nil
}
