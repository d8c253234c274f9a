package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/db"
	"github.com/foozio/prodmatic-sub002/internal/session/domain"
)

const sessionCols = `id, user_id, expires_at, revoked_at, last_seen_at, ip_address, refresh_jti, refresh_token_hash, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+sessionCols+` FROM sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// ListActiveByUser returns the user's sessions that are neither revoked nor expired, newest first.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2 ORDER BY created_at DESC`,
		userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO sessions (`+sessionCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, s.ExpiresAt, db.NullTime(s.RevokedAt), db.NullTime(s.LastSeenAt),
		s.IPAddress, s.RefreshJti, s.RefreshTokenHash, s.CreatedAt)
	return err
}

// Revoke marks the session as revoked. Already revoked sessions keep their original timestamp.
func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL`, id, at)
	return err
}

// RevokeAllByUser revokes every live session of the user.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string, at time.Time) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`, userID, at)
	return err
}

// UpdateLastSeen sets the session's last-seen timestamp.
func (r *PostgresRepository) UpdateLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = $2 WHERE id = $1`, id, at)
	return err
}

// UpdateRefreshToken rotates the refresh token with a compare-and-swap on the current jti.
func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, sessionID, prevJti, jti, refreshTokenHash string) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE sessions SET refresh_jti = $3, refresh_token_hash = $4
		 WHERE id = $1 AND refresh_jti = $2 AND revoked_at IS NULL`,
		sessionID, prevJti, jti, refreshTokenHash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*domain.Session, error) {
	var (
		s                   domain.Session
		revokedAt, lastSeen sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.ExpiresAt, &revokedAt, &lastSeen,
		&s.IPAddress, &s.RefreshJti, &s.RefreshTokenHash, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.RevokedAt = db.TimePtr(revokedAt)
	s.LastSeenAt = db.TimePtr(lastSeen)
	return &s, nil
}
