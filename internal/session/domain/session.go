package domain

import "time"

// Session is one login of a user. Access tokens carry its id; refresh tokens rotate within it.
// Sessions are user-scoped: the organization is chosen per request.
type Session struct {
	ID               string
	UserID           string
	ExpiresAt        time.Time
	RevokedAt        *time.Time // nil when not revoked
	LastSeenAt       *time.Time
	IPAddress        string
	RefreshJti       string // current refresh token jti; empty before the first issue
	RefreshTokenHash string // SHA-256 hash of the current refresh token
	CreatedAt        time.Time
}

// Active reports whether the session is neither revoked nor expired at now.
func (s *Session) Active(now time.Time) bool {
	return s != nil && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
