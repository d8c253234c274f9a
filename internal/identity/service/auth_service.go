package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	auditdomain "github.com/foozio/prodmatic-sub002/internal/audit/domain"
	identitydomain "github.com/foozio/prodmatic-sub002/internal/identity/domain"
	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
	"github.com/foozio/prodmatic-sub002/internal/security"
	"github.com/foozio/prodmatic-sub002/internal/server/interceptors"
	sessiondomain "github.com/foozio/prodmatic-sub002/internal/session/domain"
	userdomain "github.com/foozio/prodmatic-sub002/internal/user/domain"
)

// Sentinel errors for auth service; handler maps them to gRPC codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidRefreshToken    = errors.New("invalid or expired refresh token")
	ErrRefreshTokenReuse      = errors.New("refresh token reuse detected; all sessions revoked")
	ErrOIDCDisabled           = errors.New("oidc login is not configured")
)

// AuthResult holds the tokens issued for one session.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
	SessionID    string
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// IdentityRepo is the minimal identity repository needed by the auth service.
type IdentityRepo interface {
	GetByUserAndProvider(ctx context.Context, userID string, provider identitydomain.IdentityProvider) (*identitydomain.Identity, error)
	GetByProviderID(ctx context.Context, provider identitydomain.IdentityProvider, providerID string) (*identitydomain.Identity, error)
	Create(ctx context.Context, i *identitydomain.Identity) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	Create(ctx context.Context, s *sessiondomain.Session) error
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllByUser(ctx context.Context, userID string, at time.Time) error
	UpdateRefreshToken(ctx context.Context, sessionID, prevJti, jti, refreshTokenHash string) (bool, error)
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
}

// TxRunner runs fn in one transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditRecorder appends an audit entry through the transaction carried by ctx.
type AuditRecorder interface {
	Record(ctx context.Context, e auditdomain.Entry) (*auditdomain.Entry, error)
}

// EventLogger records sign-in activity. Failures never fail the call.
type EventLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, entityType, entityID string, metadata map[string]any)
}

// Deps are the collaborators of an AuthService. OIDC, Recorder and Audit are optional.
// Recorder audits user creation inside the creating transaction; Audit logs sign-in activity.
type Deps struct {
	Users      UserRepo
	Identities IdentityRepo
	Sessions   SessionRepo
	Tx         TxRunner
	Hasher     *security.Hasher
	Tokens     *security.TokenProvider
	RefreshTTL time.Duration
	OIDC       IDTokenVerifier
	Recorder   AuditRecorder
	Audit      EventLogger
	Log        *zap.Logger
}

// AuthService implements password and OIDC sign-in, refresh-token rotation and logout.
type AuthService struct {
	Deps
	now func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(deps Deps) *AuthService {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &AuthService{Deps: deps, now: time.Now}
}

// Register creates a user with a local identity and signs them in.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = userdomain.NormalizeEmail(email)
	now := s.now().UTC()
	user := &userdomain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		Status:    userdomain.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateRegistration(user, password); err != nil {
		return nil, err
	}
	hashed, err := s.Hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	var result *AuthResult
	err = s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := s.Users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailAlreadyRegistered
		}
		if err := s.Users.Create(ctx, user); err != nil {
			return err
		}
		if err := s.Identities.Create(ctx, &identitydomain.Identity{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			Provider:     identitydomain.IdentityProviderLocal,
			ProviderID:   email,
			PasswordHash: hashed,
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		if err := s.recordRegister(ctx, user.ID, identitydomain.IdentityProviderLocal); err != nil {
			return err
		}
		result, err = s.startSession(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Login authenticates with email and password and starts a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = userdomain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, ErrInvalidCredentials
	}
	ident, err := s.Identities.GetByUserAndProvider(ctx, user.ID, identitydomain.IdentityProviderLocal)
	if err != nil {
		return nil, err
	}
	if ident == nil || ident.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.Hasher.Compare(ident.PasswordHash, []byte(password)); err != nil {
		s.logEvent(ctx, user.ID, "login_failed", "user", user.ID, map[string]any{"provider": string(identitydomain.IdentityProviderLocal)})
		return nil, ErrInvalidCredentials
	}
	result, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.ID, "login", "session", result.SessionID, map[string]any{"provider": string(identitydomain.IdentityProviderLocal)})
	return result, nil
}

// Refresh validates the refresh token, rotates it and returns new tokens. Presenting a token
// that was already rotated revokes every session of the user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	claims, err := s.Tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	now := s.now().UTC()
	sess, err := s.Sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.UserID != claims.Subject || !sess.Active(now) {
		return nil, ErrInvalidRefreshToken
	}
	if sess.RefreshJti != claims.ID {
		return nil, s.reuseDetected(ctx, sess, now)
	}
	if sess.RefreshTokenHash != "" && !security.SecretMatches(refreshToken, sess.RefreshTokenHash) {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.Users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, ErrInvalidRefreshToken
	}

	next, err := s.Tokens.IssueRefresh(sess.ID, sess.UserID)
	if err != nil {
		return nil, err
	}
	swapped, err := s.Sessions.UpdateRefreshToken(ctx, sess.ID, claims.ID, next.JTI, security.HashSecret(next.Token))
	if err != nil {
		return nil, err
	}
	if !swapped {
		// Another request rotated the same token first.
		return nil, s.reuseDetected(ctx, sess, now)
	}
	if err := s.Sessions.UpdateLastSeen(ctx, sess.ID, now); err != nil {
		s.Log.Warn("auth: failed to update session last seen", zap.String("session_id", sess.ID), zap.Error(err))
	}
	access, err := s.Tokens.IssueAccess(sess.ID, sess.UserID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  access.Token,
		RefreshToken: next.Token,
		ExpiresAt:    access.ExpiresAt,
		UserID:       sess.UserID,
		SessionID:    sess.ID,
	}, nil
}

func (s *AuthService) reuseDetected(ctx context.Context, sess *sessiondomain.Session, now time.Time) error {
	if err := s.Sessions.RevokeAllByUser(ctx, sess.UserID, now); err != nil {
		return err
	}
	s.Log.Warn("auth: refresh token reuse, revoked all sessions",
		zap.String("user_id", sess.UserID), zap.String("session_id", sess.ID))
	s.logEvent(ctx, sess.UserID, "refresh_reuse", "session", sess.ID, nil)
	return ErrRefreshTokenReuse
}

// Logout revokes the session identified by the refresh token or, without one, the session of
// the access token in context. Unknown tokens are a no-op.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	var sessionID, userID string
	if refreshToken != "" {
		claims, err := s.Tokens.ValidateRefresh(refreshToken)
		if err != nil {
			return nil
		}
		sessionID, userID = claims.SessionID, claims.Subject
	} else {
		var ok bool
		if sessionID, ok = interceptors.GetSessionID(ctx); !ok {
			return nil
		}
		userID, _ = interceptors.GetUserID(ctx)
	}
	if err := s.Sessions.Revoke(ctx, sessionID, s.now().UTC()); err != nil {
		return err
	}
	s.logEvent(ctx, userID, "logout", "session", sessionID, nil)
	return nil
}

// OIDCLogin verifies an ID token from the configured provider and signs in the matching user.
// Unknown subjects are linked to the user with the same email, or a new user is created.
func (s *AuthService) OIDCLogin(ctx context.Context, rawIDToken string) (*AuthResult, error) {
	if s.OIDC == nil {
		return nil, ErrOIDCDisabled
	}
	if rawIDToken == "" {
		return nil, ErrInvalidCredentials
	}
	claims, err := s.OIDC.Verify(ctx, rawIDToken)
	if err != nil {
		s.Log.Debug("auth: id token rejected", zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	email := userdomain.NormalizeEmail(claims.Email)
	if !userdomain.ValidEmail(email) || !claims.EmailVerified {
		return nil, ErrInvalidCredentials
	}

	var (
		result *AuthResult
		userID string
	)
	err = s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		ident, err := s.Identities.GetByProviderID(ctx, identitydomain.IdentityProviderOIDC, claims.Subject)
		if err != nil {
			return err
		}
		if ident != nil {
			userID = ident.UserID
		} else {
			userID, err = s.linkOIDC(ctx, claims.Subject, email, claims.Name)
			if err != nil {
				return err
			}
		}
		user, err := s.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if !user.Active() {
			return ErrInvalidCredentials
		}
		result, err = s.startSession(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, userID, "login", "session", result.SessionID, map[string]any{"provider": string(identitydomain.IdentityProviderOIDC)})
	return result, nil
}

// linkOIDC attaches subject to the user owning email, creating the user when there is none.
// Callers must only pass provider-verified addresses.
func (s *AuthService) linkOIDC(ctx context.Context, subject, email, name string) (string, error) {
	now := s.now().UTC()
	user, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		user = &userdomain.User{
			ID:        uuid.NewString(),
			Email:     email,
			Name:      strings.TrimSpace(name),
			Status:    userdomain.UserStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if user.Name == "" {
			user.Name = email[:strings.IndexByte(email, '@')]
		}
		if err := s.Users.Create(ctx, user); err != nil {
			return "", err
		}
		if err := s.recordRegister(ctx, user.ID, identitydomain.IdentityProviderOIDC); err != nil {
			return "", err
		}
	}
	err = s.Identities.Create(ctx, &identitydomain.Identity{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Provider:   identitydomain.IdentityProviderOIDC,
		ProviderID: subject,
		CreatedAt:  now,
	})
	return user.ID, err
}

// recordRegister audits a new user. A failure aborts the surrounding transaction.
func (s *AuthService) recordRegister(ctx context.Context, userID string, provider identitydomain.IdentityProvider) error {
	if s.Recorder == nil {
		return nil
	}
	_, err := s.Recorder.Record(ctx, auditdomain.Entry{
		OrgID:      auditdomain.SystemOrgID,
		ActorID:    userID,
		Action:     "register",
		EntityType: "user",
		EntityID:   userID,
		Metadata:   map[string]any{"provider": string(provider)},
	})
	return err
}

func (s *AuthService) startSession(ctx context.Context, userID string) (*AuthResult, error) {
	sessionID := uuid.NewString()
	refresh, err := s.Tokens.IssueRefresh(sessionID, userID)
	if err != nil {
		return nil, err
	}
	access, err := s.Tokens.IssueAccess(sessionID, userID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &sessiondomain.Session{
		ID:               sessionID,
		UserID:           userID,
		ExpiresAt:        now.Add(s.RefreshTTL),
		LastSeenAt:       &now,
		IPAddress:        interceptors.ClientIP(ctx),
		RefreshJti:       refresh.JTI,
		RefreshTokenHash: security.HashSecret(refresh.Token),
		CreatedAt:        now,
	}
	if err := s.Sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		ExpiresAt:    access.ExpiresAt,
		UserID:       userID,
		SessionID:    sessionID,
	}, nil
}

func (s *AuthService) logEvent(ctx context.Context, userID, action, entityType, entityID string, metadata map[string]any) {
	if s.Audit == nil || userID == "" {
		return
	}
	s.Audit.LogEvent(ctx, auditdomain.SystemOrgID, userID, action, entityType, entityID, metadata)
}

func validateRegistration(u *userdomain.User, password string) error {
	var v apperr.Validator
	v.Merge(u.Validate())
	if msg := passwordProblem(password); msg != "" {
		v.Add("password", msg)
	}
	return v.Err()
}

func passwordProblem(password string) string {
	if len(password) < 12 {
		return "must be at least 12 characters"
	}
	if len(password) > 72 {
		return "must be at most 72 bytes"
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		default:
			hasSymbol = true
		}
	}
	switch {
	case !hasUpper:
		return "must contain at least one uppercase letter"
	case !hasLower:
		return "must contain at least one lowercase letter"
	case !hasNumber:
		return "must contain at least one number"
	case !hasSymbol:
		return "must contain at least one symbol"
	}
	return ""
}
