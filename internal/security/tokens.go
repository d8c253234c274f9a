package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired or signed for someone else.
	ErrInvalidToken = errors.New("invalid token")
)

const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

// Claims are the JWT claims of both token kinds. Tokens are user-scoped; the organization
// is chosen per request.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	Use       string `json:"use"`
}

// Issued is a freshly signed token.
type Issued struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// TokenProvider issues and validates JWT access and refresh tokens using RS256 or ES256.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenProvider returns a TokenProvider that signs with privateKey and verifies with publicKey.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssueAccess signs a short-lived access token for the user's session.
func (p *TokenProvider) IssueAccess(sessionID, userID string) (*Issued, error) {
	return p.issue(tokenUseAccess, sessionID, userID, p.accessTTL)
}

// IssueRefresh signs a long-lived refresh token. The jti binds the token to the session row
// so a rotated token can be recognized on reuse.
func (p *TokenProvider) IssueRefresh(sessionID, userID string) (*Issued, error) {
	return p.issue(tokenUseRefresh, sessionID, userID, p.refreshTTL)
}

func (p *TokenProvider) issue(use, sessionID, userID string, ttl time.Duration) (*Issued, error) {
	jti, err := RandomToken(16)
	if err != nil {
		return nil, err
	}
	now := p.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		SessionID: sessionID,
		Use:       use,
	}
	token, err := p.sign(claims)
	if err != nil {
		return nil, err
	}
	return &Issued{Token: token, JTI: jti, ExpiresAt: exp}, nil
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	return jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
}

// ValidateAccess verifies an access token and returns its claims.
func (p *TokenProvider) ValidateAccess(token string) (*Claims, error) {
	return p.validate(token, tokenUseAccess)
}

// ValidateRefresh verifies a refresh token and returns its claims.
func (p *TokenProvider) ValidateRefresh(token string) (*Claims, error) {
	return p.validate(token, tokenUseRefresh)
}

func (p *TokenProvider) validate(tokenString, use string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return p.publicKey, nil
		default:
			return nil, ErrInvalidToken
		}
	}, jwt.WithIssuer(p.issuer), jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Use != use {
		return nil, ErrInvalidToken
	}
	if !slices.Contains([]string(claims.Audience), p.audience) {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RandomToken returns n random bytes hex-encoded. Used for jti values and invitation tokens.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
