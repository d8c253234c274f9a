package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

// User is the core user entity. Users are never hard-deleted.
type User struct {
	ID        string
	Email     string
	Name      string
	Status    UserStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

const maxNameLen = 120

// Active reports whether the user may sign in and act.
func (u *User) Active() bool {
	return u != nil && u.DeletedAt == nil && u.Status == UserStatusActive
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a bare address such as "a@b.co".
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, "@")
}

// Validate validates the user for persistence and defaults Status.
func (u *User) Validate() error {
	var v apperr.Validator
	v.Check(ValidEmail(u.Email), "email", "must be a valid email address")
	v.Check(len(u.Name) <= maxNameLen, "name", "must be at most 120 characters")
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	v.Check(u.Status == UserStatusActive || u.Status == UserStatusDisabled, "status", "is invalid")
	return v.Err()
}
