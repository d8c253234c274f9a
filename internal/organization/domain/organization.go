package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

// Org is a tenant. Every product entity belongs to exactly one organization.
type Org struct {
	ID        string
	Name      string
	Slug      string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Slugify derives a slug from name: lower-case, runs of other characters collapsed to "-".
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if len(s) > 50 {
		s = strings.TrimSuffix(s[:50], "-")
	}
	return s
}

// Validate validates the organization for persistence, deriving Slug from Name when empty.
func (o *Org) Validate() error {
	o.Name = strings.TrimSpace(o.Name)
	if o.Slug == "" {
		o.Slug = Slugify(o.Name)
	}
	var v apperr.Validator
	v.Check(o.Name != "", "name", "is required")
	v.Check(len(o.Name) <= 120, "name", "must be at most 120 characters")
	v.Check(len(o.Slug) >= 3 && len(o.Slug) <= 50, "slug", "must be 3 to 50 characters")
	v.Check(slugPattern.MatchString(o.Slug), "slug", "may contain only lower-case letters, digits and single dashes")
	return v.Err()
}

// Team groups members of an organization; products may be assigned to a team.
type Team struct {
	ID          string
	OrgID       string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the team for persistence.
func (t *Team) Validate() error {
	t.Name = strings.TrimSpace(t.Name)
	var v apperr.Validator
	v.Check(t.Name != "", "name", "is required")
	v.Check(len(t.Name) <= 120, "name", "must be at most 120 characters")
	v.Check(len(t.Description) <= 2000, "description", "must be at most 2000 characters")
	return v.Err()
}
