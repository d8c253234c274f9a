package domain

import (
	"strings"
	"time"
)

// Membership links a user to an organization with exactly one role.
type Membership struct {
	ID        string
	UserID    string
	OrgID     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role is a member's level in an organization.
type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleProductManager Role = "PRODUCT_MANAGER"
	RoleContributor    Role = "CONTRIBUTOR"
	RoleStakeholder    Role = "STAKEHOLDER"
)

// rank orders roles; a higher rank includes every permission of the lower ones.
var rank = map[Role]int{
	RoleAdmin:          4,
	RoleProductManager: 3,
	RoleContributor:    2,
	RoleStakeholder:    1,
}

// Roles lists every role from highest to lowest.
func Roles() []Role {
	return []Role{RoleAdmin, RoleProductManager, RoleContributor, RoleStakeholder}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// Rank returns the position of r in the hierarchy; 0 for unknown roles.
func (r Role) Rank() int {
	return rank[r]
}

// AtLeast reports whether r includes min. Unknown roles never satisfy any minimum.
func (r Role) AtLeast(min Role) bool {
	if !r.Valid() || !min.Valid() {
		return false
	}
	return rank[r] >= rank[min]
}

// ParseRole accepts the canonical names case-insensitively, with "-" or " " in place of "_".
func ParseRole(s string) (Role, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	r := Role(norm)
	return r, r.Valid()
}

// Invitation grants a role in an organization to whoever accepts it with a matching email.
type Invitation struct {
	ID         string
	OrgID      string
	Email      string
	Role       Role
	TokenHash  string
	InvitedBy  string
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	AcceptedBy string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Pending reports whether the invitation can still be accepted at now.
func (i *Invitation) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}
