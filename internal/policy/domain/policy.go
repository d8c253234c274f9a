package domain

import (
	"strings"
	"time"

	"github.com/foozio/prodmatic-sub002/internal/platform/apperr"
)

// Package is the Rego package every organization policy must declare.
const Package = "prodmatic.authz"

// Policy is an organization-level Rego module that can deny mutations. Policies only restrict;
// they never grant a role the hierarchy does not already grant.
type Policy struct {
	ID        string
	OrgID     string
	Name      string
	Rules     string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

const maxRulesLen = 64 << 10

// Validate checks the shape of p. Compilation of Rules is checked by the engine.
func (p *Policy) Validate() error {
	var v apperr.Validator
	name := strings.TrimSpace(p.Name)
	v.Check(name != "", "name", "is required")
	v.Check(len(name) <= 120, "name", "must be at most 120 characters")
	v.Check(strings.TrimSpace(p.Rules) != "", "rules", "is required")
	v.Check(len(p.Rules) <= maxRulesLen, "rules", "must be at most 64 KiB")
	return v.Err()
}
