package engine

import "context"

// Input is the document a policy sees as `input`.
type Input struct {
	UserID     string `json:"user_id"`
	OrgID      string `json:"org_id"`
	Role       string `json:"role"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
}

// Evaluator decides whether an organization's policies deny a mutation.
type Evaluator interface {
	// Deny returns the deny messages produced by the org's enabled policies; empty means allow.
	// An error means the policies could not be evaluated and the caller must deny.
	Deny(ctx context.Context, in Input) ([]string, error)
}
