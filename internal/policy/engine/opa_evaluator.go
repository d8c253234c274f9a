package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/foozio/prodmatic-sub002/internal/policy/domain"
	"github.com/foozio/prodmatic-sub002/internal/policy/repository"
)

const denyQuery = "data." + domain.Package + ".deny"

// SamplePolicy is the built-in policy used by HealthCheck and offered as a starting point.
const SamplePolicy = `package prodmatic.authz

deny contains msg if {
	input.entity_type == "product"
	input.action == "delete"
	input.role != "ADMIN"
	msg := "only admins may delete products"
}
`

// OPAEvaluator evaluates organization Rego policies.
type OPAEvaluator struct {
	policyRepo interface {
		GetEnabledPoliciesByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error)
	}
}

var _ Evaluator = (*OPAEvaluator)(nil)

// NewOPAEvaluator returns an OPA-based policy evaluator.
func NewOPAEvaluator(policyRepo repository.Repository) *OPAEvaluator {
	return &OPAEvaluator{policyRepo: policyRepo}
}

// Compile parses and compiles rules as a single module. It fails when the module does not
// declare package prodmatic.authz.
func Compile(rules string) error {
	mod, err := ast.ParseModule("policy.rego", rules)
	if err != nil {
		return err
	}
	if mod == nil {
		return fmt.Errorf("empty module")
	}
	if got := mod.Package.Path.String(); got != "data."+domain.Package {
		return fmt.Errorf("package must be %s, got %s", domain.Package, got)
	}
	_, err = ast.CompileModules(map[string]string{"policy.rego": rules})
	return err
}

// HealthCheck verifies that the in-process Rego engine can compile and evaluate the sample policy.
// Does not call the policy repo or database. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	msgs, err := evaluate(ctx, []string{SamplePolicy}, Input{Role: "CONTRIBUTOR", Action: "delete", EntityType: "product"})
	if err != nil {
		return fmt.Errorf("eval sample policy: %w", err)
	}
	if len(msgs) != 1 {
		return fmt.Errorf("sample policy returned %d deny messages, want 1", len(msgs))
	}
	return nil
}

// Deny evaluates the org's enabled policies. No policies means allow.
func (e *OPAEvaluator) Deny(ctx context.Context, in Input) ([]string, error) {
	if e.policyRepo == nil {
		return nil, nil
	}
	policies, err := e.policyRepo.GetEnabledPoliciesByOrg(ctx, in.OrgID)
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}
	var modules []string
	for _, p := range policies {
		if p.Enabled && p.Rules != "" {
			modules = append(modules, p.Rules)
		}
	}
	if len(modules) == 0 {
		return nil, nil
	}
	return evaluate(ctx, modules, in)
}

func evaluate(ctx context.Context, policies []string, in Input) ([]string, error) {
	modules := make(map[string]string, len(policies))
	for i, p := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = p
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}
	rs, err := rego.New(
		rego.Query(denyQuery),
		rego.Compiler(compiler),
		rego.Input(map[string]any{
			"user_id":     in.UserID,
			"org_id":      in.OrgID,
			"role":        in.Role,
			"action":      in.Action,
			"entity_type": in.EntityType,
		}),
	).Eval(ctx)
	if err != nil {
		return nil, fmt.Errorf("eval policies: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}
	var out []string
	switch v := rs[0].Expressions[0].Value.(type) {
	case []any:
		for _, m := range v {
			out = append(out, fmt.Sprint(m))
		}
	case bool:
		if v {
			out = append(out, "denied by policy")
		}
	default:
		return nil, fmt.Errorf("deny must be a set of messages, got %T", v)
	}
	sort.Strings(out)
	return out, nil
}
