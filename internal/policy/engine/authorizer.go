// Package engine decides role permissions with an in-process OPA Rego policy.
package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"

	userdomain "library-service/backend/internal/user/domain"
)

const allowQuery = "data.library.authz.allow"

// Permissions checked by the HTTP layer.
const (
	PermAuditLogsRead  = "audit_logs:read"
	PermContentRead    = "content:read"
	PermContentWrite   = "content:write"
	PermContentPublish = "content:publish"
	PermAccountsManage = "accounts:manage"
)

// DefaultPolicy grants permissions per CMS role. Only super_admin may read the audit trail.
const DefaultPolicy = `package library.authz

default allow := false

grants := {
	"super_admin": {"audit_logs:read", "accounts:manage", "content:read", "content:write", "content:publish"},
	"editor": {"content:read", "content:write", "content:publish"},
	"contributor": {"content:read", "content:write"},
	"viewer": {"content:read"},
}

allow if {
	input.permission in grants[input.role]
}
`

// Authorizer evaluates a prepared allow query.
type Authorizer struct {
	query rego.PreparedEvalQuery
}

// NewAuthorizer compiles policy (DefaultPolicy when empty). The policy must define data.library.authz.allow.
func NewAuthorizer(ctx context.Context, policy string) (*Authorizer, error) {
	if policy == "" {
		policy = DefaultPolicy
	}
	q, err := rego.New(
		rego.Query(allowQuery),
		rego.Module("authz.rego", policy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile authorization policy: %w", err)
	}
	return &Authorizer{query: q}, nil
}

// NewAuthorizerFromFile compiles the policy at path, or DefaultPolicy when path is empty.
func NewAuthorizerFromFile(ctx context.Context, path string) (*Authorizer, error) {
	if path == "" {
		return NewAuthorizer(ctx, "")
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read authorization policy: %w", err)
	}
	return NewAuthorizer(ctx, string(src))
}

// Allowed reports whether role holds permission.
func (a *Authorizer) Allowed(ctx context.Context, role userdomain.Role, permission string) (bool, error) {
	rs, err := a.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"role":       string(role),
		"permission": permission,
	}))
	if err != nil {
		return false, fmt.Errorf("eval authorization policy: %w", err)
	}
	return rs.Allowed(), nil
}

// HealthCheck evaluates a known decision to verify the engine is usable.
func (a *Authorizer) HealthCheck(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("authorizer not configured")
	}
	rs, err := a.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"role":       string(userdomain.RoleViewer),
		"permission": "",
	}))
	if err != nil {
		return fmt.Errorf("eval authorization policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}
