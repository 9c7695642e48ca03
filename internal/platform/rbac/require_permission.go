// Package rbac guards handlers by the caller's role.
package rbac

import (
	"context"
	"errors"
	"fmt"

	identitydomain "library-service/backend/internal/identity/domain"
	"library-service/backend/internal/server/middleware"
	userdomain "library-service/backend/internal/user/domain"
)

var (
	// ErrUnauthenticated means the request carries no valid bearer token.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the caller's role lacks the permission.
	ErrForbidden = errors.New("forbidden")
)

// Authorizer decides whether a role holds a permission.
type Authorizer interface {
	Allowed(ctx context.Context, role userdomain.Role, permission string) (bool, error)
}

// RequirePermission returns the caller when it is authenticated and its role holds permission.
// Policy evaluation errors are returned wrapped; they are neither ErrUnauthenticated nor ErrForbidden.
func RequirePermission(ctx context.Context, authz Authorizer, permission string) (identitydomain.Principal, error) {
	p, ok := middleware.PrincipalFromContext(ctx)
	if !ok || p.Username == "" {
		return identitydomain.Principal{}, ErrUnauthenticated
	}
	allowed, err := authz.Allowed(ctx, p.Role, permission)
	if err != nil {
		return identitydomain.Principal{}, fmt.Errorf("authorize %s: %w", permission, err)
	}
	if !allowed {
		return identitydomain.Principal{}, ErrForbidden
	}
	return p, nil
}
