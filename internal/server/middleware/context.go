// Package middleware carries request-scoped identity and client metadata through net/http handlers.
package middleware

import (
	"context"

	identitydomain "library-service/backend/internal/identity/domain"
)

type contextKey struct{ name string }

var (
	principalKey   = contextKey{"principal"}
	requestMetaKey = contextKey{"request_meta"}
)

// RequestMeta is what the audit trail records about the caller's client.
type RequestMeta struct {
	UserAgent string
	ClientIP  string
}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p identitydomain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (identitydomain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(identitydomain.Principal)
	return p, ok
}

// WithRequestMeta returns a context carrying client metadata.
func WithRequestMeta(ctx context.Context, m RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey, m)
}

// RequestMetaFromContext returns client metadata, or the zero value outside an HTTP request.
func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	m, ok := ctx.Value(requestMetaKey).(RequestMeta)
	return m, ok
}
