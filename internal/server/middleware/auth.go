package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	identitydomain "library-service/backend/internal/identity/domain"
	userdomain "library-service/backend/internal/user/domain"
)

const bearerPrefix = "bearer "

// TokenVerifier returns the subject of a valid bearer token.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AccountLookup resolves a token subject to its account.
type AccountLookup interface {
	GetByUsername(ctx context.Context, username string) (*userdomain.Account, error)
}

// Authenticate attaches a Principal to the request when it carries a valid bearer token for an
// existing account. Requests without one continue anonymously; authorization is enforced per route.
func Authenticate(tokens TokenVerifier, accounts AccountLookup, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearer(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			username, err := tokens.Verify(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			a, err := accounts.GetByUsername(r.Context(), username)
			if err != nil {
				log.Warn("resolve token subject", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if a == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithPrincipal(r.Context(), identitydomain.Principal{
				AccountID: a.ID,
				Username:  a.Username,
				Email:     a.Email,
				Role:      a.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractBearer returns the bearer token from the Authorization header, or "" if missing or malformed.
func ExtractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
