package middleware

import (
	"net"
	"net/http"
	"strings"
)

// RequestMetadata stores the caller's user agent and client IP on the request context.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithRequestMeta(r.Context(), RequestMeta{
			UserAgent: r.UserAgent(),
			ClientIP:  ClientIP(r),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
// Returns "unknown" if none is available.
func ClientIP(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); v != "" {
		if i := strings.Index(v, ","); i > 0 {
			v = strings.TrimSpace(v[:i])
		}
		if v != "" {
			return v
		}
	}
	if v := strings.TrimSpace(r.Header.Get("X-Real-IP")); v != "" {
		return v
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}
