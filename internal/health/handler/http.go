// Package handler serves GET /healthz for load balancers and orchestrators.
package handler

import (
	"context"
	"net/http"
	"time"

	"library-service/backend/internal/server/httpx"
)

const checkTimeout = 2 * time.Second

// Pinger is implemented by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// StorePinger is implemented by the Redis OTP store.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// PolicyChecker verifies the authorization engine.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Response is the body of GET /healthz.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Handler reports readiness. Nil dependencies are skipped.
type Handler struct {
	db     Pinger
	store  StorePinger
	policy PolicyChecker
}

// NewHandler returns a health handler.
func NewHandler(db Pinger, store StorePinger, policy PolicyChecker) *Handler {
	return &Handler{db: db, store: store, policy: policy}
}

// Healthz returns 200 when every configured dependency answers, 503 otherwise.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	resp := Response{Status: "SERVING", Checks: map[string]string{}}
	check := func(name string, err error) {
		if err != nil {
			resp.Status = "NOT_SERVING"
			resp.Checks[name] = err.Error()
			return
		}
		resp.Checks[name] = "ok"
	}
	if h.db != nil {
		check("database", h.db.PingContext(ctx))
	}
	if h.store != nil {
		check("otp_store", h.store.Ping(ctx))
	}
	if h.policy != nil {
		check("policy", h.policy.HealthCheck(ctx))
	}

	status := http.StatusOK
	if resp.Status != "SERVING" {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, resp)
}
