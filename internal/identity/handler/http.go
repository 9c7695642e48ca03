// Package handler serves the /api/auth endpoints.
package handler

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	identitydomain "library-service/backend/internal/identity/domain"
	"library-service/backend/internal/identity/service"
	"library-service/backend/internal/server/httpx"
	userdomain "library-service/backend/internal/user/domain"
)

// Ops are the auth operations behind the endpoints, usually the audited wrappers of AuthService methods.
type Ops struct {
	Login    func(ctx context.Context, req identitydomain.LoginRequest) (*identitydomain.LoginResponse, error)
	Validate func(ctx context.Context, req identitydomain.ValidateRequest) (*identitydomain.ValidateResponse, error)
	Register func(ctx context.Context, req identitydomain.RegisterRequest) (*userdomain.UserSummary, error)
	Me       func(ctx context.Context) (string, error)
}

// Handler maps auth operations to HTTP.
type Handler struct {
	ops Ops
	log *zap.Logger
}

// NewHandler returns a Handler. log may be nil.
func NewHandler(ops Ops, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{ops: ops, log: log}
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req identitydomain.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.ops.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusBadRequest, service.ErrInvalidCredentials.Error())
		case errors.Is(err, service.ErrAccountLocked):
			httpx.WriteError(w, http.StatusForbidden, service.ErrAccountLocked.Error())
		default:
			h.internalError(w, "login", err)
		}
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Validate handles POST /api/auth/validate.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req identitydomain.ValidateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, service.ErrInvalidOTP.Error())
		return
	}
	resp, err := h.ops.Validate(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOTP) {
			httpx.WriteError(w, http.StatusBadRequest, service.ErrInvalidOTP.Error())
			return
		}
		h.internalError(w, "validate", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req identitydomain.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := h.ops.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, userdomain.ErrUsernameTaken), errors.Is(err, userdomain.ErrEmailTaken):
			httpx.WriteError(w, http.StatusConflict, err.Error())
		default:
			h.internalError(w, "register", err)
		}
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, summary)
}

// Me handles GET /api/auth/me and returns the caller's username as a JSON string.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	username, err := h.ops.Me(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			httpx.WriteError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		h.internalError(w, "me", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, username)
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	h.log.Error("auth request failed", zap.String("op", op), zap.Error(err))
	httpx.WriteError(w, http.StatusInternalServerError, "internal error")
}
