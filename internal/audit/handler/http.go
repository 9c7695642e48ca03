// Package handler serves the audit trail listing.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"library-service/backend/internal/audit/domain"
	auditrepo "library-service/backend/internal/audit/repository"
	"library-service/backend/internal/platform/rbac"
	"library-service/backend/internal/policy/engine"
	"library-service/backend/internal/server/httpx"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// ListResponse is the body of GET /api/audit-logs.
type ListResponse struct {
	Records []*domain.Record `json:"records"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// Handler lists audit records for callers allowed to read them.
type Handler struct {
	repo  auditrepo.Repository
	authz rbac.Authorizer
	log   *zap.Logger
}

// NewHandler returns a Handler. log may be nil.
func NewHandler(repo auditrepo.Repository, authz rbac.Authorizer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{repo: repo, authz: authz, log: log}
}

// List handles GET /api/audit-logs?limit=&offset=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(r.Context(), w) {
		return
	}
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil || limit <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		httpx.WriteError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	records, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		h.log.Error("list audit records", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		records = []*domain.Record{}
	}
	httpx.WriteJSON(w, http.StatusOK, ListResponse{Records: records, Limit: limit, Offset: offset})
}

func (h *Handler) authorize(ctx context.Context, w http.ResponseWriter) bool {
	_, err := rbac.RequirePermission(ctx, h.authz, engine.PermAuditLogsRead)
	switch {
	case err == nil:
		return true
	case errors.Is(err, rbac.ErrUnauthenticated):
		httpx.WriteError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, rbac.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "Forbidden")
	default:
		h.log.Error("authorize audit listing", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
	return false
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
