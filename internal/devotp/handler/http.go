// Package handler serves the dev-only OTP lookup endpoint.
package handler

import (
	"net/http"
	"strings"

	"library-service/backend/internal/devotp"
	"library-service/backend/internal/server/httpx"
)

const devOTPNote = "DEV MODE ONLY"

// OTPResponse is the body of GET /dev/mfa/otp.
type OTPResponse struct {
	OTP  string `json:"otp"`
	Note string `json:"note"`
}

// Handler reads codes from a dev outbox. Only routed when dev OTP mode is on outside production.
type Handler struct {
	store devotp.Store
}

// NewHandler returns a Handler backed by store.
func NewHandler(store devotp.Store) *Handler {
	return &Handler{store: store}
}

// GetOTP handles GET /dev/mfa/otp?requestId=.
func (h *Handler) GetOTP(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.URL.Query().Get("requestId"))
	if requestID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "requestId is required")
		return
	}
	otp, ok := h.store.Get(r.Context(), requestID)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "OTP not found or expired")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, OTPResponse{OTP: otp, Note: devOTPNote})
}
