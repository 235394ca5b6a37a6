package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
)

// ResetHandler serves the password reset flow. None of its responses reveal
// whether an email is registered.
type ResetHandler struct {
	Service *service.AuthService
}

// Request handles POST /v1/auth/password-reset. The token goes out through
// the service's Notifier, never in the response.
func (h *ResetHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req authsdk.PasswordResetRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		badRequest(w, "Email is required")
		return
	}

	if _, err := h.Service.RequestPasswordReset(r.Context(), req.Email, clientInfo(r)); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}

// Verify handles POST /v1/auth/password-reset/verify.
func (h *ResetHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req authsdk.PasswordResetVerifyRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	valid := req.Token != "" && h.Service.VerifyResetToken(r.Context(), req.Token)
	httpx.WriteJSON(w, http.StatusOK, authsdk.PasswordResetVerifyResponse{Success: true, Valid: valid})
}

// Confirm handles POST /v1/auth/password-reset/confirm.
func (h *ResetHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req authsdk.PasswordResetConfirmRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		badRequest(w, "Token and new password are required")
		return
	}

	if err := h.Service.ResetPassword(r.Context(), req.Token, req.NewPassword, clientInfo(r)); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}
