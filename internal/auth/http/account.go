package http

import (
	"net/http"

	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
)

// AccountHandler serves the signed-in user's own account. Every route sits
// behind AuthnMiddleware.
type AccountHandler struct {
	Service *service.AuthService
}

// Me handles GET /v1/auth/me.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.AuthFromContext(r.Context())

	user, tenant, err := h.Service.CurrentUser(r.Context(), principal.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		Success: true,
		User:    toUser(user),
		Tenant:  toTenant(tenant),
	})
}

// ChangePassword handles PUT /v1/auth/password. Other sessions are logged
// out unless the request opts out.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.AuthFromContext(r.Context())

	var req authsdk.ChangePasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		badRequest(w, "Current password and new password are required")
		return
	}
	logoutOthers := req.LogoutOtherSessions == nil || *req.LogoutOtherSessions

	err := h.Service.ChangePassword(r.Context(), service.ChangePasswordRequest{
		UserID:          principal.UserID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		LogoutOthers:    logoutOthers,
		CurrentJTI:      principal.JTI,
	}, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}

// UpdateProfile handles PUT /v1/auth/profile.
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.AuthFromContext(r.Context())

	var req authsdk.UpdateProfileRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.Service.UpdateProfile(r.Context(), principal.UserID, req.FullName, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.ProfileResponse{Success: true, User: toUser(user)})
}

// ListSessions handles GET /v1/auth/sessions.
func (h *AccountHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.AuthFromContext(r.Context())

	sessions, err := h.Service.ListSessions(r.Context(), principal.UserID, principal.JTI)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SessionsResponse{Success: true, Sessions: toSessions(sessions)})
}

// RevokeSession handles DELETE /v1/auth/sessions/{id}.
func (h *AccountHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.AuthFromContext(r.Context())

	if err := h.Service.RevokeSession(r.Context(), principal.UserID, r.PathValue("id"), clientInfo(r)); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}
