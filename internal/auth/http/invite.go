package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
)

type InviteMintHandler struct {
	Service *service.AuthService
}

// ServeHTTP handles POST /v1/invites. Admin only; the invite joins the
// caller's own tenant.
func (h *InviteMintHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.AuthFromContext(r.Context())

	var req authsdk.InviteRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Role == "" {
		badRequest(w, "role is required")
		return
	}
	if req.ExpiresIn < 0 {
		badRequest(w, "expires_in must not be negative")
		return
	}

	code, inv, err := h.Service.MintInvite(r.Context(), service.MintInviteRequest{
		TenantID:  principal.TenantID,
		CreatedBy: principal.UserID,
		Role:      domain.Role(req.Role),
		TTL:       time.Duration(req.ExpiresIn) * time.Second,
	}, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.InviteResponse{
		Success:    true,
		InviteID:   inv.ID,
		InviteCode: code,
		Role:       string(inv.Role),
		ExpiresAt:  inv.ExpiresAt,
	})
}
