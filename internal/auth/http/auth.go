package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
)

// AuthHandler serves the credential endpoints under /v1/auth.
type AuthHandler struct {
	Service *service.AuthService
}

// Signup handles POST /v1/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignupRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var missing []string
	if strings.TrimSpace(req.Email) == "" {
		missing = append(missing, "email")
	}
	if req.Password == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(req.FullName) == "" {
		missing = append(missing, "full_name")
	}
	if len(missing) > 0 {
		badRequest(w, "Missing required fields: "+strings.Join(missing, ", "))
		return
	}

	res, err := h.Service.Signup(r.Context(), service.SignupRequest{
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		OrgName:    req.OrganizationName,
		InviteCode: req.InviteCode,
	}, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.AuthResponse{
		Success: true,
		User:    toUser(res.User),
		Tenant:  toTenant(res.Tenant),
		Tokens:  toTokens(res.Tokens),
	})
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		badRequest(w, "Email and password are required")
		return
	}

	res, err := h.Service.Login(r.Context(), req.Email, req.Password, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.AuthResponse{
		Success: true,
		User:    toUser(res.User),
		Tenant:  toTenant(res.Tenant),
		Tokens:  toTokens(res.Tokens),
	})
}

// Refresh handles POST /v1/auth/refresh. The presented refresh token is
// consumed; the response carries its replacement.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.RefreshToken == "" {
		badRequest(w, "Refresh token is required")
		return
	}

	pair, err := h.Service.Refresh(r.Context(), req.RefreshToken, clientInfo(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{Success: true, Tokens: toTokens(*pair)})
}

// Logout handles POST /v1/auth/logout. It always succeeds, with or without a
// usable bearer token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := httpx.BearerToken(r); ok {
		h.Service.Logout(r.Context(), token, clientInfo(r))
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}

// LogoutAll handles POST /v1/auth/logout-all, keeping the caller's session.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	principal, _ := httpx.AuthFromContext(r.Context())

	n := h.Service.LogoutAll(r.Context(), principal.UserID, principal.JTI, clientInfo(r))
	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutAllResponse{Success: true, SessionsRevoked: n})
}
