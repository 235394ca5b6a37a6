package authsdk

import (
	"time"

	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
)

// ============================================================================
// Envelope Types
// ============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Success is always false.
	Success bool `json:"success"`

	// Error is a human-readable message safe to show to end users.
	Error string `json:"error"`

	// ErrorCode is the machine-readable code (e.g. "INVALID_CREDENTIALS").
	ErrorCode string `json:"error_code"`

	// Details lists individual rule violations, e.g. for WEAK_PASSWORD.
	Details []string `json:"details,omitempty"`
}

// SuccessResponse is returned by endpoints that carry no payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenPair is the access/refresh pair handed out by signup, login and refresh.
type TokenPair struct {
	// AccessToken is the short-lived JWT sent as a bearer token.
	AccessToken string `json:"access_token"`

	// RefreshToken is opaque and single-use; every refresh rotates it.
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`
}

// ============================================================================
// Account Types
// ============================================================================

type User struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	Role          string     `json:"role"`
	Active        bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Plan      string    `json:"plan"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Success bool      `json:"success"`
	User    User      `json:"user"`
	Tenant  Tenant    `json:"tenant"`
	Tokens  TokenPair `json:"tokens"`
}

// RefreshResponse is returned by the refresh endpoint.
type RefreshResponse struct {
	Success bool      `json:"success"`
	Tokens  TokenPair `json:"tokens"`
}

// MeResponse describes the authenticated user.
type MeResponse struct {
	Success bool   `json:"success"`
	User    User   `json:"user"`
	Tenant  Tenant `json:"tenant"`
}

// ProfileResponse is returned after a profile update.
type ProfileResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

// SessionInfo is one signed-in device as shown to its owner.
type SessionInfo struct {
	ID         string     `json:"id"`
	DeviceInfo string     `json:"device_info"`
	IPAddress  string     `json:"ip_address"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	IsCurrent  bool       `json:"is_current"`
}

type SessionsResponse struct {
	Success  bool          `json:"success"`
	Sessions []SessionInfo `json:"sessions"`
}

// LogoutAllResponse reports how many sessions were revoked.
type LogoutAllResponse struct {
	Success         bool `json:"success"`
	SessionsRevoked int  `json:"sessions_revoked"`
}

// ============================================================================
// Request Types
// ============================================================================

type SignupRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FullName         string `json:"full_name"`
	OrganizationName string `json:"organization_name,omitempty"`
	InviteCode       string `json:"invite_code,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest changes the caller's password. LogoutOtherSessions
// defaults to true when omitted.
type ChangePasswordRequest struct {
	CurrentPassword     string `json:"current_password"`
	NewPassword         string `json:"new_password"`
	LogoutOtherSessions *bool  `json:"logout_other_sessions,omitempty"`
}

type UpdateProfileRequest struct {
	FullName string `json:"full_name"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type PasswordResetVerifyRequest struct {
	Token string `json:"token"`
}

type PasswordResetVerifyResponse struct {
	Success bool `json:"success"`
	Valid   bool `json:"valid"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ============================================================================
// Invite Types
// ============================================================================

// InviteRequest mints an invite into the caller's tenant. ExpiresIn is in
// seconds; zero selects the server default.
type InviteRequest struct {
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expires_in,omitempty"`
}

// InviteResponse carries the raw invite code. It is shown exactly once.
type InviteResponse struct {
	Success    bool      `json:"success"`
	InviteID   string    `json:"invite_id"`
	InviteCode string    `json:"invite_code"`
	Role       string    `json:"role"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the health check response from /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks contains the status of individual service components.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// JWKSResponse is the body of /.well-known/jwks.json.
type JWKSResponse = jwtx.JWKS
