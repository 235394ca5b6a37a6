package domain

import "time"

// Revocation reasons recorded on sessions.
const (
	RevokeReasonRotated       = "rotated"
	RevokeReasonExpired       = "expired"
	RevokeReasonLogout        = "logout"
	RevokeReasonLogoutAll     = "logout_all"
	RevokeReasonPasswordChg   = "password_change"
	RevokeReasonPasswordReset = "password_reset"
	RevokeReasonUser          = "user_revoked"
)

// Session is one refresh-token lineage step. Rows are never deleted; they
// only move from active to revoked.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string // base64url SHA-256 of the opaque refresh token
	AccessTokenJTI   string
	DeviceInfo       string
	IPAddress        string
	ExpiresAt        time.Time
	Revoked          bool
	RevokedReason    string
	RevokedAt        *time.Time
	LastUsedAt       *time.Time
	CreatedAt        time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Active reports whether the session may still be used.
func (s *Session) Active(now time.Time) bool {
	return !s.Revoked && !s.Expired(now)
}

// ClientInfo is the request metadata attached to sessions and audit entries.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}
