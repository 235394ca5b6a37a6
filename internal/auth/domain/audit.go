package domain

import "time"

// Audit actions.
const (
	AuditSignup                 = "user.signup"
	AuditLogin                  = "user.login"
	AuditLocked                 = "user.locked"
	AuditLogout                 = "user.logout"
	AuditLogoutAll              = "user.logout_all"
	AuditPasswordChanged        = "user.password_changed"
	AuditPasswordResetRequested = "user.password_reset_requested"
	AuditPasswordResetIgnored   = "user.password_reset_ignored"
	AuditPasswordResetCompleted = "user.password_reset_completed"
	AuditProfileUpdated         = "user.profile_updated"
	AuditSessionRevoked         = "session.revoked"
	AuditInviteCreated          = "invite.created"
)

// AuditLogEntry is an append-only record of a security-relevant event.
type AuditLogEntry struct {
	ID           string
	TenantID     string
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Details      map[string]any
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}
