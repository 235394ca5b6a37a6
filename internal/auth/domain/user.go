package domain

import "time"

type User struct {
	ID                  string
	TenantID            string
	Email               string // normalised: trimmed, lower-cased
	FullName            string
	PasswordHash        string // bcrypt or argon2id encoded
	Role                Role
	Active              bool
	EmailVerified       bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLoginAt         *time.Time
	LastLoginIP         string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked reports whether the account is inside an active lockout window.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
