package domain

import "time"

type ResetTokenState string

const (
	ResetTokenUsable     ResetTokenState = "usable"
	ResetTokenConsumed   ResetTokenState = "consumed"
	ResetTokenExpired    ResetTokenState = "expired"
	ResetTokenSuperseded ResetTokenState = "superseded"
)

type PasswordResetToken struct {
	ID         string
	UserID     string
	TokenHash  string
	IPAddress  string
	ExpiresAt  time.Time
	Used       bool
	UsedAt     *time.Time
	Superseded bool // marked used because a newer token was requested
	CreatedAt  time.Time
}

func (t *PasswordResetToken) State(now time.Time) ResetTokenState {
	switch {
	case t.Superseded:
		return ResetTokenSuperseded
	case t.Used:
		return ResetTokenConsumed
	case !now.Before(t.ExpiresAt):
		return ResetTokenExpired
	}
	return ResetTokenUsable
}
