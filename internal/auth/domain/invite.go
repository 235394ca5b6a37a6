package domain

import "time"

// Invite lets a tenant admin bring a new user into an existing tenant.
// Invites are single-use.
type Invite struct {
	ID        string
	TenantID  string
	TokenHash string
	Role      Role // role granted to the invited user
	CreatedBy string
	ExpiresAt time.Time
	Used      bool
	UsedBy    string // empty until redeemed
	UsedAt    *time.Time
	CreatedAt time.Time
}

func (i *Invite) Redeemable(now time.Time) bool {
	return !i.Used && now.Before(i.ExpiresAt)
}
