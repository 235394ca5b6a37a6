package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
)

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 15 * time.Minute
)

// LockoutPolicy suspends logins after repeated failures. The counter lives
// on the user row and is only ever changed with atomic SQL.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

func (p LockoutPolicy) threshold() int {
	if p.Threshold <= 0 {
		return DefaultLockoutThreshold
	}
	return p.Threshold
}

func (p LockoutPolicy) duration() time.Duration {
	if p.Duration <= 0 {
		return DefaultLockoutDuration
	}
	return p.Duration
}

// Check returns ACCOUNT_LOCKED while u is inside its lock window.
func (p LockoutPolicy) Check(u domain.User, now time.Time) error {
	if !u.IsLocked(now) {
		return nil
	}
	return lockedError(*u.LockedUntil, now)
}

// Lapsed reports whether u carries a lock that has already expired.
func (p LockoutPolicy) Lapsed(u domain.User, now time.Time) bool {
	return u.LockedUntil != nil && !u.IsLocked(now)
}

// RecordFailure bumps the counter and reports whether this failure put the
// account over the threshold.
func (p LockoutPolicy) RecordFailure(ctx context.Context, users store.Users, userID string, now time.Time) (attempts int, locked bool, err error) {
	attempts, err = users.IncrementFailedLogins(ctx, userID, p.threshold(), now.Add(p.duration()), now)
	if err != nil {
		return 0, false, err
	}
	return attempts, attempts >= p.threshold(), nil
}

// Transition reports whether attempts is exactly the failure that locked the
// account, so the event is audited once.
func (p LockoutPolicy) Transition(attempts int) bool {
	return attempts == p.threshold()
}

func lockedError(until, now time.Time) *domain.Error {
	remaining := until.Sub(now)
	minutes := int(remaining.Minutes())
	if remaining > time.Duration(minutes)*time.Minute {
		minutes++
	}
	return &domain.Error{
		Code:       domain.CodeAccountLocked,
		Message:    fmt.Sprintf("Account is locked. Try again in %d minutes", minutes),
		RetryAfter: remaining,
	}
}
