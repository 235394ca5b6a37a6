package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite) implement
// this. It exposes sub-repositories to keep concerns tidy and testable, and so
// a Tx-scoped store can refuse to open a nested transaction.
type Store interface {
	Tenants() Tenants
	Users() Users
	Sessions() Sessions
	PasswordResets() PasswordResets
	Invites() Invites
	AuditLog() AuditLog

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Tenants interface {
	CreateTenant(ctx context.Context, t domain.Tenant) error
	GetTenantByID(ctx context.Context, id string) (domain.Tenant, error)

	// SlugExists reports whether a tenant already uses slug.
	SlugExists(ctx context.Context, slug string) (bool, error)

	SetTenantActive(ctx context.Context, id string, active bool, at time.Time) error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches the normalised (lower-cased) email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	UpdateFullName(ctx context.Context, userID, fullName string, at time.Time) error

	UpdatePasswordHash(ctx context.Context, userID, newHash string, at time.Time) error

	// IncrementFailedLogins atomically bumps the counter and, when the new
	// value reaches threshold, sets locked_until to lockUntil. Returns the new
	// counter value.
	IncrementFailedLogins(ctx context.Context, userID string, threshold int, lockUntil, at time.Time) (int, error)

	// ResetLockout clears the failed counter and any lock.
	ResetLockout(ctx context.Context, userID string, at time.Time) error

	// RecordLogin clears lockout state and stamps last-login metadata.
	RecordLogin(ctx context.Context, userID, ip string, at time.Time) error

	SetUserActive(ctx context.Context, userID string, active bool, at time.Time) error
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error

	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// GetActiveSessionByRefreshHash returns a non-revoked session. Expiry is
	// left to the caller so it can distinguish expired from unknown.
	GetActiveSessionByRefreshHash(ctx context.Context, hash string) (domain.Session, error)

	// GetSessionByUserAndJTI returns the session regardless of revocation.
	GetSessionByUserAndJTI(ctx context.Context, userID, jti string) (domain.Session, error)

	// ListActiveSessionsByUser returns non-revoked, unexpired sessions, most
	// recently used first.
	ListActiveSessionsByUser(ctx context.Context, userID string, now time.Time) ([]domain.Session, error)

	// RevokeSession flips a session to revoked. Returns false when the
	// session was already revoked (or does not exist).
	RevokeSession(ctx context.Context, id, reason string, at time.Time) (bool, error)

	// RevokeAllUserSessions revokes every active session of the user except
	// the one carrying exceptJTI (when non-empty). Returns the count revoked.
	RevokeAllUserSessions(ctx context.Context, userID, exceptJTI, reason string, at time.Time) (int, error)

	TouchSession(ctx context.Context, id string, at time.Time) error

	// RevokeExpiredSessions is housekeeping; rows are never deleted.
	RevokeExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

type PasswordResets interface {
	CreateResetToken(ctx context.Context, t domain.PasswordResetToken) error

	GetResetTokenByHash(ctx context.Context, hash string) (domain.PasswordResetToken, error)

	// SupersedeUserResetTokens marks every unused token of the user as used.
	SupersedeUserResetTokens(ctx context.Context, userID string, at time.Time) (int, error)

	// MarkResetTokenUsed returns false if the token was already used.
	MarkResetTokenUsed(ctx context.Context, id string, at time.Time) (bool, error)

	// DeleteExpiredResetTokens is housekeeping for tokens expired before cutoff.
	DeleteExpiredResetTokens(ctx context.Context, cutoff time.Time) (int, error)
}

type Invites interface {
	CreateInvite(ctx context.Context, inv domain.Invite) error

	// GetInviteByTokenHash returns the invite regardless of state.
	GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error)

	// MarkInviteUsed returns false if the invite was already redeemed.
	MarkInviteUsed(ctx context.Context, inviteID, usedBy string, at time.Time) (bool, error)

	DeleteExpiredInvites(ctx context.Context, cutoff time.Time) (int, error)
}

type AuditLog interface {
	AppendAuditEntry(ctx context.Context, e domain.AuditLogEntry) error

	// ListAuditEntriesByUser returns the newest entries first.
	ListAuditEntriesByUser(ctx context.Context, userID string, limit int) ([]domain.AuditLogEntry, error)
}
