package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/idx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

const DefaultResetTokenTTL = time.Hour

// Notifier delivers a raw reset token to its owner out of band.
type Notifier interface {
	SendPasswordReset(ctx context.Context, u domain.User, token string, expiresAt time.Time) error
}

// LogNotifier only records that a reset was issued. The token itself is
// never logged.
type LogNotifier struct{}

func (LogNotifier) SendPasswordReset(ctx context.Context, u domain.User, _ string, expiresAt time.Time) error {
	slogx.FromContext(ctx).Info("password reset issued",
		slog.String("user_id", u.ID),
		slog.Time("expires_at", expiresAt),
	)
	return nil
}

// PasswordResetFlow implements request, verify and consume over single-use
// reset tokens. Only the SHA-256 fingerprint of a token is stored.
type PasswordResetFlow struct {
	Store    store.Store
	Policy   *PasswordPolicy
	Audit    AuditSink
	Notifier Notifier
	Metrics  *Metrics
	TTL      time.Duration
	Now      func() time.Time
}

func (f *PasswordResetFlow) now() time.Time {
	if f.Now != nil {
		return f.Now().UTC()
	}
	return time.Now().UTC()
}

func (f *PasswordResetFlow) ttl() time.Duration {
	if f.TTL <= 0 {
		return DefaultResetTokenTTL
	}
	return f.TTL
}

// Request issues a reset token for email. Unknown emails and inactive
// users or tenants get the same empty success so callers cannot probe for
// accounts.
func (f *PasswordResetFlow) Request(ctx context.Context, email string, client domain.ClientInfo) (string, error) {
	log := slogx.FromContext(ctx)
	now := f.now()

	// Both branches pay for token generation.
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", internal(ctx, err, "failed to generate reset token")
	}
	hash := cryptox.FingerprintToken(token)

	user, ok, err := f.eligibleUser(ctx, normalizeEmail(email))
	if err != nil {
		return "", internal(ctx, err, "failed to look up reset user")
	}
	if !ok {
		log.Debug("password reset requested for unknown or inactive account")
		return "", f.recordIgnored(ctx, client, now)
	}

	prt := domain.PasswordResetToken{
		ID:        idx.NewAt(now).String(),
		UserID:    user.ID,
		TokenHash: hash,
		IPAddress: client.IPAddress,
		ExpiresAt: now.Add(f.ttl()),
		CreatedAt: now,
	}

	err = f.Store.WithTx(ctx, func(tx store.Tx) error {
		superseded, err := tx.PasswordResets().SupersedeUserResetTokens(ctx, user.ID, now)
		if err != nil {
			return err
		}
		if err := tx.PasswordResets().CreateResetToken(ctx, prt); err != nil {
			return err
		}
		return f.Audit.Record(ctx, tx.AuditLog(),
			entry(domain.AuditPasswordResetRequested, user, client, map[string]any{
				"superseded": superseded,
			}), now)
	})
	if err != nil {
		return "", internal(ctx, err, "failed to store reset token")
	}
	f.Metrics.reset("requested")

	if f.Notifier != nil {
		if err := f.Notifier.SendPasswordReset(ctx, user, token, prt.ExpiresAt); err != nil {
			log.Error("failed to deliver password reset", slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}
	return token, nil
}

// recordIgnored runs the same write transaction shape as a real request so
// both outcomes take comparable time. The entry carries no user or tenant.
func (f *PasswordResetFlow) recordIgnored(ctx context.Context, client domain.ClientInfo, now time.Time) error {
	err := f.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.PasswordResets().SupersedeUserResetTokens(ctx, "", now); err != nil {
			return err
		}
		return f.Audit.Record(ctx, tx.AuditLog(), domain.AuditLogEntry{
			Action:       domain.AuditPasswordResetIgnored,
			ResourceType: "password_reset",
			IPAddress:    client.IPAddress,
			UserAgent:    client.UserAgent,
		}, now)
	})
	if err != nil {
		return internal(ctx, err, "failed to record ignored reset request")
	}
	return nil
}

func (f *PasswordResetFlow) eligibleUser(ctx context.Context, email string) (domain.User, bool, error) {
	user, err := f.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	if !user.Active {
		return domain.User{}, false, nil
	}
	tenant, err := f.Store.Tenants().GetTenantByID(ctx, user.TenantID)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, tenant.Active, nil
}

// Verify reports whether token is unused and unexpired.
func (f *PasswordResetFlow) Verify(ctx context.Context, token string) bool {
	_, err := f.lookup(ctx, token, f.now())
	return err == nil
}

func (f *PasswordResetFlow) lookup(ctx context.Context, token string, now time.Time) (domain.PasswordResetToken, error) {
	if token == "" {
		return domain.PasswordResetToken{}, domain.ErrInvalidResetToken
	}
	prt, err := f.Store.PasswordResets().GetResetTokenByHash(ctx, cryptox.FingerprintToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return domain.PasswordResetToken{}, domain.ErrInvalidResetToken
	}
	if err != nil {
		return domain.PasswordResetToken{}, internal(ctx, err, "failed to look up reset token")
	}

	switch prt.State(now) {
	case domain.ResetTokenUsable:
		return prt, nil
	case domain.ResetTokenExpired:
		return domain.PasswordResetToken{}, domain.ErrResetTokenExpired
	default:
		return domain.PasswordResetToken{}, domain.ErrInvalidResetToken
	}
}

// Consume sets a new password and revokes every session of the user. A
// token can be consumed once.
func (f *PasswordResetFlow) Consume(ctx context.Context, token, newPassword string, client domain.ClientInfo) error {
	now := f.now()

	if err := f.Policy.checkStrength(newPassword); err != nil {
		return err
	}
	prt, err := f.lookup(ctx, token, now)
	if err != nil {
		return err
	}

	hash, err := f.Policy.Hash(newPassword)
	if err != nil {
		return internal(ctx, err, "failed to hash password")
	}

	var revoked int
	err = f.Store.WithTx(ctx, func(tx store.Tx) error {
		flipped, err := tx.PasswordResets().MarkResetTokenUsed(ctx, prt.ID, now)
		if err != nil {
			return err
		}
		if !flipped {
			return domain.ErrInvalidResetToken
		}

		user, err := tx.Users().GetUserByID(ctx, prt.UserID)
		if err != nil {
			return err
		}
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash, now); err != nil {
			return err
		}
		if err := tx.Users().ResetLockout(ctx, user.ID, now); err != nil {
			return err
		}
		revoked, err = tx.Sessions().RevokeAllUserSessions(ctx, user.ID, "", domain.RevokeReasonPasswordReset, now)
		if err != nil {
			return err
		}
		return f.Audit.Record(ctx, tx.AuditLog(),
			entry(domain.AuditPasswordResetCompleted, user, client, map[string]any{
				"sessions_revoked": revoked,
			}), now)
	})
	if err != nil {
		return internal(ctx, err, "failed to complete password reset")
	}

	f.Metrics.reset("completed")
	f.Metrics.revoked(domain.RevokeReasonPasswordReset, revoked)
	return nil
}
