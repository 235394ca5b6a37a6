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

const (
	DefaultInviteTTL = 72 * time.Hour
	MaxInviteTTL     = 30 * 24 * time.Hour
)

type MintInviteRequest struct {
	TenantID  string
	CreatedBy string
	Role      domain.Role
	TTL       time.Duration // <= 0 means DefaultInviteTTL
}

// MintInvite creates a single-use invite into the caller's tenant. Only
// admins may invite. The raw code is returned once; only its fingerprint is
// stored.
func (s *AuthService) MintInvite(ctx context.Context, req MintInviteRequest, client domain.ClientInfo) (code string, inv domain.Invite, err error) {
	ctx, span := startSpan(ctx, "AuthService.MintInvite")
	defer func() { endSpan(span, err) }()

	log := slogx.FromContext(ctx)
	now := s.now()

	if !req.Role.Valid() {
		return "", domain.Invite{}, domain.NewError(domain.CodeInvalidRequest, "Invalid role")
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = DefaultInviteTTL
	}
	if ttl > MaxInviteTTL {
		return "", domain.Invite{}, domain.NewError(domain.CodeInvalidRequest, "Invite lifetime is too long")
	}

	code, err = cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", domain.Invite{}, internal(ctx, err, "failed to generate invite code")
	}

	inv = domain.Invite{
		ID:        idx.NewAt(now).String(),
		TenantID:  req.TenantID,
		TokenHash: cryptox.FingerprintToken(code),
		Role:      req.Role,
		CreatedBy: req.CreatedBy,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		creator, err := tx.Users().GetUserByID(ctx, req.CreatedBy)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrForbidden
		}
		if err != nil {
			return err
		}
		if creator.TenantID != req.TenantID || creator.Role != domain.RoleAdmin {
			return domain.ErrForbidden
		}
		if err := tx.Invites().CreateInvite(ctx, inv); err != nil {
			return err
		}
		e := entry(domain.AuditInviteCreated, creator, client, map[string]any{
			"role":       string(req.Role),
			"expires_at": inv.ExpiresAt,
		})
		e.ResourceType = "invite"
		e.ResourceID = inv.ID
		return s.Audit.Record(ctx, tx.AuditLog(), e, now)
	})
	if err != nil {
		return "", domain.Invite{}, internal(ctx, err, "mint invite failed")
	}

	log.Info("invite created",
		slog.String("invite_id", inv.ID),
		slog.String("role", string(inv.Role)),
		slog.Time("expires_at", inv.ExpiresAt),
	)
	return code, inv, nil
}
