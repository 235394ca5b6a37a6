package service

import (
	"context"
	"errors"
	"strings"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
)

// SessionView is a session as shown to its owner.
type SessionView struct {
	domain.Session
	Current bool
}

// CurrentUser returns the authenticated user together with its tenant.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (domain.User, domain.Tenant, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.Tenant{}, domain.ErrUserInactive
	}
	if err != nil {
		return domain.User{}, domain.Tenant{}, internal(ctx, err, "failed to load user")
	}
	tenant, err := s.Store.Tenants().GetTenantByID(ctx, user.TenantID)
	if err != nil {
		return domain.User{}, domain.Tenant{}, internal(ctx, err, "failed to load tenant")
	}
	return user, tenant, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID, fullName string, client domain.ClientInfo) (user domain.User, err error) {
	ctx, span := startSpan(ctx, "AuthService.UpdateProfile")
	defer func() { endSpan(span, err) }()

	fullName = strings.TrimSpace(fullName)
	if fullName == "" || len(fullName) > 255 {
		return domain.User{}, domain.NewError(domain.CodeInvalidRequest, "Full name is required")
	}
	now := s.now()

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.Users().GetUserByID(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrUserInactive
		}
		if err != nil {
			return err
		}
		previous := user.FullName
		if err := tx.Users().UpdateFullName(ctx, userID, fullName, now); err != nil {
			return err
		}
		user.FullName = fullName
		user.UpdatedAt = now
		return s.Audit.Record(ctx, tx.AuditLog(),
			entry(domain.AuditProfileUpdated, user, client, map[string]any{
				"full_name": map[string]string{"old": previous, "new": fullName},
			}), now)
	})
	if err != nil {
		return domain.User{}, internal(ctx, err, "update profile failed")
	}
	return user, nil
}

// ListSessions returns the user's active sessions, most recently used
// first, flagging the one behind currentJTI.
func (s *AuthService) ListSessions(ctx context.Context, userID, currentJTI string) ([]SessionView, error) {
	sessions, err := s.Store.Sessions().ListActiveSessionsByUser(ctx, userID, s.now())
	if err != nil {
		return nil, internal(ctx, err, "failed to list sessions")
	}
	out := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, SessionView{Session: sess, Current: sess.AccessTokenJTI == currentJTI})
	}
	return out, nil
}

// RevokeSession revokes one of the caller's own sessions. Sessions owned by
// someone else are reported as not found.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string, client domain.ClientInfo) (err error) {
	ctx, span := startSpan(ctx, "AuthService.RevokeSession")
	defer func() { endSpan(span, err) }()

	now := s.now()

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		sess, err := tx.Sessions().GetSessionByID(ctx, sessionID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && sess.UserID != userID) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		flipped, err := tx.Sessions().RevokeSession(ctx, sess.ID, domain.RevokeReasonUser, now)
		if err != nil {
			return err
		}
		if !flipped {
			return domain.ErrSessionNotFound
		}
		user, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		e := entry(domain.AuditSessionRevoked, user, client, nil)
		e.ResourceType = "session"
		e.ResourceID = sess.ID
		return s.Audit.Record(ctx, tx.AuditLog(), e, now)
	})
	if err != nil {
		return internal(ctx, err, "revoke session failed")
	}

	s.Metrics.revoked(domain.RevokeReasonUser, 1)
	return nil
}
