package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
)

// housekeepingRetention is how long expired reset tokens and invites are
// kept before being purged.
const housekeepingRetention = 24 * time.Hour

// HousekeepingService periodically flips expired sessions to revoked and
// purges stale reset tokens and invites. Sessions are never deleted.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Metrics  *Metrics
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// CleanupResult counts what one pass changed.
type CleanupResult struct {
	SessionsRevoked    int
	ResetTokensDeleted int
	InvitesDeleted     int
}

// Cleanup runs one pass. Each step is independent so a failure in one does
// not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) CleanupResult {
	now := s.Now().UTC()
	cutoff := now.Add(-housekeepingRetention)
	var res CleanupResult
	var err error

	if res.SessionsRevoked, err = s.Store.Sessions().RevokeExpiredSessions(ctx, now); err != nil {
		s.Logger.Error("failed to revoke expired sessions", "error", err)
	}
	s.Metrics.revoked(domain.RevokeReasonExpired, res.SessionsRevoked)

	if res.ResetTokensDeleted, err = s.Store.PasswordResets().DeleteExpiredResetTokens(ctx, cutoff); err != nil {
		s.Logger.Error("failed to delete expired reset tokens", "error", err)
	}

	if res.InvitesDeleted, err = s.Store.Invites().DeleteExpiredInvites(ctx, cutoff); err != nil {
		s.Logger.Error("failed to delete expired invites", "error", err)
	}

	s.Logger.Info("housekeeping cleanup completed",
		"sessions_revoked", res.SessionsRevoked,
		"reset_tokens_deleted", res.ResetTokensDeleted,
		"invites_deleted", res.InvitesDeleted,
	)
	return res
}
