package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/idx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// AuditSink appends security events to the audit log. Callers pass the
// transaction-scoped repository so the entry commits or rolls back with the
// change it describes. The log line is written at debug level and marked as
// staged since the transaction may still roll back.
type AuditSink struct{}

func (AuditSink) Record(ctx context.Context, log store.AuditLog, e domain.AuditLogEntry, at time.Time) error {
	e.ID = idx.NewAt(at).String()
	e.CreatedAt = at
	if e.ResourceType == "" && e.UserID != "" {
		e.ResourceType = "user"
		e.ResourceID = e.UserID
	}

	if err := log.AppendAuditEntry(ctx, e); err != nil {
		return err
	}

	slogx.FromContext(ctx).Debug("audit entry staged",
		slog.String("action", e.Action),
		slog.String("audit_user_id", e.UserID),
		slog.String("audit_tenant_id", e.TenantID),
		slog.String("resource", e.ResourceType+"/"+e.ResourceID),
		slog.String("ip", e.IPAddress),
	)
	return nil
}

// entry builds the common part of an audit entry for user.
func entry(action string, u domain.User, client domain.ClientInfo, details map[string]any) domain.AuditLogEntry {
	return domain.AuditLogEntry{
		TenantID:  u.TenantID,
		UserID:    u.ID,
		Action:    action,
		Details:   details,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	}
}
