package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
)

type auditLogRepo struct {
	db dbtx
}

const auditColumns = `id, tenant_id, user_id, action, resource_type, resource_id, details, ip_address, user_agent, created_at`

func (r *auditLogRepo) AppendAuditEntry(ctx context.Context, e domain.AuditLogEntry) error {
	details := []byte("{}")
	if len(e.Details) > 0 {
		var err error
		if details, err = json.Marshal(e.Details); err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (`+auditColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, mapStringNull(e.TenantID), mapStringNull(e.UserID), e.Action,
		mapStringNull(e.ResourceType), mapStringNull(e.ResourceID), string(details),
		mapStringNull(e.IPAddress), mapStringNull(e.UserAgent), ts(e.CreatedAt),
	)
	return err
}

func (r *auditLogRepo) ListAuditEntriesByUser(
	ctx context.Context,
	userID string,
	limit int,
) ([]domain.AuditLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_log WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditLogEntry
	for rows.Next() {
		var (
			e                             domain.AuditLogEntry
			tenantID, uid, resType, resID sql.NullString
			details                       string
			ipAddress, userAgent          sql.NullString
		)
		if err := rows.Scan(&e.ID, &tenantID, &uid, &e.Action, &resType, &resID,
			&details, &ipAddress, &userAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.TenantID = mapNullString(tenantID)
		e.UserID = mapNullString(uid)
		e.ResourceType = mapNullString(resType)
		e.ResourceID = mapNullString(resID)
		e.IPAddress = mapNullString(ipAddress)
		e.UserAgent = mapNullString(userAgent)
		if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
			return nil, fmt.Errorf("decode audit details: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
