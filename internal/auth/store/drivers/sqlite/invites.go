package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
)

type invitesRepo struct {
	db dbtx
}

const inviteColumns = `id, tenant_id, token_hash, role, created_by, expires_at, used, used_by, used_at, created_at`

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invites (`+inviteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.TenantID, inv.TokenHash, string(inv.Role), inv.CreatedBy, ts(inv.ExpiresAt),
		inv.Used, mapStringNull(inv.UsedBy), mapOptionalTime(inv.UsedAt), ts(inv.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *invitesRepo) GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error) {
	var (
		inv    domain.Invite
		role   string
		usedBy sql.NullString
		usedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites WHERE token_hash = ?`, hash,
	).Scan(&inv.ID, &inv.TenantID, &inv.TokenHash, &role, &inv.CreatedBy, &inv.ExpiresAt,
		&inv.Used, &usedBy, &usedAt, &inv.CreatedAt)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	inv.Role = domain.Role(role)
	inv.UsedBy = mapNullString(usedBy)
	inv.UsedAt = mapNullTimePtr(usedAt)
	return inv, nil
}

func (r *invitesRepo) MarkInviteUsed(ctx context.Context, inviteID, usedBy string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invites SET used = 1, used_by = ?, used_at = ? WHERE id = ? AND used = 0`,
		usedBy, ts(at), inviteID,
	)
	if err != nil {
		return false, err
	}
	n, err := rowsAffected(res)
	return n == 1, err
}

func (r *invitesRepo) DeleteExpiredInvites(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM invites WHERE expires_at < ?`, ts(cutoff),
	)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}
