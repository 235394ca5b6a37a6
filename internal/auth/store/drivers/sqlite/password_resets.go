package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
)

type passwordResetsRepo struct {
	db dbtx
}

const resetTokenColumns = `id, user_id, token_hash, ip_address, expires_at, used, used_at, superseded, created_at`

func (r *passwordResetsRepo) CreateResetToken(ctx context.Context, t domain.PasswordResetToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (`+resetTokenColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, mapStringNull(t.IPAddress), ts(t.ExpiresAt), t.Used,
		mapOptionalTime(t.UsedAt), t.Superseded, ts(t.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *passwordResetsRepo) GetResetTokenByHash(ctx context.Context, hash string) (domain.PasswordResetToken, error) {
	var (
		t      domain.PasswordResetToken
		ip     sql.NullString
		usedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT `+resetTokenColumns+` FROM password_reset_tokens WHERE token_hash = ?`, hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &ip, &t.ExpiresAt, &t.Used, &usedAt, &t.Superseded, &t.CreatedAt)
	if err != nil {
		return domain.PasswordResetToken{}, mapNotFound(err)
	}
	t.IPAddress = mapNullString(ip)
	t.UsedAt = mapNullTimePtr(usedAt)
	return t, nil
}

func (r *passwordResetsRepo) SupersedeUserResetTokens(ctx context.Context, userID string, at time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used = 1, superseded = 1, used_at = ?
		WHERE user_id = ? AND used = 0`, ts(at), userID,
	)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

func (r *passwordResetsRepo) MarkResetTokenUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used = 1, used_at = ? WHERE id = ? AND used = 0`, ts(at), id,
	)
	if err != nil {
		return false, err
	}
	n, err := rowsAffected(res)
	return n == 1, err
}

func (r *passwordResetsRepo) DeleteExpiredResetTokens(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE expires_at < ?`, ts(cutoff),
	)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}
