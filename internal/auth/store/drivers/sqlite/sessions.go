package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, user_id, refresh_token_hash, access_token_jti, device_info, ip_address,
	expires_at, revoked, revoked_reason, revoked_at, last_used_at, created_at`

func scanSession(row interface{ Scan(...any) error }) (domain.Session, error) {
	var (
		s             domain.Session
		deviceInfo    sql.NullString
		ipAddress     sql.NullString
		revokedReason sql.NullString
		revokedAt     sql.NullTime
		lastUsedAt    sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.RefreshTokenHash, &s.AccessTokenJTI, &deviceInfo, &ipAddress,
		&s.ExpiresAt, &s.Revoked, &revokedReason, &revokedAt, &lastUsedAt, &s.CreatedAt,
	)
	if err != nil {
		return domain.Session{}, err
	}
	s.DeviceInfo = mapNullString(deviceInfo)
	s.IPAddress = mapNullString(ipAddress)
	s.RevokedReason = mapNullString(revokedReason)
	s.RevokedAt = mapNullTimePtr(revokedAt)
	s.LastUsedAt = mapNullTimePtr(lastUsedAt)
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.RefreshTokenHash, s.AccessTokenJTI, mapStringNull(s.DeviceInfo), mapStringNull(s.IPAddress),
		ts(s.ExpiresAt), s.Revoked, mapStringNull(s.RevokedReason), mapOptionalTime(s.RevokedAt),
		mapOptionalTime(s.LastUsedAt), ts(s.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	))
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) GetActiveSessionByRefreshHash(ctx context.Context, hash string) (domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = ? AND revoked = 0`, hash,
	))
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) GetSessionByUserAndJTI(ctx context.Context, userID, jti string) (domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? AND access_token_jti = ?
		ORDER BY created_at DESC LIMIT 1`, userID, jti,
	))
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) ListActiveSessionsByUser(
	ctx context.Context,
	userID string,
	now time.Time,
) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ? AND revoked = 0
		ORDER BY COALESCE(last_used_at, created_at) DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		if s.Expired(now) {
			continue
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked = 1, revoked_reason = ?, revoked_at = ?
		WHERE id = ? AND revoked = 0`, reason, ts(at), id,
	)
	if err != nil {
		return false, err
	}
	n, err := rowsAffected(res)
	return n == 1, err
}

func (r *sessionsRepo) RevokeAllUserSessions(
	ctx context.Context,
	userID, exceptJTI, reason string,
	at time.Time,
) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked = 1, revoked_reason = ?, revoked_at = ?
		WHERE user_id = ? AND revoked = 0 AND (? = '' OR access_token_jti <> ?)`,
		reason, ts(at), userID, exceptJTI, exceptJTI,
	)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

func (r *sessionsRepo) TouchSession(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_used_at = ? WHERE id = ?`, ts(at), id,
	)
	return err
}

func (r *sessionsRepo) RevokeExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked = 1, revoked_reason = ?, revoked_at = ?
		WHERE revoked = 0 AND expires_at <= ?`,
		domain.RevokeReasonExpired, ts(now), ts(now),
	)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}
