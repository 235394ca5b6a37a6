package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, tenant_id, email, full_name, password_hash, role, active, email_verified,
	failed_login_attempts, locked_until, last_login_at, last_login_ip, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u           domain.User
		role        string
		lockedUntil sql.NullTime
		lastLoginAt sql.NullTime
		lastLoginIP sql.NullString
	)
	err := row.Scan(
		&u.ID, &u.TenantID, &u.Email, &u.FullName, &u.PasswordHash, &role, &u.Active, &u.EmailVerified,
		&u.FailedLoginAttempts, &lockedUntil, &lastLoginAt, &lastLoginIP, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.LockedUntil = mapNullTimePtr(lockedUntil)
	u.LastLoginAt = mapNullTimePtr(lastLoginAt)
	u.LastLoginIP = mapNullString(lastLoginIP)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email,
	))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.TenantID, u.Email, u.FullName, u.PasswordHash, string(u.Role), u.Active, u.EmailVerified,
		u.FailedLoginAttempts, mapOptionalTime(u.LockedUntil), mapOptionalTime(u.LastLoginAt),
		mapStringNull(u.LastLoginIP), ts(u.CreatedAt), ts(u.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateFullName(ctx context.Context, userID, fullName string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET full_name = ?, updated_at = ? WHERE id = ?`, fullName, ts(at), userID,
	)
	if err != nil {
		return err
	}
	return requireOne(res)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, newHash, ts(at), userID,
	)
	if err != nil {
		return err
	}
	return requireOne(res)
}

func (r *usersRepo) IncrementFailedLogins(
	ctx context.Context,
	userID string,
	threshold int,
	lockUntil, at time.Time,
) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE WHEN failed_login_attempts + 1 >= ? THEN ? ELSE locked_until END,
		    updated_at = ?
		WHERE id = ?
		RETURNING failed_login_attempts`,
		threshold, ts(lockUntil), ts(at), userID,
	).Scan(&attempts)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

func (r *usersRepo) ResetLockout(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET failed_login_attempts = 0, locked_until = NULL, updated_at = ? WHERE id = ?`,
		ts(at), userID,
	)
	return err
}

func (r *usersRepo) RecordLogin(ctx context.Context, userID, ip string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL,
		    last_login_at = ?, last_login_ip = ?, updated_at = ?
		WHERE id = ?`,
		ts(at), mapStringNull(ip), ts(at), userID,
	)
	if err != nil {
		return err
	}
	return requireOne(res)
}

func (r *usersRepo) SetUserActive(ctx context.Context, userID string, active bool, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET active = ?, updated_at = ? WHERE id = ?`, active, ts(at), userID,
	)
	if err != nil {
		return err
	}
	return requireOne(res)
}
