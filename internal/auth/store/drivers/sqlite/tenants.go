package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
)

type tenantsRepo struct {
	db dbtx
}

const tenantColumns = `id, name, slug, plan, active, created_at, updated_at`

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (`+tenantColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Slug, t.Plan, t.Active, ts(t.CreatedAt), ts(t.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *tenantsRepo) GetTenantByID(ctx context.Context, id string) (domain.Tenant, error) {
	var t domain.Tenant
	err := r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Plan, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Tenant{}, mapNotFound(err)
	}
	return t, nil
}

func (r *tenantsRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE slug = ?)`, slug,
	).Scan(&exists)
	return exists, err
}

func (r *tenantsRepo) SetTenantActive(ctx context.Context, id string, active bool, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET active = ?, updated_at = ? WHERE id = ?`, active, ts(at), id,
	)
	if err != nil {
		return err
	}
	return requireOne(res)
}
