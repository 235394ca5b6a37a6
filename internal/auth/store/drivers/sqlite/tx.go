package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller commits/rolls back; the outer DB stays open

// Ping is a no-op for transactions. The connection is already established
// when the transaction is created.
func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Tenants() store.Tenants               { return &tenantsRepo{db: t.tx} }
func (t *txStore) Users() store.Users                   { return &usersRepo{db: t.tx} }
func (t *txStore) Sessions() store.Sessions             { return &sessionsRepo{db: t.tx} }
func (t *txStore) PasswordResets() store.PasswordResets { return &passwordResetsRepo{db: t.tx} }
func (t *txStore) Invites() store.Invites               { return &invitesRepo{db: t.tx} }
func (t *txStore) AuditLog() store.AuditLog             { return &auditLogRepo{db: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx is opened
