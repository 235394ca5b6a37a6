package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentReset struct {
	UserID string
	Token  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentReset
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, u domain.User, token string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentReset{UserID: u.ID, Token: token})
	return nil
}

type harness struct {
	svc      *AuthService
	store    *sqlite.Store
	clock    *fakeClock
	keys     *jwtx.KeyManager
	metrics  *Metrics
	notifier *recordingNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessOn(t, ":memory:")
}

// newFileHarness runs against a WAL database file with a full connection
// pool, the way the service is deployed.
func newFileHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessOn(t, sqlite.FileDSN(filepath.Join(t.TempDir(), "auth.db")))
}

// storeVariants lists the harness constructors concurrency tests run against.
var storeVariants = map[string]func(*testing.T) *harness{
	"memory": newHarness,
	"file":   newFileHarness,
}

func newHarnessOn(t *testing.T, dsn string) *harness {
	t.Helper()

	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	clock := &fakeClock{t: epoch}

	hasher, err := cryptox.NewHasher(
		cryptox.WithBcryptCost(cryptox.MinBcryptCost),
		cryptox.WithPepper("test-pepper"),
	)
	require.NoError(t, err)

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmHS256,
		Issuer:    "tenantauth-test",
		Secret:    []byte(strings.Repeat("k", 32)),
		Leeway:    30 * time.Second,
		Now:       clock.Now,
	})
	require.NoError(t, err)

	policy := NewPasswordPolicy(hasher)
	metrics := NewMetrics(prometheus.NewRegistry())
	notifier := &recordingNotifier{}

	svc := &AuthService{
		Store:     st,
		Passwords: policy,
		Tokens: &TokenIssuer{
			KeyManager: km,
			Issuer:     "tenantauth-test",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Lockout: LockoutPolicy{Threshold: 5, Duration: 15 * time.Minute},
		Resets: &PasswordResetFlow{
			Store:    st,
			Policy:   policy,
			Notifier: notifier,
			Metrics:  metrics,
			Now:      clock.Now,
		},
		Metrics: metrics,
		Now:     clock.Now,
	}

	return &harness{svc: svc, store: st, clock: clock, keys: km, metrics: metrics, notifier: notifier}
}

var client = domain.ClientInfo{IPAddress: "203.0.113.7", UserAgent: "test-agent"}

func (h *harness) signup(t *testing.T, email, password, fullName string) *AuthResult {
	t.Helper()
	res, err := h.svc.Signup(context.Background(), SignupRequest{
		Email: email, Password: password, FullName: fullName,
	}, client)
	require.NoError(t, err)
	return res
}

func (h *harness) login(t *testing.T, email, password string) *AuthResult {
	t.Helper()
	res, err := h.svc.Login(context.Background(), email, password, client)
	require.NoError(t, err)
	return res
}

func (h *harness) user(t *testing.T, id string) domain.User {
	t.Helper()
	u, err := h.store.Users().GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (h *harness) auditActions(t *testing.T, userID string) []string {
	t.Helper()
	entries, err := h.store.AuditLog().ListAuditEntriesByUser(context.Background(), userID, 100)
	require.NoError(t, err)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func countOf(xs []string, x string) int {
	n := 0
	for _, v := range xs {
		if v == x {
			n++
		}
	}
	return n
}

// requireCode asserts err is a domain error with the given code.
func requireCode(t *testing.T, err error, code domain.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, domain.ErrorCodeOf(err), "got %v", err)
}

// failingStore makes CreateUser fail inside every transaction.
type failingStore struct {
	store.Store
}

func (f failingStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return f.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(failingTx{tx})
	})
}

// innerTx keeps the embedded field from shadowing the Tx method.
type innerTx = store.Tx

type failingTx struct{ innerTx }

func (f failingTx) Users() store.Users { return failingUsers{f.innerTx.Users()} }

type failingUsers struct{ store.Users }

var errDiskFull = errors.New("disk full")

func (failingUsers) CreateUser(context.Context, domain.User) error { return errDiskFull }

// rollbackStore runs every transaction to completion and then rolls it back.
type rollbackStore struct {
	store.Store
}

var errCommit = errors.New("commit failed")

func (r rollbackStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return r.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return errCommit
	})
}

// countingStore counts write transactions.
type countingStore struct {
	store.Store
	txs int
}

func (c *countingStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	c.txs++
	return c.Store.WithTx(ctx, fn)
}
