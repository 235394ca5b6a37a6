package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
)

type inbox struct {
	mu     sync.Mutex
	tokens map[string]string // email -> latest reset token
}

func (i *inbox) SendPasswordReset(_ context.Context, u domain.User, token string, _ time.Time) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tokens[u.Email] = token
	return nil
}

func (i *inbox) latest(email string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tokens[email]
}

type testServer struct {
	*httptest.Server
	client *authsdk.SDKClient
	inbox  *inbox
}

type serverOpts struct {
	algorithm string
	rateScale int
}

func newTestServer(t *testing.T, opts serverOpts) *testServer {
	t.Helper()

	if opts.algorithm == "" {
		opts.algorithm = jwtx.AlgorithmHS256
	}
	if opts.rateScale == 0 {
		opts.rateScale = 100
	}

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	hasher, err := cryptox.NewHasher(cryptox.WithBcryptCost(cryptox.MinBcryptCost))
	require.NoError(t, err)

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Algorithm: opts.algorithm,
		Issuer:    "tenantauth-test",
		Secret:    []byte(strings.Repeat("s", 32)),
		NumKeys:   1,
		Leeway:    30 * time.Second,
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := service.NewMetrics(reg)
	policy := service.NewPasswordPolicy(hasher)
	box := &inbox{tokens: map[string]string{}}

	svc := &service.AuthService{
		Store:     st,
		Passwords: policy,
		Tokens: &service.TokenIssuer{
			KeyManager: km,
			Issuer:     "tenantauth-test",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Lockout: service.LockoutPolicy{Threshold: 5, Duration: 15 * time.Minute},
		Resets: &service.PasswordResetFlow{
			Store:    st,
			Policy:   policy,
			Notifier: box,
			Metrics:  metrics,
		},
		Metrics: metrics,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(km, "test", st, logger)
	router.Service = svc
	router.Metrics = httpx.NewHTTPMetrics(reg)
	router.Gatherer = reg
	router.RateLimitScale = opts.rateScale
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, client: authsdk.NewSDKClient(srv.URL), inbox: box}
}

func (s *testServer) signup(t *testing.T, email, fullName string) *authsdk.AuthResponse {
	t.Helper()
	res, err := s.client.Signup(context.Background(), authsdk.SignupRequest{
		Email: email, Password: "Abcd1234", FullName: fullName,
	})
	require.NoError(t, err)
	return res
}

func requireAPICode(t *testing.T, err error, status int, code string) *authsdk.APIError {
	t.Helper()
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, code, apiErr.Code, apiErr.Message)
	require.Equal(t, status, apiErr.StatusCode)
	return apiErr
}

func TestSignupAndMe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestServer(t, serverOpts{})

	res, err := s.client.Signup(ctx, authsdk.SignupRequest{
		Email: "Jane@Example.com", Password: "Abcd1234", FullName: "Jane", OrganizationName: "Acme Inc",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "jane@example.com", res.User.Email)
	require.Equal(t, "admin", res.User.Role)
	require.Equal(t, "acme-inc", res.Tenant.Slug)
	require.Equal(t, "Bearer", res.Tokens.TokenType)
	require.EqualValues(t, 900, res.Tokens.ExpiresIn)

	me, err := s.client.NewSessionFromTokens(res.Tokens).Me(ctx)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, me.User.ID)
	require.Equal(t, res.Tenant.ID, me.Tenant.ID)

	_, err = s.client.Signup(ctx, authsdk.SignupRequest{Email: "jane@example.com", Password: "Abcd1234", FullName: "J"})
	requireAPICode(t, err, http.StatusConflict, authsdk.CodeEmailExists)

	_, err = s.client.Signup(ctx, authsdk.SignupRequest{Email: "bob@example.com", Password: "abc", FullName: "Bob"})
	apiErr := requireAPICode(t, err, http.StatusBadRequest, authsdk.CodeWeakPassword)
	require.Contains(t, apiErr.Details, "Password must contain at least one uppercase letter")

	_, err = s.client.Signup(ctx, authsdk.SignupRequest{Email: "bob@example.com", Password: "Abcd1234"})
	apiErr = requireAPICode(t, err, http.StatusBadRequest, authsdk.CodeInvalidRequest)
	require.Equal(t, "Missing required fields: full_name", apiErr.Message)
}

func TestLogin_LocksAfterFiveFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestServer(t, serverOpts{})
	s.signup(t, "a@x.com", "A")

	for range 4 {
		_, err := s.client.Login(ctx, "a@x.com", "wrong")
		requireAPICode(t, err, http.StatusUnauthorized, authsdk.CodeInvalidCredentials)
	}

	_, err := s.client.Login(ctx, "a@x.com", "wrong")
	apiErr := requireAPICode(t, err, http.StatusLocked, authsdk.CodeAccountLocked)
	require.InDelta(t, (15 * time.Minute).Seconds(), apiErr.RetryAfter.Seconds(), 5)

	_, err = s.client.Login(ctx, "a@x.com", "Abcd1234")
	requireAPICode(t, err, http.StatusLocked, authsdk.CodeAccountLocked)

	// Unknown emails look exactly like wrong passwords.
	_, err = s.client.Login(ctx, "nobody@x.com", "Abcd1234")
	requireAPICode(t, err, http.StatusUnauthorized, authsdk.CodeInvalidCredentials)
}

func TestRefreshRotation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestServer(t, serverOpts{})
	res := s.signup(t, "a@x.com", "A")

	pair, err := s.client.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, res.Tokens.RefreshToken, pair.RefreshToken)

	_, err = s.client.Refresh(ctx, res.Tokens.RefreshToken)
	requireAPICode(t, err, http.StatusUnauthorized, authsdk.CodeInvalidRefreshToken)

	// The access token minted with the rotated-out session is dead too.
	_, err = s.client.NewSessionFromTokens(res.Tokens).Me(ctx)
	requireAPICode(t, err, http.StatusUnauthorized, authsdk.CodeTokenRevoked)

	_, err = s.client.NewSessionFromTokens(*pair).Me(ctx)
	require.NoError(t, err)
}

func TestLogoutAndSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestServer(t, serverOpts{})
	s.signup(t, "a@x.com", "A")

	laptop, err := s.client.AuthenticateWithPassword(ctx, "a@x.com", "Abcd1234")
	require.NoError(t, err)
	phone, err := s.client.AuthenticateWithPassword(ctx, "a@x.com", "Abcd1234")
	require.NoError(t, err)

	sessions, err := laptop.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	var current int
	for _, sess := range sessions {
		if sess.IsCurrent {
			current++
		}
	}
	require.Equal(t, 1, current)

	err = laptop.RevokeSession(ctx, "no-such-session")
	requireAPICode(t, err, http.StatusNotFound, authsdk.CodeSessionNotFound)

	phoneToken := phone.AccessToken()
	require.NoError(t, phone.Logout(ctx))
	_, err = s.client.NewSessionFromTokens(authsdk.TokenPair{AccessToken: phoneToken, ExpiresIn: 900}).Me(ctx)
	requireAPICode(t, err, http.StatusUnauthorized, authsdk.CodeTokenRevoked)

	n, err := laptop.LogoutAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n, "only the signup session was still active")

	sessions, err = laptop.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.True(t, sessions[0].IsCurrent)

	// Logout without a bearer still succeeds.
	resp, err := http.Post(s.URL+"/v1/auth/logout", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChangePasswordAndProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestServer(t, serverOpts{})
	res := s.signup(t, "a@x.com", "A")
	other := s.client.NewSessionFromTokens(res.Tokens)

	session, err := s.client.AuthenticateWithPassword(ctx, "a@x.com", "Abcd1234")
	require.NoError(t, err)

	err = session.ChangePassword(ctx, "nope", "Efgh5678", true)
	requireAPICode(t, err, http.StatusBadRequest, authsdk.CodeInvalidCurrentPassword)

	require.NoError(t, session.ChangePassword(ctx, "Abcd1234", "Efgh5678", true))

	_, err = other.Me(ctx)
	requireAPICode(t, err, http.StatusUnauthorized, authsdk.CodeTokenRevoked)
	_, err = session.Me(ctx)
	require.NoError(t, err)

	_, err = s.client.Login(ctx, "a@x.com", "Efgh5678")
	require.NoError(t, err)

	user, err := session.UpdateProfile(ctx, "Alice")
	require.NoError(t, err)
	require.Equal(t, "Alice", user.FullName)

	_, err = session.UpdateProfile(ctx, "")
	requireAPICode(t, err, http.StatusBadRequest, authsdk.CodeInvalidRequest)
}

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestServer(t, serverOpts{})
	res := s.signup(t, "a@x.com", "A")

	require.NoError(t, s.client.RequestPasswordReset(ctx, "a@x.com"))
	require.NoError(t, s.client.RequestPasswordReset(ctx, "unknown@x.com"))

	token := s.inbox.latest("a@x.com")
	require.NotEmpty(t, token)

	valid, err := s.client.VerifyResetToken(ctx, token)
	require.NoError(t, err)
	require.True(t, valid)

	valid, err = s.client.VerifyResetToken(ctx, "garbage")
	require.NoError(t, err)
	require.False(t, valid)

	err = s.client.ResetPassword(ctx, token, "weak")
	requireAPICode(t, err, http.StatusBadRequest, authsdk.CodeWeakPassword)

	require.NoError(t, s.client.ResetPassword(ctx, token, "Newpass99"))

	err = s.client.ResetPassword(ctx, token, "Newpass99")
	requireAPICode(t, err, http.StatusBadRequest, authsdk.CodeInvalidResetToken)

	_, err = s.client.NewSessionFromTokens(res.Tokens).Me(ctx)
	requireAPICode(t, err, http.StatusUnauthorized, authsdk.CodeTokenRevoked)

	_, err = s.client.Login(ctx, "a@x.com", "Newpass99")
	require.NoError(t, err)
}

func TestInvites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestServer(t, serverOpts{})
	admin := s.client.NewSessionFromTokens(s.signup(t, "admin@x.com", "Ada").Tokens)

	inv, err := admin.MintInvite(ctx, authsdk.InviteRequest{Role: "member", ExpiresIn: 3600})
	require.NoError(t, err)
	require.NotEmpty(t, inv.InviteCode)

	member, err := s.client.Signup(ctx, authsdk.SignupRequest{
		Email: "bob@x.com", Password: "Abcd1234", FullName: "Bob", InviteCode: inv.InviteCode,
	})
	require.NoError(t, err)
	require.Equal(t, "member", member.User.Role)

	_, err = s.client.NewSessionFromTokens(member.Tokens).MintInvite(ctx, authsdk.InviteRequest{Role: "member"})
	requireAPICode(t, err, http.StatusForbidden, authsdk.CodeForbidden)

	_, err = admin.MintInvite(ctx, authsdk.InviteRequest{Role: "owner"})
	requireAPICode(t, err, http.StatusBadRequest, authsdk.CodeInvalidRequest)

	_, err = s.client.Signup(ctx, authsdk.SignupRequest{
		Email: "eve@x.com", Password: "Abcd1234", FullName: "Eve", InviteCode: inv.InviteCode,
	})
	requireAPICode(t, err, http.StatusBadRequest, authsdk.CodeInvalidInvite)
}

func TestAuthnFailures(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, serverOpts{})

	resp, err := http.Get(s.URL + "/v1/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")

	var body authsdk.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.False(t, body.Success)
	require.Equal(t, authsdk.CodeInvalidToken, body.ErrorCode)

	_, err = s.client.NewSessionFromTokens(authsdk.TokenPair{AccessToken: "not-a-jwt", ExpiresIn: 900}).Me(context.Background())
	requireAPICode(t, err, http.StatusUnauthorized, authsdk.CodeInvalidToken)

	bad, err := http.Post(s.URL+"/v1/auth/login", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer bad.Body.Close()
	require.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestLoginRateLimit(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, serverOpts{rateScale: 1})
	ctx := context.Background()

	for range httpx.StrictLimit.Burst {
		_, err := s.client.Login(ctx, "ghost@x.com", "Abcd1234")
		requireAPICode(t, err, http.StatusUnauthorized, authsdk.CodeInvalidCredentials)
	}
	_, err := s.client.Login(ctx, "ghost@x.com", "Abcd1234")
	apiErr := requireAPICode(t, err, http.StatusTooManyRequests, authsdk.CodeRateLimited)
	require.True(t, apiErr.RetryAfter > 0)

	// A different email from the same address has its own budget.
	_, err = s.client.Login(ctx, "other@x.com", "Abcd1234")
	requireAPICode(t, err, http.StatusUnauthorized, authsdk.CodeInvalidCredentials)

	resp, err := http.Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `http_rate_limited_total{path="/v1/auth/login"} 1`)
	require.Contains(t, string(body), `route="POST /v1/auth/login",status="401"} `+strconv.Itoa(httpx.StrictLimit.Burst+1))
	require.Contains(t, string(body), `auth_logins_total{result="INVALID_CREDENTIALS"}`)
}

func TestSystemEndpoints(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestServer(t, serverOpts{})
	live, err := s.client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := s.client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Signer)

	// HS256 secrets are never published.
	_, err = s.client.GetJWKS(ctx)
	require.Error(t, err)

	ed := newTestServer(t, serverOpts{algorithm: jwtx.AlgorithmEdDSA})
	jwks, err := ed.client.GetJWKS(ctx)
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)

	res := ed.signup(t, "a@x.com", "A")
	_, err = ed.client.NewSessionFromTokens(res.Tokens).Me(ctx)
	require.NoError(t, err)
}
