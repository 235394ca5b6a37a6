package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/idx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// AuthResult is returned by signup and login.
type AuthResult struct {
	User   domain.User
	Tenant domain.Tenant
	Tokens domain.TokenPair
}

type SignupRequest struct {
	Email      string
	Password   string
	FullName   string
	OrgName    string // optional; defaults to "<FullName>'s Organization"
	InviteCode string // optional; joins the inviting tenant instead
}

type ChangePasswordRequest struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
	LogoutOthers    bool
	CurrentJTI      string // kept alive when LogoutOthers is set
}

// AuthService orchestrates every authentication use case. Each mutating
// use case runs in one store transaction together with its audit entry.
type AuthService struct {
	Store     store.Store
	Passwords *PasswordPolicy
	Tokens    *TokenIssuer
	Lockout   LockoutPolicy
	Resets    *PasswordResetFlow
	Audit     AuditSink
	Metrics   *Metrics
	Now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// dummy returns a throwaway hash so unknown-email logins cost the same as
// wrong-password logins.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		pw, err := s.Passwords.GenerateRandom(24)
		if err == nil {
			s.dummyHash, _ = s.Passwords.Hash(pw)
		}
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a user. Without an invite it also creates the tenant and
// the user becomes its admin. With an invite the user joins the inviting
// tenant with the invite's role.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest, client domain.ClientInfo) (res *AuthResult, err error) {
	ctx, span := startSpan(ctx, "AuthService.Signup", attribute.Bool("auth.invite", req.InviteCode != ""))
	defer func() { endSpan(span, err) }()

	log := slogx.FromContext(ctx)
	now := s.now()

	email := normalizeEmail(req.Email)
	if !emailPattern.MatchString(email) {
		return nil, domain.ErrInvalidEmail
	}
	if err := s.Passwords.checkStrength(req.Password); err != nil {
		return nil, err
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" || len(fullName) > 255 {
		return nil, domain.NewError(domain.CodeInvalidRequest, "Full name is required")
	}

	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, internal(ctx, err, "failed to check email")
	}

	var invite *domain.Invite
	if code := strings.TrimSpace(req.InviteCode); code != "" {
		inv, err := s.Store.Invites().GetInviteByTokenHash(ctx, cryptox.FingerprintToken(code))
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrInvalidInvite
		}
		if err != nil {
			return nil, internal(ctx, err, "failed to look up invite")
		}
		if !inv.Redeemable(now) {
			return nil, domain.ErrInvalidInvite
		}
		invite = &inv
	}

	hash, err := s.Passwords.Hash(req.Password)
	if err != nil {
		return nil, internal(ctx, err, "failed to hash password")
	}

	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	var tenant domain.Tenant
	var tokens domain.TokenPair

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		details := map[string]any{"email": email}

		if invite != nil {
			tenant, err = tx.Tenants().GetTenantByID(ctx, invite.TenantID)
			if err != nil {
				return err
			}
			if !tenant.Active {
				return domain.ErrTenantInactive
			}
			user.Role = invite.Role
			details["invite_id"] = invite.ID
		} else {
			tenant, err = s.createTenant(ctx, tx, orgName(req.OrgName, fullName), now)
			if err != nil {
				return err
			}
			// The creator of a tenant is always its first admin.
			user.Role = domain.RoleAdmin
			details["organization"] = tenant.Name
		}
		user.TenantID = tenant.ID

		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domain.ErrEmailExists
			}
			return err
		}

		if invite != nil {
			flipped, err := tx.Invites().MarkInviteUsed(ctx, invite.ID, user.ID, now)
			if err != nil {
				return err
			}
			if !flipped {
				return domain.ErrInvalidInvite
			}
		}

		tokens, err = s.issueSession(ctx, tx, user, client, now)
		if err != nil {
			return err
		}
		return s.Audit.Record(ctx, tx.AuditLog(), entry(domain.AuditSignup, user, client, details), now)
	})
	if err != nil {
		return nil, internal(ctx, err, "signup failed")
	}

	mode := "tenant"
	if invite != nil {
		mode = "invite"
	}
	s.Metrics.signup(mode)
	log.Info("user signed up",
		slog.String("user_id", user.ID),
		slog.String("tenant_id", tenant.ID),
		slog.String("mode", mode),
	)

	return &AuthResult{User: user, Tenant: tenant, Tokens: tokens}, nil
}

func orgName(requested, fullName string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	return fullName + "'s Organization"
}

func (s *AuthService) createTenant(ctx context.Context, tx store.Tx, name string, now time.Time) (domain.Tenant, error) {
	slug, err := uniqueSlug(ctx, tx.Tenants(), name)
	if err != nil {
		return domain.Tenant{}, err
	}
	t := domain.Tenant{
		ID:        idx.NewAt(now).String(),
		Name:      name,
		Slug:      slug,
		Plan:      domain.PlanFree,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Tenants().CreateTenant(ctx, t); err != nil {
		return domain.Tenant{}, err
	}
	return t, nil
}

// Slugify lower-cases name and collapses every run of non-alphanumerics
// into a single '-'.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "org"
	}
	return slug
}

func uniqueSlug(ctx context.Context, tenants store.Tenants, name string) (string, error) {
	base := Slugify(name)
	slug := base
	for i := 1; ; i++ {
		exists, err := tenants.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// issueSession mints a token pair and records its session inside tx.
func (s *AuthService) issueSession(
	ctx context.Context,
	tx store.Tx,
	user domain.User,
	client domain.ClientInfo,
	now time.Time,
) (domain.TokenPair, error) {
	// Token timestamps carry whole seconds only.
	now = now.Truncate(time.Second)

	access, accessExp, jti, err := s.Tokens.IssueAccessToken(user.ID, user.TenantID, user.Email, user.Role, 0, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, refreshExp, err := s.Tokens.IssueRefreshToken(0, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	sess := domain.Session{
		ID:               idx.NewAt(now).String(),
		UserID:           user.ID,
		RefreshTokenHash: HashRefreshToken(refresh),
		AccessTokenJTI:   jti,
		DeviceInfo:       client.UserAgent,
		IPAddress:        client.IPAddress,
		ExpiresAt:        refreshExp,
		CreatedAt:        now,
	}
	if err := tx.Sessions().CreateSession(ctx, sess); err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessExp.Sub(now).Seconds()),
	}, nil
}

// Login verifies credentials. The lock check runs before the password is
// verified and the counter is only updated after.
func (s *AuthService) Login(ctx context.Context, email, password string, client domain.ClientInfo) (res *AuthResult, err error) {
	ctx, span := startSpan(ctx, "AuthService.Login")
	defer func() {
		s.Metrics.login(err)
		endSpan(span, err)
	}()

	log := slogx.FromContext(ctx)
	now := s.now()
	email = normalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, internal(ctx, err, "failed to load user")
	}
	if err != nil || !user.Active {
		s.Passwords.Verify(ctx, password, s.dummy())
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.Lockout.Check(user, now); err != nil {
		log.Info("login rejected for locked account", slog.String("user_id", user.ID))
		return nil, err
	}
	if s.Lockout.Lapsed(user, now) {
		if err := s.Store.Users().ResetLockout(ctx, user.ID, now); err != nil {
			return nil, internal(ctx, err, "failed to clear lapsed lock")
		}
		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
	}

	if !s.Passwords.Verify(ctx, password, user.PasswordHash) {
		return nil, s.loginFailed(ctx, user, client, now)
	}

	tenant, err := s.Store.Tenants().GetTenantByID(ctx, user.TenantID)
	if err != nil {
		return nil, internal(ctx, err, "failed to load tenant")
	}
	if !tenant.Active {
		return nil, domain.ErrTenantInactive
	}

	var tokens domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().RecordLogin(ctx, user.ID, client.IPAddress, now); err != nil {
			return err
		}
		tokens, err = s.issueSession(ctx, tx, user, client, now)
		if err != nil {
			return err
		}
		return s.Audit.Record(ctx, tx.AuditLog(),
			entry(domain.AuditLogin, user, client, map[string]any{"method": "password"}), now)
	})
	if err != nil {
		return nil, internal(ctx, err, "login failed")
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	user.LastLoginIP = client.IPAddress

	return &AuthResult{User: user, Tenant: tenant, Tokens: tokens}, nil
}

// loginFailed commits the counter bump and returns the error the caller
// sees: INVALID_CREDENTIALS, or ACCOUNT_LOCKED when this failure locked the
// account.
func (s *AuthService) loginFailed(ctx context.Context, user domain.User, client domain.ClientInfo, now time.Time) error {
	var attempts int
	var locked bool

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		attempts, locked, err = s.Lockout.RecordFailure(ctx, tx.Users(), user.ID, now)
		if err != nil {
			return err
		}
		if !s.Lockout.Transition(attempts) {
			return nil
		}
		return s.Audit.Record(ctx, tx.AuditLog(),
			entry(domain.AuditLocked, user, client, map[string]any{
				"reason":   "Too many failed login attempts",
				"attempts": attempts,
			}), now)
	})
	if err != nil {
		return internal(ctx, err, "failed to record failed login")
	}

	slogx.FromContext(ctx).Info("login failed",
		slog.String("user_id", user.ID),
		slog.Int("attempts", attempts),
	)
	if locked {
		if s.Lockout.Transition(attempts) {
			s.Metrics.lockout()
		}
		return lockedError(now.Add(s.Lockout.duration()), now)
	}
	return domain.ErrInvalidCredentials
}

// Refresh rotates a refresh token: the presented session is revoked and a
// new one is issued. Presenting an already rotated token fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client domain.ClientInfo) (pair *domain.TokenPair, err error) {
	ctx, span := startSpan(ctx, "AuthService.Refresh")
	defer func() {
		s.Metrics.refresh(err)
		endSpan(span, err)
	}()

	if refreshToken == "" {
		return nil, domain.ErrInvalidRefreshToken
	}
	now := s.now()
	hash := HashRefreshToken(refreshToken)

	var tokens domain.TokenPair
	var expired bool

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		sess, err := tx.Sessions().GetActiveSessionByRefreshHash(ctx, hash)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrInvalidRefreshToken
		}
		if err != nil {
			return err
		}

		if sess.Expired(now) {
			// Commit the revocation, report the expiry afterwards.
			expired = true
			_, err := tx.Sessions().RevokeSession(ctx, sess.ID, domain.RevokeReasonExpired, now)
			return err
		}

		user, err := tx.Users().GetUserByID(ctx, sess.UserID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && !user.Active) {
			return domain.ErrUserInactive
		}
		if err != nil {
			return err
		}
		tenant, err := tx.Tenants().GetTenantByID(ctx, user.TenantID)
		if err != nil {
			return err
		}
		if !tenant.Active {
			return domain.ErrTenantInactive
		}

		flipped, err := tx.Sessions().RevokeSession(ctx, sess.ID, domain.RevokeReasonRotated, now)
		if err != nil {
			return err
		}
		if !flipped {
			return domain.ErrInvalidRefreshToken
		}

		tokens, err = s.issueSession(ctx, tx, user, client, now)
		return err
	})
	if err != nil {
		return nil, internal(ctx, err, "refresh failed")
	}
	if expired {
		s.Metrics.revoked(domain.RevokeReasonExpired, 1)
		return nil, domain.ErrRefreshTokenExpired
	}

	s.Metrics.revoked(domain.RevokeReasonRotated, 1)
	return &tokens, nil
}

// Logout revokes the session behind accessToken. It never fails: missing,
// invalid or already revoked tokens are a silent no-op.
func (s *AuthService) Logout(ctx context.Context, accessToken string, client domain.ClientInfo) {
	ctx, span := startSpan(ctx, "AuthService.Logout")
	defer span.End()

	log := slogx.FromContext(ctx)

	payload, err := s.Tokens.VerifyAccessToken(accessToken)
	if err != nil {
		log.Debug("logout with unusable token", slog.String("code", string(errorCode(err))))
		return
	}
	now := s.now()

	var flipped bool
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		sess, err := tx.Sessions().GetSessionByUserAndJTI(ctx, payload.Subject, payload.JTI)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		flipped, err = tx.Sessions().RevokeSession(ctx, sess.ID, domain.RevokeReasonLogout, now)
		if err != nil || !flipped {
			return err
		}
		u := domain.User{ID: payload.Subject, TenantID: payload.TenantID}
		return s.Audit.Record(ctx, tx.AuditLog(), entry(domain.AuditLogout, u, client, nil), now)
	})
	if err != nil {
		log.Error("logout failed", slog.Any("error", err))
		return
	}
	if flipped {
		s.Metrics.revoked(domain.RevokeReasonLogout, 1)
	}
}

// LogoutAll revokes every active session of userID except the one whose
// access token carries exceptJTI. It returns the number revoked and never
// fails.
func (s *AuthService) LogoutAll(ctx context.Context, userID, exceptJTI string, client domain.ClientInfo) int {
	ctx, span := startSpan(ctx, "AuthService.LogoutAll")
	defer span.End()

	now := s.now()
	var n int

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().GetUserByID(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		n, err = tx.Sessions().RevokeAllUserSessions(ctx, userID, exceptJTI, domain.RevokeReasonLogoutAll, now)
		if err != nil {
			return err
		}
		return s.Audit.Record(ctx, tx.AuditLog(),
			entry(domain.AuditLogoutAll, user, client, map[string]any{
				"sessions_revoked": n,
				"kept_current":     exceptJTI != "",
			}), now)
	})
	if err != nil {
		slogx.FromContext(ctx).Error("logout-all failed", slog.Any("error", err))
		return 0
	}

	s.Metrics.revoked(domain.RevokeReasonLogoutAll, n)
	return n
}

// ChangePassword replaces the password of an authenticated user and can
// optionally revoke every other session.
func (s *AuthService) ChangePassword(ctx context.Context, req ChangePasswordRequest, client domain.ClientInfo) (err error) {
	ctx, span := startSpan(ctx, "AuthService.ChangePassword", attribute.Bool("auth.logout_others", req.LogoutOthers))
	defer func() { endSpan(span, err) }()

	now := s.now()

	user, err := s.Store.Users().GetUserByID(ctx, req.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrInvalidCredentials
	}
	if err != nil {
		return internal(ctx, err, "failed to load user")
	}

	if !s.Passwords.Verify(ctx, req.CurrentPassword, user.PasswordHash) {
		return domain.ErrInvalidCurrentPassword
	}
	if err := s.Passwords.checkStrength(req.NewPassword); err != nil {
		return err
	}
	if req.NewPassword == req.CurrentPassword {
		return &domain.Error{
			Code:    domain.CodeWeakPassword,
			Message: domain.ErrWeakPassword.Message,
			Reasons: []string{"New password must differ from the current password"},
		}
	}

	hash, err := s.Passwords.Hash(req.NewPassword)
	if err != nil {
		return internal(ctx, err, "failed to hash password")
	}

	var revoked int
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash, now); err != nil {
			return err
		}
		if req.LogoutOthers {
			revoked, err = tx.Sessions().RevokeAllUserSessions(ctx, user.ID, req.CurrentJTI, domain.RevokeReasonPasswordChg, now)
			if err != nil {
				return err
			}
		}
		return s.Audit.Record(ctx, tx.AuditLog(),
			entry(domain.AuditPasswordChanged, user, client, map[string]any{
				"logout_others":    req.LogoutOthers,
				"sessions_revoked": revoked,
			}), now)
	})
	if err != nil {
		return internal(ctx, err, "change password failed")
	}

	s.Metrics.revoked(domain.RevokeReasonPasswordChg, revoked)
	return nil
}

// RequestPasswordReset returns a reset token for out-of-band delivery, or
// an empty string when the account is unknown or inactive.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string, client domain.ClientInfo) (token string, err error) {
	ctx, span := startSpan(ctx, "AuthService.RequestPasswordReset")
	defer func() { endSpan(span, err) }()

	return s.Resets.Request(ctx, email, client)
}

func (s *AuthService) VerifyResetToken(ctx context.Context, token string) bool {
	return s.Resets.Verify(ctx, token)
}

// ResetPassword consumes a reset token and revokes every session of the
// user.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string, client domain.ClientInfo) (err error) {
	ctx, span := startSpan(ctx, "AuthService.ResetPassword")
	defer func() { endSpan(span, err) }()

	return s.Resets.Consume(ctx, token, newPassword, client)
}

// ValidateAccessToken verifies the JWT and checks that its session is
// still live. Guarded routes call this on every request.
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (domain.AccessTokenPayload, error) {
	payload, err := s.Tokens.VerifyAccessToken(token)
	if err != nil {
		return domain.AccessTokenPayload{}, err
	}

	sess, err := s.Store.Sessions().GetSessionByUserAndJTI(ctx, payload.Subject, payload.JTI)
	if errors.Is(err, store.ErrNotFound) {
		return domain.AccessTokenPayload{}, domain.ErrTokenRevoked
	}
	if err != nil {
		return domain.AccessTokenPayload{}, internal(ctx, err, "failed to load session")
	}
	if sess.Revoked {
		return domain.AccessTokenPayload{}, domain.ErrTokenRevoked
	}
	return payload, nil
}
