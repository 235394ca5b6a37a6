package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
)

// TokenIssuer mints access JWTs and opaque refresh tokens.
type TokenIssuer struct {
	KeyManager *jwtx.KeyManager
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssueAccessToken signs an access token. A ttl <= 0 falls back to the
// configured AccessTTL, then to jwtx.DefaultAccessTokenTTL.
func (t *TokenIssuer) IssueAccessToken(
	userID, tenantID, email string,
	role domain.Role,
	ttl time.Duration,
	now time.Time,
) (token string, expiresAt time.Time, jti string, err error) {
	ttl = firstPositive(ttl, t.AccessTTL, jwtx.DefaultAccessTokenTTL)

	claims := jwtx.NewAccessClaims(userID, tenantID, email, string(role), ttl, t.Issuer, now)
	token, err = t.KeyManager.GetSigner().Sign(claims)
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("sign access token: %w", err)
	}
	return token, claims.ExpiresAt.UTC(), claims.ID, nil
}

// IssueRefreshToken returns a 512-bit opaque token and its expiry.
func (t *TokenIssuer) IssueRefreshToken(ttl time.Duration, now time.Time) (string, time.Time, error) {
	ttl = firstPositive(ttl, t.RefreshTTL, jwtx.DefaultRefreshTokenTTL)

	token, err := cryptox.GenerateToken(cryptox.TokenSize512)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, now.Add(ttl), nil
}

// VerifyAccessToken checks signature, issuer, expiry (with leeway) and the
// type marker. It does not consult session state.
func (t *TokenIssuer) VerifyAccessToken(token string) (domain.AccessTokenPayload, error) {
	claims, err := t.KeyManager.Verifier.Verify(token)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return domain.AccessTokenPayload{}, domain.ErrTokenExpired
		}
		return domain.AccessTokenPayload{}, domain.ErrInvalidToken
	}
	if claims.Type != jwtx.TypeAccess {
		return domain.AccessTokenPayload{}, domain.ErrInvalidTokenType
	}
	if claims.Subject == "" || claims.ID == "" {
		return domain.AccessTokenPayload{}, domain.ErrInvalidToken
	}

	p := domain.AccessTokenPayload{
		Subject:  claims.Subject,
		TenantID: claims.TenantID,
		Email:    claims.Email,
		Role:     domain.Role(claims.Role),
		JTI:      claims.ID,
		Type:     claims.Type,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.UTC()
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.UTC()
	}
	return p, nil
}

// HashRefreshToken is the fingerprint persisted for a refresh token.
func HashRefreshToken(token string) string {
	return cryptox.FingerprintToken(token)
}

func firstPositive(ds ...time.Duration) time.Duration {
	for _, d := range ds {
		if d > 0 {
			return d
		}
	}
	return 0
}
