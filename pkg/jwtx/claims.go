package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token TTLs.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TypeAccess marks a JWT as an access token. Anything else presented as an
// access token is rejected by the caller.
const TypeAccess = "access"

// Claims are the access-token claims. Fields are additive so older tokens
// keep decoding.
type Claims struct {
	jwt.RegisteredClaims

	// Tenant the subject belongs to.
	TenantID string `json:"tenant_id"`

	Email string `json:"email"`

	// Role of the subject inside the tenant: "admin", "member", "viewer".
	Role string `json:"role"`

	// Type distinguishes access tokens from any other JWT we might mint.
	Type string `json:"type"`
}

// NewAccessClaims builds minimally-correct access-token claims with a fresh
// jti.
func NewAccessClaims(
	subject, tenantID, email, role string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		TenantID: tenantID,
		Email:    email,
		Role:     role,
		Type:     TypeAccess,
	}
}

// NewJTI returns a random UUIDv4 for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}
