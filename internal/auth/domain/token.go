package domain

import "time"

// TokenPair is what login, signup and refresh hand back to the caller: the
// short-lived access token (JWT) and the opaque refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"` // always "Bearer"
	ExpiresIn    int64  `json:"expires_in"` // seconds until the access token expires
}

// AccessTokenType is the marker carried in the "type" claim.
const AccessTokenType = "access"

// AccessTokenPayload is the decoded, verified content of an access token.
type AccessTokenPayload struct {
	Subject   string    `json:"sub"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	JTI       string    `json:"jti"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
	Type      string    `json:"type"`
}
