package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the tenantauth service. It provides access to
// unauthenticated operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// UserAgent is sent on every request; the server records it on sessions
	// and audit entries.
	UserAgent string
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: "tenantauth-sdk",
	}
}

// Signup registers a user. Without an invite code a new organization is
// created and the user becomes its admin.
func (c *SDKClient) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/signup", "", req)
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SDKClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/login", "", LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh rotates a refresh token. The old token is dead afterwards.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/refresh", "", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}

	var out RefreshResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.Tokens, nil
}

// AuthenticateWithPassword logs in and wraps the tokens in a Session.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, email, password string) (*Session, error) {
	res, err := c.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return newSession(c, res.Tokens), nil
}

// NewSessionFromTokens creates an authenticated session from existing tokens,
// e.g. the ones returned by Signup.
func (c *SDKClient) NewSessionFromTokens(tokens TokenPair) *Session {
	return newSession(c, tokens)
}

// RequestPasswordReset always succeeds, whether or not the email is known.
func (c *SDKClient) RequestPasswordReset(ctx context.Context, email string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/password-reset", "", PasswordResetRequest{Email: email})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

func (c *SDKClient) VerifyResetToken(ctx context.Context, token string) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/password-reset/verify", "", PasswordResetVerifyRequest{Token: token})
	if err != nil {
		return false, err
	}

	var out PasswordResetVerifyResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return false, err
	}
	return out.Valid, nil
}

func (c *SDKClient) ResetPassword(ctx context.Context, token, newPassword string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/password-reset/confirm", "", PasswordResetConfirmRequest{
		Token:       token,
		NewPassword: newPassword,
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the service is ready.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *SDKClient) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetJWKS fetches the published verification keys. Only EdDSA deployments
// publish keys.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", "", nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}
	return &jwks, nil
}
