package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// refreshBuffer refreshes the access token this long before it expires.
const refreshBuffer = 30 * time.Second

// Session represents an authenticated session with automatic token refresh.
// All Session methods automatically handle token expiration and refresh when needed.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// newSession creates a new authenticated session from a token pair.
func newSession(client *SDKClient, tokens TokenPair) *Session {
	return &Session{
		client:       client,
		accessToken:  tokens.AccessToken,
		refreshToken: tokens.RefreshToken,
		expiresAt:    time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - refreshBuffer),
	}
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have refreshed)
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if err := s.rotateLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

// Refresh rotates the refresh token now, regardless of access token expiry.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotateLocked(ctx)
}

func (s *Session) rotateLocked(ctx context.Context) error {
	if s.refreshToken == "" {
		return fmt.Errorf("access token expired and no refresh token available")
	}

	tokens, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	s.accessToken = tokens.AccessToken
	s.refreshToken = tokens.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(tokens.ExpiresIn)*time.Second - refreshBuffer)
	return nil
}

// AccessToken returns the current access token without checking expiration.
// For most use cases, prefer using the Session methods which handle refresh automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// doAuthRequest performs an HTTP request carrying the session's access token.
func (s *Session) doAuthRequest(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	token, err := s.getValidToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.doRequest(ctx, method, path, token, payload)
}

// ============================================================================
// Account
// ============================================================================

// Me returns the authenticated user and their organization.
func (s *Session) Me(ctx context.Context) (*MeResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var out MeResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) UpdateProfile(ctx context.Context, fullName string) (*User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/auth/profile", UpdateProfileRequest{FullName: fullName})
	if err != nil {
		return nil, err
	}

	var out ProfileResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// ChangePassword changes the password. With logoutOthers every other session
// of the user is revoked; this one stays valid.
func (s *Session) ChangePassword(ctx context.Context, current, next string, logoutOthers bool) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/v1/auth/password", ChangePasswordRequest{
		CurrentPassword:     current,
		NewPassword:         next,
		LogoutOtherSessions: &logoutOthers,
	})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// ============================================================================
// Sessions
// ============================================================================

func (s *Session) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/auth/sessions", nil)
	if err != nil {
		return nil, err
	}

	var out SessionsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (s *Session) RevokeSession(ctx context.Context, sessionID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/auth/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// Logout ends this session. The server never reports a failure here.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.accessToken
	s.accessToken, s.refreshToken = "", ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	resp, err := s.client.doRequest(ctx, http.MethodPost, "/v1/auth/logout", token, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// LogoutAll revokes every other session of the user and returns how many
// were revoked.
func (s *Session) LogoutAll(ctx context.Context) (int, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/logout-all", nil)
	if err != nil {
		return 0, err
	}

	var out LogoutAllResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.SessionsRevoked, nil
}

// ============================================================================
// Invites
// ============================================================================

// MintInvite creates an invite into the caller's organization. Admin only.
func (s *Session) MintInvite(ctx context.Context, req InviteRequest) (*InviteResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/invites", req)
	if err != nil {
		return nil, err
	}

	var out InviteResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}
