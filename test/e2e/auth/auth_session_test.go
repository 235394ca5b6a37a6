package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/tenantauth/pkg/authsdk"
)

// TestSignupLoginRefresh tests the complete flow:
// 1. Sign up a new tenant
// 2. Log in with the same credentials
// 3. Rotate the refresh token
// 4. Verify the old refresh token is dead
func TestSignupLoginRefresh(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	signup := signupOwner(t, client)
	require.Equal(t, orgName, signup.Tenant.Name)
	require.Equal(t, "example-org", signup.Tenant.Slug)

	login, err := client.Login(t.Context(), ownerEmail, ownerPassword)
	require.NoError(t, err)
	require.Equal(t, signup.User.ID, login.User.ID)
	assertTokenPair(t, login.Tokens)

	rotated, err := client.Refresh(t.Context(), login.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, login.Tokens.AccessToken, rotated.AccessToken, "Access token should be rotated")
	require.NotEqual(t, login.Tokens.RefreshToken, rotated.RefreshToken, "Refresh token should be rotated")

	_, err = client.Refresh(t.Context(), login.Tokens.RefreshToken)
	assertAPIError(t, err, 401, authsdk.CodeInvalidRefreshToken)
}

// TestSessionManagement lists, revokes and logs out sessions.
func TestSessionManagement(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	signupOwner(t, client)

	laptop, err := client.AuthenticateWithPassword(t.Context(), ownerEmail, ownerPassword)
	require.NoError(t, err)
	phone, err := client.AuthenticateWithPassword(t.Context(), ownerEmail, ownerPassword)
	require.NoError(t, err)

	sessions, err := laptop.ListSessions(t.Context())
	require.NoError(t, err)
	require.Len(t, sessions, 3, "signup session plus two logins")

	var phoneID string
	for _, s := range sessions {
		if !s.IsCurrent {
			phoneID = s.ID
		}
	}
	require.NotEmpty(t, phoneID)

	revoked, err := laptop.LogoutAll(t.Context())
	require.NoError(t, err)
	require.Equal(t, 2, revoked)

	_, err = phone.Me(t.Context())
	assertAPIError(t, err, 401, authsdk.CodeTokenRevoked)

	refreshToken := laptop.RefreshToken()
	require.NoError(t, laptop.Logout(t.Context()))
	_, err = client.Refresh(t.Context(), refreshToken)
	require.Error(t, err, "refresh token of a logged out session must not rotate")
}

// TestProfileAndPassword updates the profile then rotates the password.
func TestProfileAndPassword(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	signupOwner(t, client)

	session, err := client.AuthenticateWithPassword(t.Context(), ownerEmail, ownerPassword)
	require.NoError(t, err)

	user, err := session.UpdateProfile(t.Context(), "  Olive Q. Owner ")
	require.NoError(t, err)
	require.Equal(t, "Olive Q. Owner", user.FullName)

	err = session.ChangePassword(t.Context(), "wrong", "Brand#NewPass1", true)
	assertAPIError(t, err, 400, authsdk.CodeInvalidCurrentPassword)

	require.NoError(t, session.ChangePassword(t.Context(), ownerPassword, "Brand#NewPass1", true))

	_, err = client.Login(t.Context(), ownerEmail, ownerPassword)
	assertAPIError(t, err, 401, authsdk.CodeInvalidCredentials)

	_, err = client.Login(t.Context(), ownerEmail, "Brand#NewPass1")
	require.NoError(t, err)

	me, err := session.Me(t.Context())
	require.NoError(t, err, "the session that changed the password stays alive")
	require.Equal(t, ownerEmail, me.User.Email)
}
