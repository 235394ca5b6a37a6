/*
Package authsdk provides a client SDK for the tenantauth service.

The package is organized around two types:

  - SDKClient: unauthenticated operations (signup, login, refresh, password
    reset, health) and creation of authenticated sessions
  - Session: operations on behalf of a signed-in user, with automatic
    access token refresh

Sign in and use a session:

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.AuthenticateWithPassword(ctx, "jane@example.com", "Abcd1234")
	if authsdk.CodeOf(err) == authsdk.CodeAccountLocked {
		// err.(*authsdk.APIError).RetryAfter says how long to wait
	}

	me, err := session.Me(ctx)

Every refresh rotates the refresh token; a Session keeps the latest one.
Reusing an old refresh token fails with INVALID_REFRESH_TOKEN.

# Errors

Non-2xx responses are returned as *APIError carrying the HTTP status, the
error code, the message and, for WEAK_PASSWORD, the individual rule
violations in Details.

# Thread Safety

SDKClient and Session are safe for concurrent use.
*/
package authsdk
