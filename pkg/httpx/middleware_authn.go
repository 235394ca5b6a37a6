package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// Authenticator resolves a raw bearer token into a principal.
type Authenticator func(ctx context.Context, token string) (AuthContext, error)

// ErrorWriter renders a failure for the client.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if len(authz) < 7 || !strings.EqualFold(authz[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authz[7:])
	return token, token != ""
}

// AuthnMiddleware rejects requests without a valid bearer token and injects
// the AuthContext for downstream handlers.
func AuthnMiddleware(authn Authenticator, onError ErrorWriter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerChallenge(w, "missing bearer token")
				onError(w, r, ErrMissingBearer)
				return
			}

			principal, err := authn(ctx, raw)
			if err != nil {
				slogx.FromContext(ctx).Info("bearer token rejected", "err", err)
				writeBearerChallenge(w, "token verification failed")
				onError(w, r, err)
				return
			}
			principal.Token = raw

			ctx = WithAuth(ctx, principal)
			ctx = slogx.WithPrincipal(ctx, principal.UserID, principal.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750 challenge for bearer auth failures.
func writeBearerChallenge(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
}
