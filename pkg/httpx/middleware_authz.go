package httpx

import (
	"net/http"
	"slices"
)

// RequireRole lets the request through only when the authenticated principal
// holds one of the listed roles. Must run after AuthnMiddleware.
func RequireRole(onError ErrorWriter, roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := AuthFromContext(r.Context())
			if !ok {
				writeBearerChallenge(w, "missing bearer token")
				onError(w, r, ErrMissingBearer)
				return
			}
			if !slices.Contains(roles, principal.Role) {
				onError(w, r, ErrInsufficientRole)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
