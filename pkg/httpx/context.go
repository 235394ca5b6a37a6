package httpx

import "context"

type ctxKey string

const ctxKeyAuth ctxKey = "auth"

// AuthContext is the authenticated principal attached to a request by
// AuthnMiddleware.
type AuthContext struct {
	UserID   string
	TenantID string
	Email    string
	Role     string
	JTI      string // jti of the presented access token
	Token    string // raw bearer token
}

func WithAuth(ctx context.Context, a AuthContext) context.Context {
	return context.WithValue(ctx, ctxKeyAuth, a)
}

// AuthFromContext returns the principal, if the request was authenticated.
func AuthFromContext(ctx context.Context) (AuthContext, bool) {
	a, ok := ctx.Value(ctxKeyAuth).(AuthContext)
	return a, ok
}
