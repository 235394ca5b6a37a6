package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/service"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware
	handler     http.Handler

	keys         *jwtx.KeyManager
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Service *service.AuthService

	// Metrics, when set, instruments every request and counts rate limit
	// rejections. Gatherer, when set, is served on /metrics.
	Metrics  *httpx.HTTPMetrics
	Gatherer prometheus.Gatherer

	// RateLimitScale multiplies every rate limit profile. Values <= 1 keep
	// the defaults.
	RateLimitScale int
}

func NewRouter(
	keys *jwtx.KeyManager,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ApplyRoutes registers every endpoint and freezes the middleware chain.
func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAccount()
	r.registerPasswordReset()
	r.registerInvites()
	r.registerSystem()

	var inner http.Handler = r.Mux
	if r.Metrics != nil {
		// Instrument must see the request the mux annotates with its pattern.
		inner = r.Metrics.Instrument(r.Mux)
	}
	r.handler = httpx.Chain(inner, r.middlewares...)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// authenticate resolves a bearer token into the request principal. Tokens
// whose session has been revoked are rejected even while the JWT is valid.
func (r *Router) authenticate(ctx context.Context, token string) (httpx.AuthContext, error) {
	p, err := r.Service.ValidateAccessToken(ctx, token)
	if err != nil {
		return httpx.AuthContext{}, err
	}
	return httpx.AuthContext{
		UserID:   p.Subject,
		TenantID: p.TenantID,
		Email:    p.Email,
		Role:     string(p.Role),
		JTI:      p.JTI,
	}, nil
}

func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.authenticate, writeError)
}

func (r *Router) limit(cfg httpx.RateLimitConfig) (httpx.RateLimitConfig, []httpx.RateLimitOption) {
	var opts []httpx.RateLimitOption
	if r.Metrics != nil {
		opts = append(opts, httpx.WithRejectHook(r.Metrics.RateLimited))
	}
	return cfg.Scale(r.RateLimitScale), opts
}

func (r *Router) byIP(cfg httpx.RateLimitConfig) httpx.Middleware {
	c, opts := r.limit(cfg)
	return httpx.RateLimitByIP(c, opts...)
}

func (r *Router) byUser(cfg httpx.RateLimitConfig) httpx.Middleware {
	c, opts := r.limit(cfg)
	return httpx.RateLimitByUser(c, opts...)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Service: r.Service}

	// Signup and refresh are unauthenticated; strict by IP
	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(http.HandlerFunc(h.Signup), r.byIP(httpx.StrictLimit)),
	)
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.Refresh), r.byIP(httpx.StrictLimit)),
	)

	// Login is limited per (IP, email)
	c, opts := r.limit(httpx.StrictLimit)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.Login), httpx.RateLimitByIPAndJSONField(c, "email", opts...)),
	)

	// Bearer is optional on logout
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.Logout), r.byIP(httpx.ModerateLimit)),
	)
	r.Mux.Handle("POST /v1/auth/logout-all",
		httpx.Chain(http.HandlerFunc(h.LogoutAll),
			r.authn(),
			r.byUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAccount() {
	h := &AccountHandler{Service: r.Service}

	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(http.HandlerFunc(h.Me), r.authn(), r.byUser(httpx.LenientLimit)),
	)
	r.Mux.Handle("PUT /v1/auth/password",
		httpx.Chain(http.HandlerFunc(h.ChangePassword), r.authn(), r.byUser(httpx.StrictLimit)),
	)
	r.Mux.Handle("PUT /v1/auth/profile",
		httpx.Chain(http.HandlerFunc(h.UpdateProfile), r.authn(), r.byUser(httpx.ModerateLimit)),
	)
	r.Mux.Handle("GET /v1/auth/sessions",
		httpx.Chain(http.HandlerFunc(h.ListSessions), r.authn(), r.byUser(httpx.LenientLimit)),
	)
	r.Mux.Handle("DELETE /v1/auth/sessions/{id}",
		httpx.Chain(http.HandlerFunc(h.RevokeSession), r.authn(), r.byUser(httpx.ModerateLimit)),
	)
}

func (r *Router) registerPasswordReset() {
	h := &ResetHandler{Service: r.Service}

	r.Mux.Handle("POST /v1/auth/password-reset",
		httpx.Chain(http.HandlerFunc(h.Request), r.byIP(httpx.StrictLimit)),
	)
	r.Mux.Handle("POST /v1/auth/password-reset/verify",
		httpx.Chain(http.HandlerFunc(h.Verify), r.byIP(httpx.StrictLimit)),
	)
	r.Mux.Handle("POST /v1/auth/password-reset/confirm",
		httpx.Chain(http.HandlerFunc(h.Confirm), r.byIP(httpx.StrictLimit)),
	)
}

func (r *Router) registerInvites() {
	h := &InviteMintHandler{Service: r.Service}

	r.Mux.Handle("POST /v1/invites",
		httpx.Chain(h,
			r.authn(),
			httpx.RequireRole(writeError, string(domain.RoleAdmin)),
			r.byUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	if r.keys.Publishes() {
		r.Mux.Handle("GET /.well-known/jwks.json",
			httpx.Chain(JWKSHandler(r.keys.KeySet), r.byIP(httpx.PublicLimit)),
		)
	}

	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion), r.byIP(httpx.LenientLimit)),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys), r.byIP(httpx.LenientLimit)),
	)

	if r.Gatherer != nil {
		r.Mux.Handle("GET /metrics",
			httpx.Chain(httpx.MetricsHandler(r.Gatherer), r.byIP(httpx.LenientLimit)),
		)
	}
}
