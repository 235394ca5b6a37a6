package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithPrincipal enriches the request logger with the authenticated user.
func WithPrincipal(ctx context.Context, userID, tenantID string) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("user_id", userID, "tenant_id", tenantID))
}
