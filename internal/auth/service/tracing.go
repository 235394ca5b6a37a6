package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

const tracerName = "github.com/aussiebroadwan/tenantauth/internal/auth/service"

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan tags the span with the outcome. Only internal errors mark the
// span as failed; expected domain failures are attributes.
func endSpan(span trace.Span, err error) {
	if err != nil {
		code := errorCode(err)
		span.SetAttributes(attribute.String("auth.error_code", string(code)))
		if code == domain.CodeInternal {
			span.RecordError(err)
			span.SetStatus(codes.Error, "internal error")
		}
	}
	span.End()
}

func errorCode(err error) domain.ErrorCode {
	return domain.ErrorCodeOf(err)
}

// internal passes domain errors through and replaces anything else with
// domain.ErrInternal after logging the cause.
func internal(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	slogx.FromContext(ctx).Error(msg, slog.Any("error", err))
	return domain.ErrInternal
}
