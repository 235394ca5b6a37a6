package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/pkg/httpx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// statusFor maps a domain error code to its HTTP status.
func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeInvalidEmail,
		domain.CodeWeakPassword,
		domain.CodeInvalidCurrentPassword,
		domain.CodeInvalidResetToken,
		domain.CodeResetTokenExpired,
		domain.CodeInvalidInvite,
		domain.CodeInvalidRequest:
		return http.StatusBadRequest
	case domain.CodeInvalidCredentials,
		domain.CodeInvalidRefreshToken,
		domain.CodeRefreshTokenExpired,
		domain.CodeTokenRevoked,
		domain.CodeTokenExpired,
		domain.CodeInvalidTokenType,
		domain.CodeInvalidToken:
		return http.StatusUnauthorized
	case domain.CodeTenantInactive,
		domain.CodeUserInactive,
		domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeSessionNotFound:
		return http.StatusNotFound
	case domain.CodeEmailExists:
		return http.StatusConflict
	case domain.CodeAccountLocked:
		return http.StatusLocked
	}
	return http.StatusInternalServerError
}

// writeError renders err with the standard error envelope. Domain errors keep
// their code and message; anything else becomes INTERNAL_ERROR.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, httpx.ErrMissingBearer):
		httpx.WriteError(w, http.StatusUnauthorized, string(domain.CodeInvalidToken), "Authentication required")
		return
	case errors.Is(err, httpx.ErrInsufficientRole):
		httpx.WriteError(w, http.StatusForbidden, string(domain.CodeForbidden), domain.ErrForbidden.Message)
		return
	case errors.Is(err, httpx.ErrBadJSON):
		httpx.WriteError(w, http.StatusBadRequest, string(domain.CodeInvalidRequest), "Request body must be valid JSON")
		return
	}

	var de *domain.Error
	if !errors.As(err, &de) {
		slogx.FromContext(r.Context()).Error("unhandled error", "err", err)
		de = domain.ErrInternal
	}

	if de.Code == domain.CodeAccountLocked && de.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(de.RetryAfter.Seconds()))))
	}
	httpx.WriteError(w, statusFor(de.Code), string(de.Code), de.Message, de.Reasons...)
}

// badRequest reports a missing or malformed field.
func badRequest(w http.ResponseWriter, msg string) {
	httpx.WriteError(w, http.StatusBadRequest, string(domain.CodeInvalidRequest), msg)
}

// clientInfo captures the request metadata recorded on sessions and audit
// entries.
func clientInfo(r *http.Request) domain.ClientInfo {
	return domain.ClientInfo{
		IPAddress: httpx.IPKeyExtractor(r),
		UserAgent: r.UserAgent(),
	}
}
