package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Error codes returned by the authentication service.
const (
	CodeInvalidEmail           = "INVALID_EMAIL"
	CodeWeakPassword           = "WEAK_PASSWORD"
	CodeEmailExists            = "EMAIL_EXISTS"
	CodeInvalidCredentials     = "INVALID_CREDENTIALS"
	CodeAccountLocked          = "ACCOUNT_LOCKED"
	CodeTenantInactive         = "TENANT_INACTIVE"
	CodeUserInactive           = "USER_INACTIVE"
	CodeInvalidRefreshToken    = "INVALID_REFRESH_TOKEN"
	CodeRefreshTokenExpired    = "REFRESH_TOKEN_EXPIRED"
	CodeTokenRevoked           = "TOKEN_REVOKED"
	CodeTokenExpired           = "TOKEN_EXPIRED"
	CodeInvalidTokenType       = "INVALID_TOKEN_TYPE"
	CodeInvalidToken           = "INVALID_TOKEN"
	CodeInvalidCurrentPassword = "INVALID_CURRENT_PASSWORD"
	CodeInvalidResetToken      = "INVALID_RESET_TOKEN"
	CodeResetTokenExpired      = "RESET_TOKEN_EXPIRED"
	CodeInvalidInvite          = "INVALID_INVITE"
	CodeSessionNotFound        = "SESSION_NOT_FOUND"
	CodeForbidden              = "FORBIDDEN"
	CodeInvalidRequest         = "INVALID_REQUEST"
	CodeRateLimited            = "RATE_LIMITED"
	CodeInternal               = "INTERNAL_ERROR"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Code is the machine-readable error code, one of the Code* constants.
	Code string

	// Message is a human-readable description.
	Message string

	// Details lists individual rule violations, when the server sent any.
	Details []string

	// RetryAfter is parsed from the Retry-After header (locked accounts and
	// rate limiting).
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches another *APIError by Code so callers can write
// errors.Is(err, &authsdk.APIError{Code: authsdk.CodeAccountLocked}).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// CodeOf returns the API error code carried by err, or "" when err is not an
// *APIError.
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		apiErr.RetryAfter = time.Duration(secs) * time.Second
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.ErrorCode != "" {
		apiErr.Code = errResp.ErrorCode
		apiErr.Message = errResp.Error
		apiErr.Details = errResp.Details
		return apiErr
	}

	// Fallback: create generic error from status code
	apiErr.Code = CodeInternal
	apiErr.Message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	return apiErr
}
