package domain

import (
	"errors"
	"fmt"
	"time"
)

type ErrorCode string

const (
	CodeInvalidEmail           ErrorCode = "INVALID_EMAIL"
	CodeWeakPassword           ErrorCode = "WEAK_PASSWORD"
	CodeEmailExists            ErrorCode = "EMAIL_EXISTS"
	CodeInvalidCredentials     ErrorCode = "INVALID_CREDENTIALS"
	CodeAccountLocked          ErrorCode = "ACCOUNT_LOCKED"
	CodeTenantInactive         ErrorCode = "TENANT_INACTIVE"
	CodeUserInactive           ErrorCode = "USER_INACTIVE"
	CodeInvalidRefreshToken    ErrorCode = "INVALID_REFRESH_TOKEN"
	CodeRefreshTokenExpired    ErrorCode = "REFRESH_TOKEN_EXPIRED"
	CodeTokenRevoked           ErrorCode = "TOKEN_REVOKED"
	CodeTokenExpired           ErrorCode = "TOKEN_EXPIRED"
	CodeInvalidTokenType       ErrorCode = "INVALID_TOKEN_TYPE"
	CodeInvalidToken           ErrorCode = "INVALID_TOKEN"
	CodeInvalidCurrentPassword ErrorCode = "INVALID_CURRENT_PASSWORD"
	CodeInvalidResetToken      ErrorCode = "INVALID_RESET_TOKEN"
	CodeResetTokenExpired      ErrorCode = "RESET_TOKEN_EXPIRED"
	CodeInvalidInvite          ErrorCode = "INVALID_INVITE"
	CodeSessionNotFound        ErrorCode = "SESSION_NOT_FOUND"
	CodeForbidden              ErrorCode = "FORBIDDEN"
	CodeInvalidRequest         ErrorCode = "INVALID_REQUEST"
	CodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// Error is the typed failure returned by every auth use case. Callers
// branch on Code; Message is safe to show to end users.
type Error struct {
	Code       ErrorCode
	Message    string
	Reasons    []string      // individual rule violations, e.g. for WEAK_PASSWORD
	RetryAfter time.Duration // set for ACCOUNT_LOCKED
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so errors.Is(err, ErrTokenRevoked)
// works for errors built with NewError as well as the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func NewError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

var (
	ErrInvalidEmail           = NewError(CodeInvalidEmail, "Invalid email format")
	ErrWeakPassword           = NewError(CodeWeakPassword, "Password does not meet requirements")
	ErrEmailExists            = NewError(CodeEmailExists, "Email already registered")
	ErrInvalidCredentials     = NewError(CodeInvalidCredentials, "Invalid email or password")
	ErrAccountLocked          = NewError(CodeAccountLocked, "Account is locked")
	ErrTenantInactive         = NewError(CodeTenantInactive, "Organization has been deactivated")
	ErrUserInactive           = NewError(CodeUserInactive, "User account is inactive")
	ErrInvalidRefreshToken    = NewError(CodeInvalidRefreshToken, "Invalid refresh token")
	ErrRefreshTokenExpired    = NewError(CodeRefreshTokenExpired, "Refresh token has expired")
	ErrTokenRevoked           = NewError(CodeTokenRevoked, "Token has been revoked")
	ErrTokenExpired           = NewError(CodeTokenExpired, "Token has expired")
	ErrInvalidTokenType       = NewError(CodeInvalidTokenType, "Invalid token type")
	ErrInvalidToken           = NewError(CodeInvalidToken, "Invalid token")
	ErrInvalidCurrentPassword = NewError(CodeInvalidCurrentPassword, "Current password is incorrect")
	ErrInvalidResetToken      = NewError(CodeInvalidResetToken, "Invalid or expired reset token")
	ErrResetTokenExpired      = NewError(CodeResetTokenExpired, "Reset token has expired")
	ErrInvalidInvite          = NewError(CodeInvalidInvite, "Invalid or expired invite code")
	ErrSessionNotFound        = NewError(CodeSessionNotFound, "Session not found")
	ErrForbidden              = NewError(CodeForbidden, "Insufficient permissions")
	ErrInvalidRequest         = NewError(CodeInvalidRequest, "Invalid request")
	ErrInternal               = NewError(CodeInternal, "Internal error")
)

// ErrorCodeOf extracts the code of a domain error, or CodeInternal for
// anything else.
func ErrorCodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
