// Package errors provides custom error types for the login panel API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Authentication errors.
//
// Sentinels that share a Code and Message are distinct values so callers can
// tell them apart with errors.Is, while clients receive identical responses.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid login or password", StatusCode: http.StatusBadRequest}
	ErrLockedOut          = &AppError{Code: ErrNotFound.Code, Message: ErrNotFound.Message, StatusCode: ErrNotFound.StatusCode}
	ErrChallengeInvalid   = &AppError{Code: "INVALID_TOTP", Message: "Invalid or expired verification", StatusCode: http.StatusBadRequest}
	ErrInvalidTotpCode    = &AppError{Code: ErrChallengeInvalid.Code, Message: ErrChallengeInvalid.Message, StatusCode: ErrChallengeInvalid.StatusCode}
	ErrMalformedToken     = &AppError{Code: "MALFORMED_TOKEN", Message: "Malformed token", StatusCode: http.StatusBadRequest}
	ErrSessionNotFound    = &AppError{Code: "INVALID_TOKEN", Message: "Invalid token", StatusCode: http.StatusBadRequest}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// User errors.
var (
	ErrUserNotFound  = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateUser = &AppError{Code: "DUPLICATE_USER", Message: "A user with this login or email already exists", StatusCode: http.StatusConflict}
)
