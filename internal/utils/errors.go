package utils

import (
	"errors"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

func (appErr *AppError) Unwrap() error {
	return appErr.Origin
}

// Standard error codes for the application
const (
	// Resource errors
	ErrNotFound     = "NOT_FOUND"
	ErrDuplicate    = "DUPLICATE"
	ErrInvalidInput = "INVALID_INPUT"

	// Identity errors
	ErrUnauthorized = "UNAUTHORIZED"
	ErrForbidden    = "FORBIDDEN" // Token is valid but belongs to someone else
	ErrInvalidToken = "INVALID_TOKEN"

	// Actor communication errors
	ErrActorTimeout    = "ACTOR_TIMEOUT"
	ErrMessageRejected = "MESSAGE_REJECTED"

	ErrDatabase = "database_error"
)

// Error creation helper functions
func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: resource + " not found",
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    ErrInvalidInput,
		Message: message,
	}
}

func NewDatabaseError(operation string, originalErr error) *AppError {
	return &AppError{
		Code:    ErrDatabase,
		Message: "failed to " + operation,
		Origin:  originalErr,
	}
}

func NewActorTimeoutError(actorName string, originalErr error) *AppError {
	return &AppError{
		Code:    ErrActorTimeout,
		Message: "Actor communication timeout: " + actorName,
		Origin:  originalErr,
	}
}

// AsAppError unwraps err into an *AppError. Errors that are not AppErrors are
// wrapped as database errors so callers always get a code.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewAppError(ErrDatabase, "unexpected error", err)
}

// Helper method to check if an error is of a specific type
func IsErrorCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrUnauthorized, ErrInvalidToken:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrDuplicate:
		return http.StatusConflict
	case ErrDatabase, ErrActorTimeout, ErrMessageRejected:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether the error message is safe to show to the caller.
func IsClientError(code string) bool {
	return AppErrorToHTTPStatus(code) < http.StatusInternalServerError
}
