package errors

import (
	"net/http"

	"github.com/pkg/errors"
)

// AppError unified application error interface
type AppError interface {
	error
	HTTPCode() int     // HTTP status code (kept for a future/external HTTP surface)
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError basic error structure that implements AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error kinds (error-handling design: validation, provider,
// network, and coverage-workflow failures).
var (
	// ErrValidation covers malformed input geometry, out-of-range
	// coordinates, and missing required fields. Never retried.
	ErrValidation = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_ERROR",
		"validation failed",
		"",
	)

	// ErrProviderRateLimited is a map-matcher 429 exhausted after internal
	// retries; the caller sees it as a chunk-level failure.
	ErrProviderRateLimited = NewBaseError(
		http.StatusTooManyRequests,
		"PROVIDER_RATE_LIMITED",
		"map-match provider rate limit exceeded",
		"",
	)

	// ErrProviderUnavailable is a map-matcher 5xx or transport error
	// exhausted after backoff retries.
	ErrProviderUnavailable = NewBaseError(
		http.StatusBadGateway,
		"PROVIDER_UNAVAILABLE",
		"map-match provider unavailable",
		"",
	)

	// ErrNetworkUnavailable means the street provider could not be
	// reached; the owning task transitions to error.
	ErrNetworkUnavailable = NewBaseError(
		http.StatusBadGateway,
		"NETWORK_UNAVAILABLE",
		"street provider unreachable",
		"",
	)

	// ErrInconsistentState is a manual override conflicting with the
	// requested state.
	ErrInconsistentState = NewBaseError(
		http.StatusConflict,
		"INCONSISTENT_STATE",
		"requested state conflicts with an existing manual override",
		"",
	)

	// ErrCoverageIncomplete is returned when the route solver is invoked
	// on an area not in the completed state.
	ErrCoverageIncomplete = NewBaseError(
		http.StatusConflict,
		"COVERAGE_INCOMPLETE",
		"area coverage calculation is not complete",
		"",
	)

	// ErrResourceBusy is returned when preprocess/calc is requested for
	// an area that already has a task running.
	ErrResourceBusy = NewBaseError(
		http.StatusConflict,
		"RESOURCE_BUSY",
		"a task is already running for this area",
		"",
	)

	// ErrInternalError is the catch-all for unexpected failures.
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"internal error",
		"",
	)
)

// DatabaseExecuteError wraps a persistence-layer failure as an AppError.
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a Database-related error.
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execute failed").Error()
}

// HTTPCode returns HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "database execute failed"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}
