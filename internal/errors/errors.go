package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a calcard error code.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // 400
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrUnresolvable        ErrorCode = "UNRESOLVABLE"         // 422
	ErrUpstreamRejected    ErrorCode = "UPSTREAM_REJECTED"    // 502
	ErrUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE" // 503
	ErrInternal            ErrorCode = "INTERNAL"             // 500
)

// Error represents a structured error with code, status, and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error when no food matches a query.
func NewNotFound(query string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("no foods found for query: %s", query),
		Details: map[string]any{"query": query},
	}
}

// NewUnresolvable creates a 422 error when a food record lacks the data
// needed to compute calories for the requested unit.
func NewUnresolvable(msg string) *Error {
	return &Error{
		Code:    ErrUnresolvable,
		Status:  422,
		Message: msg,
	}
}

// NewUpstreamRejected creates a 502 error for a permanent (non-retryable)
// rejection from the nutrition database.
func NewUpstreamRejected(statusCode int, path string) *Error {
	return &Error{
		Code:    ErrUpstreamRejected,
		Status:  502,
		Message: fmt.Sprintf("nutrition database rejected request with status %d", statusCode),
		Details: map[string]any{"status_code": statusCode, "url_path": path},
	}
}

// NewUpstreamUnavailable creates a 503 error once the retry budget is spent.
// statusCode is 0 when the last attempt failed before a response arrived.
func NewUpstreamUnavailable(statusCode int, path string, cause error) *Error {
	details := map[string]any{"url_path": path}
	if statusCode != 0 {
		details["status_code"] = statusCode
	}
	msg := "nutrition database unavailable"
	if cause != nil {
		msg = fmt.Sprintf("nutrition database unavailable: %v", cause)
	}
	return &Error{
		Code:    ErrUpstreamUnavailable,
		Status:  503,
		Message: msg,
		Details: details,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message is generic; the original error is kept in Details for logging.
func NewInternal(err error) *Error {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &Error{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error (or any error it wraps) is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// StatusCode returns the upstream HTTP status recorded on err, or 0.
func StatusCode(err error) int {
	var e *Error
	if !stderrors.As(err, &e) || e.Details == nil {
		return 0
	}
	if code, ok := e.Details["status_code"].(int); ok {
		return code
	}
	return 0
}
