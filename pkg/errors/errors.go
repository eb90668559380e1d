// Package errors defines the platform's sentinel errors and their mapping to
// HTTP status codes, so handlers never inspect error strings.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Lower layers wrap these; handlers classify with errors.Is.
var (
	ErrAnalysisNotFound = errors.New("analysis not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrLLMUnavailable   = errors.New("llm unavailable")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTimeout          = errors.New("operation timed out")
)

// AppError pairs a sentinel with a human-readable message and an explicit
// HTTP status, for cases where the default sentinel mapping is too coarse.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string { return e.Err.Error() + ": " + e.Message }

func (e *AppError) Unwrap() error { return e.Err }

// New builds an AppError around a sentinel.
func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

// Newf is New with Sprintf formatting for the message.
func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// sentinelStatus maps each sentinel to its default HTTP status.
var sentinelStatus = []struct {
	err    error
	status int
}{
	{ErrAnalysisNotFound, http.StatusNotFound},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrLLMUnavailable, http.StatusServiceUnavailable},
	{ErrStoreUnavailable, http.StatusServiceUnavailable},
	{ErrTimeout, http.StatusServiceUnavailable},
}

// HTTPStatusCode resolves err to an HTTP status. An AppError's explicit code
// wins; otherwise the sentinel mapping applies, defaulting to 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	for _, m := range sentinelStatus {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
