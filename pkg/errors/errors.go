// Package errors defines the service's error taxonomy: sentinel errors for
// classification, AppError for HTTP rendering, and the mapping between them.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrAlreadyExists       = errors.New("resource already exists")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountInactive     = errors.New("account inactive")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrInvalidAccessToken  = errors.New("invalid access token")
	ErrRateLimited         = errors.New("rate limited")
	ErrInternal            = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// newError binds a client-facing code and message to the sentinel (or cause)
// used for classification.
func newError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

// InvalidCredentials creates the generic 401 login failure. Unknown email and
// wrong password must be indistinguishable, so both share this single code and
// message.
func InvalidCredentials() *AppError {
	return newError("INVALID_CREDENTIALS", "invalid email or password",
		http.StatusUnauthorized, ErrInvalidCredentials)
}

// AccountInactive creates the 403 error for disabled accounts. Inactivity is
// not a secret, so this is deliberately distinct from InvalidCredentials.
func AccountInactive() *AppError {
	return newError("ACCOUNT_INACTIVE", "account is inactive",
		http.StatusForbidden, ErrAccountInactive)
}

// InvalidRefreshToken creates the generic 401 refresh failure. Malformed,
// expired, and wrong-kind tokens, as well as missing or deactivated accounts,
// all render through this one error.
func InvalidRefreshToken() *AppError {
	return newError("INVALID_REFRESH_TOKEN", "invalid or expired refresh token",
		http.StatusUnauthorized, ErrInvalidRefreshToken)
}

// InvalidAccessToken creates the 401 error returned by protected-resource
// checks.
func InvalidAccessToken() *AppError {
	return newError("INVALID_ACCESS_TOKEN", "invalid or expired access token",
		http.StatusUnauthorized, ErrInvalidAccessToken)
}

// RateLimited creates the 429 error returned when a client exceeds its
// request budget.
func RateLimited() *AppError {
	return newError("RATE_LIMITED", "too many requests, please try again later",
		http.StatusTooManyRequests, ErrRateLimited)
}

// NotFound creates a 404 error.
func NotFound(resource string, id any) *AppError {
	return newError("NOT_FOUND", fmt.Sprintf("%s with id %v not found", resource, id),
		http.StatusNotFound, ErrNotFound)
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return newError("ALREADY_EXISTS", fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		http.StatusConflict, ErrAlreadyExists)
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return newError("INVALID_INPUT", message, http.StatusBadRequest, ErrInvalidInput)
}

// Internal creates a 500 error. The cause is kept for logs and errors.Is but
// never shown to clients.
func Internal(err error) *AppError {
	return newError("INTERNAL_ERROR", "an internal error occurred",
		http.StatusInternalServerError, err)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// sentinelStatus orders the sentinel-to-status mapping used when an error
// chain carries no AppError.
var sentinelStatus = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrInvalidRefreshToken, http.StatusUnauthorized},
	{ErrInvalidAccessToken, http.StatusUnauthorized},
	{ErrAccountInactive, http.StatusForbidden},
	{ErrRateLimited, http.StatusTooManyRequests},
}

// HTTPStatus returns the HTTP status code for the given error. An AppError
// anywhere in the chain wins; otherwise the sentinel decides, and anything
// unrecognized is a 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	for _, m := range sentinelStatus {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
