// Copyright (c) 2026 JadeWellness. All rights reserved.

/*
Package apperr defines the error type that crosses from services to HTTP.

Taxonomy:

  - ValidationError (400): missing or malformed input.
  - NotFound (404): account or resource absent.
  - Unauthorized (401): missing, invalid or expired token; bad credentials.
  - Forbidden (403): authenticated but wrong role.
  - Conflict (409, or 400 where the wire contract demands it): duplicates, already-enabled 2FA.
  - RateLimited (429): a limiter tripped.
  - Upstream: email / QR provider failures. Never rendered; callers log and swallow them.
  - Internal (500): unexpected store failures.

Every error that leaves the service layer should be an [AppError] so the
response body always carries a client-safe `message`.
*/
package apperr

import (
	"errors"
	"net/http"
)

// Machine-readable codes carried in the `code` field of error responses.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeUpstream     = "UPSTREAM_FAILURE"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError is a client-safe error with the HTTP status it renders as.
//
// Cause is for server-side logs. The responder only exposes it when debug
// output is switched on.
type AppError struct {
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	HTTPStatus int          `json:"-"`
	Cause      error        `json:"-"`
	Details    []FieldError `json:"details,omitempty"`
}

// FieldError is one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func newError(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// Error returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap exposes Cause to [errors.Is] and [errors.As].
func (e *AppError) Unwrap() error { return e.Cause }

// WithStatus returns a copy rendered with a different HTTP status.
//
// Used where the wire contract fixes a status other than the category default,
// e.g. duplicate registration is a Conflict answered with 400.
func (e *AppError) WithStatus(status int) *AppError {
	clone := *e
	clone.HTTPStatus = status
	return &clone
}

// # Client Errors (4xx)

// NotFound reports "<resource> not found".
func NotFound(resource string) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, resource+" not found")
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, msg)
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return newError(CodeForbidden, http.StatusForbidden, msg)
}

// Conflict creates a 409 [AppError] for duplicate or already-applied state.
func Conflict(msg string) *AppError {
	return newError(CodeConflict, http.StatusConflict, msg)
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	err := newError(CodeValidation, http.StatusBadRequest, msg)
	err.Details = details
	return err
}

// RateLimited creates a 429 [AppError]. The caller sets Retry-After.
func RateLimited(msg string) *AppError {
	return newError(CodeRateLimited, http.StatusTooManyRequests, msg)
}

// # Collaborator Errors

// Upstream wraps a failure of an outbound collaborator (SMTP relay, QR renderer).
//
// It carries a 502 status for completeness, but upstream failures never abort
// the triggering request: call sites log and continue.
func Upstream(provider string, cause error) *AppError {
	err := newError(CodeUpstream, http.StatusBadGateway, provider+" is unavailable")
	err.Cause = cause
	return err
}

// # Server Errors (5xx)

// Internal hides cause behind a generic 500 message.
func Internal(cause error) *AppError {
	err := newError(CodeInternal, http.StatusInternalServerError, "An unexpected error occurred")
	err.Cause = cause
	return err
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
