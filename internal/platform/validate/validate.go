// Copyright (c) 2026 JadeWellness. All rights reserved.

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// # Architecture
//
// Handlers validate decoded bodies with it before calling a service. The wire
// contract often fixes a single sentence for a failed check, so [Validator.ErrAs]
// lets the caller choose the top-level message while keeping field details.
package validate

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"

	"github.com/jadewellness/backend/internal/platform/apperr"
)

// ErrInvalidJSON is returned when the request body cannot be decoded.
var ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")

const defaultMessage = "Validation failed"

// Validator collects field-level validation errors.
//
// The zero value is ready to use. It is not safe for concurrent use; build
// one per request.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	return v.Custom(field, strings.TrimSpace(value) == "", "This field is required")
}

// Email fails unless the value parses as a single RFC 5322 address.
//
// Empty values are left to [Validator.Required] so a missing email reports once.
func (v *Validator) Email(field, value string) *Validator {
	if value == "" {
		return v
	}
	_, err := mail.ParseAddress(value)
	return v.Custom(field, err != nil, "Must be a valid email address")
}

// Range fails if value is outside [low, high].
func (v *Validator) Range(field string, value, low, high int) *Validator {
	return v.Custom(field, value < low || value > high, fmt.Sprintf("Must be between %d and %d", low, high))
}

// OneOf fails if value is not one of allowed.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	return v.Custom(field, !slices.Contains(allowed, value), "Must be one of: "+strings.Join(allowed, ", "))
}

// Custom records message against field when failed is true.
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
	}
	return v
}

// Err returns a VALIDATION_ERROR carrying every failed rule, or nil.
func (v *Validator) Err() error {
	return v.ErrAs(defaultMessage)
}

// ErrAs is [Validator.Err] with a caller-chosen top-level message.
func (v *Validator) ErrAs(message string) error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError(message, v.errs...)
}

// RequiredError is a single-field validation error.
func RequiredError(field, message string) *apperr.AppError {
	return apperr.ValidationError(defaultMessage, apperr.FieldError{Field: field, Message: message})
}
