// Copyright (c) 2026 JadeWellness. All rights reserved.

// Package dberr classifies driver errors from the account stores.
//
// Both supported backends (MongoDB and PostgreSQL) report "no row" and
// "unique violation" in their own way; stores use these predicates so the
// mapping to domain errors stays in one place.
package dberr

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jadewellness/backend/internal/platform/apperr"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// IsNotFound reports whether err means the queried record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, mongo.ErrNoDocuments)
}

// IsDuplicate reports whether err is a unique-index violation.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return true
	}

	return mongo.IsDuplicateKeyError(err)
}

// Wrap inspects a database error and maps it onto the caller's domain errors.
//
// notFound and duplicate are returned as-is for the matching classes; any other
// failure becomes an Internal error carrying the action for the logs.
func Wrap(err error, action string, notFound, duplicate error) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if notFound != nil && IsNotFound(err) {
		return notFound
	}

	// 2. Unique violations
	if duplicate != nil && IsDuplicate(err) {
		return duplicate
	}

	// 3. Unknown errors become Internal Server Errors
	return apperr.Internal(&actionError{action: action, err: err})
}

type actionError struct {
	action string
	err    error
}

func (e *actionError) Error() string { return e.action + ": " + e.err.Error() }
func (e *actionError) Unwrap() error { return e.err }
