// Copyright (c) 2026 JadeWellness. All rights reserved.

/*
Package uuid generates account and request identifiers.

Version 7 values sort by creation time, which keeps the PostgreSQL primary key
index append-only and makes in-memory listings stable.
*/
package uuid

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
func New() string {
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}

	return id.String()
}

// Valid reports whether s parses as a UUID. Postgres rejects malformed ids
// with a cast error, so stores check first and answer not-found instead.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
