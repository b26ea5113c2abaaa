// Copyright (c) 2026 JadeWellness. All rights reserved.

package sec

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when asked to hash an empty secret.
var ErrEmptyPassword = errors.New("sec: empty password")

// HashPassword hashes a plain-text password using the bcrypt algorithm.
func HashPassword(plainTextPassword string) (string, error) {
	if plainTextPassword == "" {
		return "", ErrEmptyPassword
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// IsHashed reports whether stored is a well-formed bcrypt digest. A legacy
// plaintext that merely starts with "$2" is not one.
func IsHashed(stored string) bool {
	_, err := bcrypt.Cost([]byte(stored))
	return err == nil
}

/*
VerifyPassword compares a plain-text password with its stored form.

Stored values that are not bcrypt digests are legacy records seeded
with the plaintext itself; they are compared in constant time and, on a
match, legacy is reported so the caller can rehash before the next read.

Returns:
  - ok: whether the password matched
  - legacy: whether the match came from the plaintext branch
*/
func VerifyPassword(plainTextPassword, stored string) (ok bool, legacy bool) {
	if plainTextPassword == "" || stored == "" {
		return false, false
	}

	if IsHashed(stored) {
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plainTextPassword))
		return err == nil, false
	}

	if subtle.ConstantTimeCompare([]byte(plainTextPassword), []byte(stored)) == 1 {
		return true, true
	}
	return false, false
}
