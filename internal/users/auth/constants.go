// Copyright (c) 2026 JadeWellness. All rights reserved.

package auth

import "time"

// # Authentication Constraints

const (
	// SessionTokenTTL is the lifetime of a login or registration bearer token.
	// Tokens are stateless, so this is also the worst-case exposure of a leaked one.
	SessionTokenTTL = 30 * 24 * time.Hour

	// ResetTokenTTL is the lifetime of a password reset link.
	ResetTokenTTL = 1 * time.Hour

	// MinPasswordLength applies to changed and reset passwords.
	MinPasswordLength = 6

	// resetPath is appended to the frontend origin to build reset links.
	resetPath = "/reset-password/"
)
