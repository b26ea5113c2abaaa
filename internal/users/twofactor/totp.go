// Copyright (c) 2026 JadeWellness. All rights reserved.

/*
Package twofactor implements TOTP second-factor enrolment and verification for patients.

# State Machine

	disabled --Setup--> setup-initiated --VerifySetup--> enabled --Disable--> disabled

Setup stores a fresh secret and ten backup codes with enabled=false. Re-running
Setup before verification replaces them. Only patients carry 2FA state.

# Proofs

A six-character proof is checked as a TOTP code; any other length is treated as
a backup code, which is consumed atomically by the patient store.
*/
package twofactor

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// # TOTP Parameters

const (
	// Issuer is shown by authenticator apps next to the account.
	Issuer = "JadeWellness"

	// Period is the TOTP time step.
	Period = 30

	// Skew is how many steps either side of now are accepted.
	Skew = 2

	// secretSize is the raw secret length in bytes (160 bits).
	secretSize = 20

	// codeLength is the length of a TOTP proof; other lengths are backup codes.
	codeLength = 6
)

var validateOpts = totp.ValidateOpts{
	Period:    Period,
	Skew:      Skew,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// newKey generates a secret bound to email and its otpauth:// provisioning URI.
func newKey(email string) (*otp.Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      Issuer,
		AccountName: fmt.Sprintf("%s (%s)", Issuer, email),
		Period:      Period,
		SecretSize:  secretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("twofactor_secret_generation_failed: %w", err)
	}
	return key, nil
}

// validCode reports whether code is a valid TOTP for secret at now.
// Malformed secrets or codes are a mismatch, never an error.
func validCode(secret, code string, now time.Time) bool {
	if secret == "" || len(code) != codeLength {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, now, validateOpts)
	return err == nil && ok
}
