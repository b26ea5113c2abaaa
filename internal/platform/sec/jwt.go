// Copyright (c) 2026 JadeWellness. All rights reserved.

// Package sec provides cryptographic primitives and bearer-token management.
//
// # Architecture
//
// This package isolates security-sensitive code (password hashing, token
// signing, randomness) from the identity services that consume it.
//
// # Limitations
//
// Tokens are stateless. There is no revocation list: a leaked token stays
// valid until it expires, and logout is a client-side deletion.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PurposeReset marks a subject-only token issued by the forgot-password flow.
const PurposeReset = "reset"

var (
	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid is returned for malformed, tampered or wrongly signed tokens.
	ErrTokenInvalid = errors.New("sec: token invalid")
)

// AuthClaims represents the payload embedded inside a bearer token.
//
// Session tokens carry the full identity; reset tokens carry only [UserID]
// and Purpose.
type AuthClaims struct {
	jwt.RegisteredClaims

	UserID  string `json:"id"`
	Role    Role   `json:"role,omitempty"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}

// IsReset reports whether the claims belong to a password-reset token.
func (c *AuthClaims) IsReset() bool {
	return c.Purpose == PurposeReset
}

// TokenService signs and verifies HS256 tokens with a server-held secret.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("sec: jwt secret must not be empty")
	}
	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// WithClock replaces the time source. Used by tests to pin issue and verify times.
func (service *TokenService) WithClock(now func() time.Time) *TokenService {
	service.now = now
	return service
}

// Issue creates a signed session token for an account.
//
// A ttl of zero produces a token that is already expired when verified.
func (service *TokenService) Issue(userID string, role Role, name, email string, ttl time.Duration) (string, error) {
	return service.sign(AuthClaims{
		RegisteredClaims: service.registered(userID, ttl),
		UserID:           userID,
		Role:             role,
		Name:             name,
		Email:            email,
	})
}

// IssueReset creates a subject-only token for the password-reset link.
func (service *TokenService) IssueReset(userID string, ttl time.Duration) (string, error) {
	return service.sign(AuthClaims{
		RegisteredClaims: service.registered(userID, ttl),
		UserID:           userID,
		Purpose:          PurposeReset,
	})
}

// Verify checks the signature and expiry of a token string.
//
// Failures are reported as [ErrTokenExpired] or [ErrTokenInvalid], wrapped with
// the parser's own error for logging.
func (service *TokenService) Verify(tokenString string) (*AuthClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(service.now),
		jwt.WithExpirationRequired(),
	}
	if service.issuer != "" {
		options = append(options, jwt.WithIssuer(service.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		return service.secret, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	// Reset tokens carry no role; session tokens must name a known one.
	if !claims.IsReset() && !claims.Role.Valid() {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (service *TokenService) registered(userID string, ttl time.Duration) jwt.RegisteredClaims {
	issuedAt := service.now()
	return jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    service.issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}
}

func (service *TokenService) sign(claims AuthClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}
	return signedToken, nil
}
