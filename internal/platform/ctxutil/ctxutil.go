// Copyright (c) 2026 JadeWellness. All rights reserved.

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/jadewellness/backend/internal/platform/ctxkey"
	"github.com/jadewellness/backend/internal/platform/sec"
	"github.com/jadewellness/backend/internal/users/account"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}

// # Identity & Access

// WithClaims returns a new context with the verified bearer claims attached.
func WithClaims(ctx context.Context, claims *sec.AuthClaims) context.Context {
	return context.WithValue(ctx, ctxkey.KeyClaims, claims)
}

// GetClaims retrieves the [*sec.AuthClaims] from the [context.Context].
func GetClaims(ctx context.Context) *sec.AuthClaims {
	claims, _ := ctx.Value(ctxkey.KeyClaims).(*sec.AuthClaims)
	return claims
}

// WithAccount returns a new context with the resolved account attached.
func WithAccount(ctx context.Context, principal *account.Account) context.Context {
	return context.WithValue(ctx, ctxkey.KeyAccount, principal)
}

// GetAccount retrieves the resolved [*account.Account], or nil for anonymous requests.
func GetAccount(ctx context.Context) *account.Account {
	principal, _ := ctx.Value(ctxkey.KeyAccount).(*account.Account)
	return principal
}
