// Copyright (c) 2026 JadeWellness. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jadewellness/backend/internal/platform/sec"
	"github.com/jadewellness/backend/internal/users/account"
)

// ErrAccountNotFound is returned when no store holds the requested account.
var ErrAccountNotFound = account.ErrNotFound

// Resolver maps token subjects and emails to accounts across the three stores.
//
// # Precedence
//
// Stores are probed patient, clinician, administrator. The first hit wins and
// its store decides the role; the role claim inside a token is never trusted
// for resolution.
type Resolver struct {
	directory account.Directory
}

// NewResolver creates a [Resolver].
func NewResolver(directory account.Directory) *Resolver {
	return &Resolver{directory: directory}
}

// Resolve finds the account named by the token subject.
func (resolver *Resolver) Resolve(context context.Context, claims *sec.AuthClaims) (*account.Account, error) {
	return resolver.first(func(store account.Store) (*account.Account, error) {
		return store.FindByID(context, claims.UserID)
	})
}

// ResolveAdministrator consults only the administrator store.
func (resolver *Resolver) ResolveAdministrator(context context.Context, claims *sec.AuthClaims) (*account.Account, error) {
	found, err := resolver.directory.Administrators.FindByID(context, claims.UserID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("auth_resolver_administrator_lookup_failed: %w", err)
	}
	return found, nil
}

// FindByEmail applies the same precedence to a case-insensitive email lookup.
func (resolver *Resolver) FindByEmail(context context.Context, email string) (*account.Account, error) {
	return resolver.first(func(store account.Store) (*account.Account, error) {
		return store.FindByEmail(context, email)
	})
}

func (resolver *Resolver) first(lookup func(account.Store) (*account.Account, error)) (*account.Account, error) {
	for _, store := range resolver.directory.Ordered() {
		found, err := lookup(store)
		if err == nil {
			found.Role = store.Role()
			return found, nil
		}
		if !errors.Is(err, account.ErrNotFound) {
			return nil, fmt.Errorf("auth_resolver_lookup_failed: %w", err)
		}
	}
	return nil, ErrAccountNotFound
}
