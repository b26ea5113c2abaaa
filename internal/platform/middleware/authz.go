// Copyright (c) 2026 JadeWellness. All rights reserved.

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jadewellness/backend/internal/platform/apperr"
	"github.com/jadewellness/backend/internal/platform/constants"
	"github.com/jadewellness/backend/internal/platform/ctxutil"
	"github.com/jadewellness/backend/internal/platform/respond"
	"github.com/jadewellness/backend/internal/platform/sec"
	"github.com/jadewellness/backend/internal/users/account"
)

// Guard failure messages. Clients match on them.
var (
	errNoToken            = apperr.Unauthorized("Not authorized, no token")
	errTokenFailed        = apperr.Unauthorized("Not authorized, token failed")
	errUserNotFound       = apperr.Unauthorized("Not authorized, user not found")
	errAdministratorGuard = apperr.Unauthorized("Not authorized, admin not found")
)

// TokenVerifier verifies bearer tokens. [*sec.TokenService] implements it.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the token service
// implementation, allowing tests to inject fixed claims.
type TokenVerifier interface {
	Verify(tokenString string) (*sec.AuthClaims, error)
}

// AccountResolver maps verified claims to a stored account.
//
// Both methods return [account.ErrNotFound] (possibly wrapped) on a miss; any
// other error is a storage failure.
type AccountResolver interface {
	Resolve(context context.Context, claims *sec.AuthClaims) (*account.Account, error)
	ResolveAdministrator(context context.Context, claims *sec.AuthClaims) (*account.Account, error)
}

// Guard builds the bearer-token route guards.
type Guard struct {
	verifier TokenVerifier
	resolver AccountResolver
}

// NewGuard creates a [Guard].
func NewGuard(verifier TokenVerifier, resolver AccountResolver) *Guard {
	return &Guard{verifier: verifier, resolver: resolver}
}

/*
RequireAuthenticated admits requests carrying a valid session token of any stored account.

# Flow
 1. Check for 'Authorization: Bearer <token>' header, else 401 "no token".
 2. Verify the token (signature, algorithm, expiry), else 401 "token failed".
 3. Resolve the account in role precedence, else 401 "user not found".
 4. Inject claims, account and an enriched logger into the request context.
*/
func (guard *Guard) RequireAuthenticated(next http.Handler) http.Handler {
	return guard.protect(next, guard.resolver.Resolve, errUserNotFound)
}

// RequireAdministrator is [Guard.RequireAuthenticated] resolved against the
// administrator store only. It fails closed: a patient or clinician token is
// answered as "admin not found".
func (guard *Guard) RequireAdministrator(next http.Handler) http.Handler {
	return guard.protect(next, guard.resolver.ResolveAdministrator, errAdministratorGuard)
}

// RequireRole blocks requests whose resolved account has none of the given roles.
//
// # Usage
//
// Must be registered AFTER [Guard.RequireAuthenticated].
func (guard *Guard) RequireRole(roles ...sec.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			principal := ctxutil.GetAccount(request.Context())
			if principal == nil {
				respond.Error(writer, request, errNoToken)
				return
			}

			if !principal.Role.In(roles...) {
				respond.Error(writer, request, apperr.Forbidden("Not authorized as "+roles[0].String()))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

type resolveFunc func(context context.Context, claims *sec.AuthClaims) (*account.Account, error)

func (guard *Guard) protect(next http.Handler, resolve resolveFunc, notFound error) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		logger := ctxutil.GetLogger(request.Context())

		// ── 1. Header Extraction ──────────────────────────────────────────
		token, ok := bearerToken(request)
		if !ok {
			respond.Error(writer, request, errNoToken)
			return
		}

		// ── 2. Token Verification ─────────────────────────────────────────
		claims, err := guard.verifier.Verify(token)
		if err != nil {
			reason := "invalid"
			if errors.Is(err, sec.ErrTokenExpired) {
				reason = "expired"
			}
			logger.Info("auth_token_rejected", slog.String("reason", reason))
			respond.Error(writer, request, errTokenFailed)
			return
		}
		if claims.IsReset() {
			logger.Info("auth_token_rejected", slog.String("reason", "reset_token"))
			respond.Error(writer, request, errTokenFailed)
			return
		}

		// ── 3. Account Resolution ─────────────────────────────────────────
		principal, err := resolve(request.Context(), claims)
		if err != nil {
			if errors.Is(err, account.ErrNotFound) {
				respond.Error(writer, request, notFound)
				return
			}
			respond.Error(writer, request, err)
			return
		}

		// ── 4. Context Injection ──────────────────────────────────────────
		enriched := logger.With(
			slog.String("user_id", principal.ID),
			slog.String("role", principal.Role.String()),
		)
		if sink, ok := writer.(loggerSink); ok {
			sink.setLogger(enriched)
		}

		ctx := ctxutil.WithClaims(request.Context(), claims)
		ctx = ctxutil.WithAccount(ctx, principal)
		ctx = ctxutil.WithLogger(ctx, enriched)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// bearerToken extracts the token of an 'Authorization: Bearer <token>' header.
func bearerToken(request *http.Request) (string, bool) {
	header := request.Header.Get(constants.HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}
