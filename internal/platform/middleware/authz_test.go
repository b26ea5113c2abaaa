// Copyright (c) 2026 JadeWellness. All rights reserved.

package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadewellness/backend/internal/platform/ctxutil"
	"github.com/jadewellness/backend/internal/platform/middleware"
	"github.com/jadewellness/backend/internal/platform/sec"
	"github.com/jadewellness/backend/internal/users/account"
)

// fakeResolver serves accounts from fixed maps.
type fakeResolver struct {
	accounts       map[string]*account.Account
	administrators map[string]*account.Account
	err            error
}

func (resolver *fakeResolver) Resolve(_ context.Context, claims *sec.AuthClaims) (*account.Account, error) {
	if resolver.err != nil {
		return nil, resolver.err
	}
	if found, ok := resolver.accounts[claims.UserID]; ok {
		return found, nil
	}
	return nil, account.ErrNotFound
}

func (resolver *fakeResolver) ResolveAdministrator(_ context.Context, claims *sec.AuthClaims) (*account.Account, error) {
	if found, ok := resolver.administrators[claims.UserID]; ok {
		return found, nil
	}
	return nil, account.ErrNotFound
}

func newGuardFixture(t *testing.T) (*middleware.Guard, *sec.TokenService, *fakeResolver) {
	t.Helper()

	tokens, err := sec.NewTokenService("guard-test-secret", "jadewellness")
	require.NoError(t, err)

	patient := &account.Account{ID: "p1", Name: "Pat", Role: sec.RolePatient}
	admin := &account.Account{ID: "a1", Name: "Ada", Role: sec.RoleAdministrator}
	resolver := &fakeResolver{
		accounts:       map[string]*account.Account{"p1": patient, "a1": admin},
		administrators: map[string]*account.Account{"a1": admin},
	}

	return middleware.NewGuard(tokens, resolver), tokens, resolver
}

// echoPrincipal writes the resolved account id so tests can see what the guard attached.
var echoPrincipal = http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
	principal := ctxutil.GetAccount(request.Context())
	claims := ctxutil.GetClaims(request.Context())
	_ = json.NewEncoder(writer).Encode(map[string]string{
		"id":     principal.ID,
		"role":   principal.Role.String(),
		"claims": claims.UserID,
	})
})

func serve(handler http.Handler, authorization string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		request.Header.Set("Authorization", authorization)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func message(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	text, _ := body["message"].(string)
	return text
}

/*
TestGuard_RequireAuthenticated covers every rejection branch and the happy path.
*/
func TestGuard_RequireAuthenticated(t *testing.T) {
	guard, tokens, _ := newGuardFixture(t)
	handler := guard.RequireAuthenticated(echoPrincipal)

	valid, err := tokens.Issue("p1", sec.RolePatient, "Pat", "pat@example.com", time.Hour)
	require.NoError(t, err)
	expired, err := tokens.Issue("p1", sec.RolePatient, "Pat", "pat@example.com", 0)
	require.NoError(t, err)
	ghost, err := tokens.Issue("nobody", sec.RolePatient, "", "", time.Hour)
	require.NoError(t, err)
	reset, err := tokens.IssueReset("p1", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name          string
		authorization string
		status        int
		message       string
	}{
		{"missing_header", "", http.StatusUnauthorized, "Not authorized, no token"},
		{"wrong_scheme", "Basic abc", http.StatusUnauthorized, "Not authorized, no token"},
		{"empty_token", "Bearer ", http.StatusUnauthorized, "Not authorized, no token"},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized, "Not authorized, token failed"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "Not authorized, token failed"},
		{"reset_token", "Bearer " + reset, http.StatusUnauthorized, "Not authorized, token failed"},
		{"unknown_account", "Bearer " + ghost, http.StatusUnauthorized, "Not authorized, user not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := serve(handler, tt.authorization)
			assert.Equal(t, tt.status, recorder.Code)
			assert.Equal(t, tt.message, message(t, recorder))
		})
	}

	t.Run("valid", func(t *testing.T) {
		recorder := serve(handler, "Bearer "+valid)
		require.Equal(t, http.StatusOK, recorder.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		assert.Equal(t, "p1", body["id"])
		assert.Equal(t, "patient", body["role"])
		assert.Equal(t, "p1", body["claims"])
	})

	t.Run("lowercase_scheme", func(t *testing.T) {
		recorder := serve(handler, "bearer "+valid)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

/*
TestGuard_StoreFailure verifies that a storage error is a 500, not a 401.
*/
func TestGuard_StoreFailure(t *testing.T) {
	guard, tokens, resolver := newGuardFixture(t)
	resolver.err = errors.New("connection refused")

	token, err := tokens.Issue("p1", sec.RolePatient, "Pat", "pat@example.com", time.Hour)
	require.NoError(t, err)

	recorder := serve(guard.RequireAuthenticated(echoPrincipal), "Bearer "+token)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

/*
TestGuard_RequireAdministrator ensures non-administrators fail closed.
*/
func TestGuard_RequireAdministrator(t *testing.T) {
	guard, tokens, _ := newGuardFixture(t)
	handler := guard.RequireAdministrator(echoPrincipal)

	patientToken, err := tokens.Issue("p1", sec.RolePatient, "Pat", "pat@example.com", time.Hour)
	require.NoError(t, err)
	adminToken, err := tokens.Issue("a1", sec.RoleAdministrator, "Ada", "ada@example.com", time.Hour)
	require.NoError(t, err)

	recorder := serve(handler, "Bearer "+patientToken)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "Not authorized, admin not found", message(t, recorder))

	recorder = serve(handler, "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestGuard_RequireRole composes the role check after authentication.
*/
func TestGuard_RequireRole(t *testing.T) {
	guard, tokens, _ := newGuardFixture(t)
	handler := guard.RequireAuthenticated(guard.RequireRole(sec.RolePatient)(echoPrincipal))

	patientToken, err := tokens.Issue("p1", sec.RolePatient, "Pat", "pat@example.com", time.Hour)
	require.NoError(t, err)
	adminToken, err := tokens.Issue("a1", sec.RoleAdministrator, "Ada", "ada@example.com", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, serve(handler, "Bearer "+patientToken).Code)

	recorder := serve(handler, "Bearer "+adminToken)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Equal(t, "Not authorized as patient", message(t, recorder))

	// Without the authentication guard in front there is no principal.
	bare := guard.RequireRole(sec.RolePatient)(echoPrincipal)
	assert.Equal(t, http.StatusUnauthorized, serve(bare, "").Code)
}
