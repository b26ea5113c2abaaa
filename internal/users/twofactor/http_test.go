// Copyright (c) 2026 JadeWellness. All rights reserved.

package twofactor

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadewellness/backend/internal/platform/middleware"
	"github.com/jadewellness/backend/internal/platform/sec"
	"github.com/jadewellness/backend/internal/users/account"
)

// storeResolver resolves tokens against the single patient store of the fixture.
type storeResolver struct{ store account.Store }

func (resolver storeResolver) Resolve(ctx context.Context, claims *sec.AuthClaims) (*account.Account, error) {
	return resolver.store.FindByID(ctx, claims.UserID)
}

func (storeResolver) ResolveAdministrator(context.Context, *sec.AuthClaims) (*account.Account, error) {
	return nil, account.ErrNotFound
}

func post(t *testing.T, handler http.Handler, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var payload bytes.Buffer
	require.NoError(t, json.NewEncoder(&payload).Encode(body))
	request := httptest.NewRequest(http.MethodPost, path, &payload)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	decoded := map[string]any{}
	_ = json.Unmarshal(recorder.Body.Bytes(), &decoded)
	return recorder.Code, decoded
}

/*
TestHTTP_EnrolAndVerifyLogin enrols through the API and completes a second-factor login.
*/
func TestHTTP_EnrolAndVerifyLogin(t *testing.T) {
	f := newFixture(t, PNGRenderer{})

	tokens, err := sec.NewTokenService("twofactor-test-secret", "jadewellness")
	require.NoError(t, err)
	token, err := tokens.Issue(f.patient.ID, sec.RolePatient, f.patient.Name, f.patient.Email, time.Hour)
	require.NoError(t, err)

	guard := middleware.NewGuard(tokens, storeResolver{store: f.store})
	router := chi.NewRouter()
	router.Mount("/api/2fa", NewHandler(f.service, guard, func(next http.Handler) http.Handler { return next }).Routes())

	// 1. Setup requires a bearer token
	code, _ := post(t, router, "/api/2fa/setup", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := post(t, router, "/api/2fa/setup", token, map[string]any{})
	require.Equal(t, http.StatusOK, code)
	secret := body["secret"].(string)
	backupCodes := body["backupCodes"].([]any)
	require.Len(t, backupCodes, BackupCodeCount)

	// 2. Verify setup
	code, body = post(t, router, "/api/2fa/verify-setup", token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Token is required", body["message"])

	code, body = post(t, router, "/api/2fa/verify-setup", token, map[string]any{"token": codeAt(t, secret, stepAligned)})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Two-factor authentication enabled successfully", body["message"])

	// 3. Verify login without a bearer token
	code, body = post(t, router, "/api/2fa/verify-login", "", map[string]any{"email": "pat@example.com"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Token and email are required", body["message"])

	code, body = post(t, router, "/api/2fa/verify-login", "", map[string]any{
		"email": "pat@example.com", "token": backupCodes[0],
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Two-factor authentication verified successfully", body["message"])

	code, body = post(t, router, "/api/2fa/verify-login", "", map[string]any{
		"email": "pat@example.com", "token": backupCodes[0],
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid token or backup code", body["message"])

	// 4. Status
	request := httptest.NewRequest(http.MethodGet, "/api/2fa/status", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"twoFactorEnabled":true,"backupCodesCount":9}`, recorder.Body.String())

	// 5. Disable with TOTP
	code, body = post(t, router, "/api/2fa/disable", token, map[string]any{"token": codeAt(t, secret, stepAligned)})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Two-factor authentication disabled successfully", body["message"])
}
