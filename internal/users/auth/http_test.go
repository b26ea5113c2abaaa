// Copyright (c) 2026 JadeWellness. All rights reserved.

package auth

import (
	"bytes"
	"encoding/json"
	"log/slog"
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

func newRouter(t *testing.T, f *fixture, limiter func(http.Handler) http.Handler) http.Handler {
	t.Helper()

	accounts := account.NewService(f.directory, f.dispatcher, slog.New(slog.DiscardHandler))
	guard := middleware.NewGuard(f.tokens, f.resolver)

	router := chi.NewRouter()
	router.Mount("/api/auth", NewHandler(f.service, accounts, guard, limiter).Routes())
	return router
}

func passThrough(next http.Handler) http.Handler { return next }

func call(t *testing.T, handler http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}

	request := httptest.NewRequest(method, path, &payload)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	decoded := map[string]any{}
	_ = json.Unmarshal(recorder.Body.Bytes(), &decoded)
	return recorder, decoded
}

/*
TestHTTP_PatientJourney registers, logs in and exercises every self-service route.
*/
func TestHTTP_PatientJourney(t *testing.T) {
	f := newFixture(t)
	router := newRouter(t, f, passThrough)

	// 1. Register
	recorder, body := call(t, router, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Mia Chen", "email": "mia@example.com", "password": "secret1",
		"birthdate": "1990-05-01", "gender": "female",
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "patient", user["role"])
	assert.NotContains(t, user, "passwordHash")

	// 2. Login
	recorder, body = call(t, router, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "MIA@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, false, body["twoFactorRequired"])
	token := body["token"].(string)

	// 3. Profile
	recorder, body = call(t, router, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "mia@example.com", body["email"])

	recorder, body = call(t, router, http.MethodPut, "/api/auth/profile", token, map[string]any{
		"phone": "555-0100", "address": "1 Jade St",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Profile updated successfully", body["message"])

	// 4. Change password
	recorder, body = call(t, router, http.MethodPut, "/api/auth/change-password", token, map[string]any{
		"currentPassword": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "Current password and new password are required", body["message"])

	recorder, body = call(t, router, http.MethodPut, "/api/auth/change-password", token, map[string]any{
		"currentPassword": "secret1", "newPassword": "secret2",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Password changed successfully", body["message"])

	// 5. Login history holds the single successful login
	recorder = httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/api/auth/login-history", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusOK, recorder.Code)

	var history []account.LoginEntry
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)

	// 6. Export
	recorder, body = call(t, router, http.MethodGet, "/api/auth/export-data", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, body, "profile")
	assert.Contains(t, body, "exportDate")
	assert.Equal(t, []any{"profile", "login_history"}, body["dataTypes"])
}

/*
TestHTTP_LoginValidation checks the status codes and messages of failed logins.
*/
func TestHTTP_LoginValidation(t *testing.T) {
	f := newFixture(t)
	router := newRouter(t, f, passThrough)

	hash, err := sec.HashPassword("secret1")
	require.NoError(t, err)
	f.plant(t, f.directory.Patients, &account.Account{Email: "a@example.com", Name: "A", PasswordHash: hash})

	tests := []struct {
		name    string
		body    any
		status  int
		message string
	}{
		{"missing_password", map[string]any{"email": "a@example.com"}, http.StatusBadRequest, "Please provide email and password"},
		{"unknown_user", map[string]any{"email": "z@example.com", "password": "x"}, http.StatusNotFound, "User not found"},
		{"bad_password", map[string]any{"email": "a@example.com", "password": "x"}, http.StatusUnauthorized, "Invalid credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder, body := call(t, router, http.MethodPost, "/api/auth/login", "", tt.body)
			assert.Equal(t, tt.status, recorder.Code)
			assert.Equal(t, tt.message, body["message"])
		})
	}

	recorder, body := call(t, router, http.MethodPost, "/api/auth/register", "", map[string]any{"email": "b@example.com"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "Please provide name, email, and password", body["message"])
}

/*
TestHTTP_RoleRestrictedRoutes keeps login history and export patient-only.
*/
func TestHTTP_RoleRestrictedRoutes(t *testing.T) {
	f := newFixture(t)
	router := newRouter(t, f, passThrough)

	admin := f.plant(t, f.directory.Administrators, &account.Account{Email: "root@example.com", Name: "Root", PasswordHash: "x"})
	token, err := f.tokens.Issue(admin.ID, sec.RoleAdministrator, admin.Name, admin.Email, time.Hour)
	require.NoError(t, err)

	recorder, body := call(t, router, http.MethodGet, "/api/auth/login-history", token, nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Equal(t, "Not authorized as patient", body["message"])

	recorder, _ = call(t, router, http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	// Administrators still reach their own profile
	recorder, body = call(t, router, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "administrator", body["role"])
}

/*
TestHTTP_AuthLimiter rejects the 21st credential request from one client.
*/
func TestHTTP_AuthLimiter(t *testing.T) {
	f := newFixture(t)
	limiter := middleware.NewAuthLimiter(middleware.NewMemoryWindowCounter(), 20, 15*time.Minute)
	router := newRouter(t, f, limiter.Handler)

	for i := 0; i < 20; i++ {
		recorder, _ := call(t, router, http.MethodPost, "/api/auth/login", "", map[string]any{})
		require.Equal(t, http.StatusBadRequest, recorder.Code)
	}

	recorder, body := call(t, router, http.MethodPost, "/api/auth/login", "", map[string]any{})
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "Too many authentication attempts, please try again later.", body["message"])
}
