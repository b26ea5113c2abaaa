// Copyright (c) 2026 JadeWellness. All rights reserved.

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadewellness/backend/internal/platform/apperr"
)

/*
TestAppError_WithStatus verifies the copy keeps code and message but not status.
*/
func TestAppError_WithStatus(t *testing.T) {
	original := apperr.Conflict("User already exists")
	rendered := original.WithStatus(http.StatusBadRequest)

	assert.Equal(t, http.StatusConflict, original.HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, rendered.HTTPStatus)
	assert.Equal(t, apperr.CodeConflict, rendered.Code)
	assert.Equal(t, original.Message, rendered.Message)
}

/*
TestAppError_As finds the application error through fmt.Errorf wrapping.
*/
func TestAppError_As(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := fmt.Errorf("account_service_lookup_failed: %w", apperr.Internal(cause))

	ae := apperr.As(wrapped)
	require.NotNil(t, ae)
	assert.Equal(t, http.StatusInternalServerError, ae.HTTPStatus)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, apperr.CodeInternal, ae.Code)
	assert.Nil(t, apperr.As(errors.New("plain")))
}

func TestAppError_Upstream(t *testing.T) {
	err := apperr.Upstream("Email relay", errors.New("dial tcp: timeout"))

	assert.Equal(t, apperr.CodeUpstream, err.Code)
	assert.Equal(t, "Email relay is unavailable", err.Error())
	assert.NotNil(t, errors.Unwrap(err))
}

func TestRateLimited(t *testing.T) {
	err := apperr.RateLimited("Too many requests from this IP, please try again later.")

	assert.Equal(t, http.StatusTooManyRequests, err.HTTPStatus)
	assert.Equal(t, "Too many requests from this IP, please try again later.", err.Message)
}
