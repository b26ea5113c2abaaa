// Copyright (c) 2026 JadeWellness. All rights reserved.

package requestutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jadewellness/backend/internal/platform/validate"
)

func TestDecodeJSON(t *testing.T) {
	type login struct {
		Email string `json:"email"`
	}

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{"valid", `{"email":"a@example.com"}`, "a@example.com", nil},
		{"empty_body", "", "", nil},
		{"malformed", `{"email":`, "", validate.ErrInvalidJSON},
		{"too_large", `{"email":"` + strings.Repeat("a", maxBodyBytes) + `"}`, "", validate.ErrInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var target login

			err := DecodeJSON(httptest.NewRecorder(), request, &target)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, target.Email)
		})
	}
}
