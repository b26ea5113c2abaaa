// Copyright (c) 2026 JadeWellness. All rights reserved.

/*
Package requestutil decodes request bodies and reads route parameters.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jadewellness/backend/internal/platform/validate"
)

// maxBodyBytes caps decoded request bodies. Identity payloads are small.
const maxBodyBytes = 1 << 20

/*
DecodeJSON decodes the request body into target.

An empty body leaves target untouched, so the handler's own required-field
check answers with its specific message.

Returns:
  - error: validate.ErrInvalidJSON if the body is malformed or too large, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBodyBytes)

	err := json.NewDecoder(request.Body).Decode(target)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return validate.ErrInvalidJSON
}

// Param returns the named chi route parameter.
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}
