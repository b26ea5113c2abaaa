// Copyright (c) 2026 JadeWellness. All rights reserved.

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Architecture
//
// Successful responses carry the resource itself as the JSON body, matching
// the contract the JadeWellness SPA already consumes. Lists add a pagination
// block. Errors always carry a client-safe `message` and a machine `code`.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/jadewellness/backend/internal/platform/apperr"
	"github.com/jadewellness/backend/internal/platform/ctxkey"
	"github.com/jadewellness/backend/pkg/pagination"
)

const contentTypeJSON = "application/json; charset=utf-8"

// exposeCauses adds the `detail` field to error bodies.
var exposeCauses atomic.Bool

// ExposeCauses toggles whether error causes are included in response bodies.
// Only DEBUG deployments turn it on.
func ExposeCauses(enabled bool) {
	exposeCauses.Store(enabled)
}

// PaginatedEnvelope is the body of list responses.
type PaginatedEnvelope struct {
	Data any             `json:"data"`
	Meta pagination.Meta `json:"meta"`
}

// MessageEnvelope is the body of acknowledgement-only responses.
type MessageEnvelope struct {
	Message string `json:"message"`
}

// ErrorEnvelope is the body of every error response.
type ErrorEnvelope struct {
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
	Detail  string              `json:"detail,omitempty"`
}

// JSON encodes payload with the given status.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", contentTypeJSON)
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes payload with 200.
func OK(writer http.ResponseWriter, payload any) {
	JSON(writer, http.StatusOK, payload)
}

// Created writes payload with 201.
func Created(writer http.ResponseWriter, payload any) {
	JSON(writer, http.StatusCreated, payload)
}

// Message writes `{"message": ...}` with the given status.
func Message(writer http.ResponseWriter, statusCode int, message string) {
	JSON(writer, statusCode, MessageEnvelope{Message: message})
}

// Paginated writes `{"data": ..., "meta": ...}` with 200.
func Paginated(writer http.ResponseWriter, data any, meta pagination.Meta) {
	OK(writer, PaginatedEnvelope{Data: data, Meta: meta})
}

/*
Error renders err as an [ErrorEnvelope].

Errors without an [*apperr.AppError] in their chain become a generic 500.
Every 5xx is logged with its cause and the request id; 4xx are left to the
request log line.
*/
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	appError := apperr.As(err)
	if appError == nil {
		appError = apperr.Internal(err)
	}

	if appError.HTTPStatus >= http.StatusInternalServerError {
		requestID, _ := request.Context().Value(ctxkey.KeyRequestID).(string)
		requestLogger(request).ErrorContext(request.Context(), "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", requestID),
			slog.Any("cause", err),
		)
	}

	envelope := ErrorEnvelope{
		Message: appError.Message,
		Code:    appError.Code,
		Details: appError.Details,
	}
	if exposeCauses.Load() && appError.Cause != nil {
		envelope.Detail = appError.Cause.Error()
	}

	JSON(writer, appError.HTTPStatus, envelope)
}

// requestLogger returns the per-request logger, or the default one outside the chain.
//
// The context key is read directly: ctxutil depends on the account package,
// whose handlers depend on this one.
func requestLogger(request *http.Request) *slog.Logger {
	if logger, ok := request.Context().Value(ctxkey.KeyLogger).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}
