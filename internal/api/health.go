// Copyright (c) 2026 JadeWellness. All rights reserved.

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jadewellness/backend/internal/platform/constants"
	"github.com/jadewellness/backend/internal/platform/respond"
)

// Check probes one dependency. A nil error means healthy.
type Check func(context context.Context) error

// HealthDependencies holds the named dependency checkers for the /ready endpoint.
//
// Only configured dependencies are listed: the memory driver has no store
// check and Redis is optional.
type HealthDependencies map[string]Check

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health (Liveness probe).
func (handler *healthHandler) liveness(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string]string{
		constants.FieldStatus:  "ok",
		constants.FieldApp:     constants.AppName,
		constants.FieldVersion: constants.AppVersion,
	})
}

// readiness handles GET /ready (Readiness probe).
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	results := make([]checkResult, 0, len(handler.dependencies))
	ready := true

	for name, check := range handler.dependencies {
		ctx, cancel := context.WithTimeout(request.Context(), constants.DependencyCheckTimeout)
		err := check(ctx)
		cancel()

		result := checkResult{Name: name, IsOK: err == nil}
		if err != nil {
			result.Error = err.Error()
			ready = false
			handler.logger.Error("readiness_check_failed", slog.String("dependency", name), slog.Any("error", err))
		}
		results = append(results, result)
	}

	status, httpStatus := "ready", http.StatusOK
	if !ready {
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	}

	respond.JSON(writer, httpStatus, map[string]any{
		constants.FieldStatus: status,
		constants.FieldChecks: results,
	})
}
