// Copyright (c) 2026 JadeWellness. All rights reserved.

package twofactor

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jadewellness/backend/internal/platform/ctxutil"
	"github.com/jadewellness/backend/internal/platform/middleware"
	requestutil "github.com/jadewellness/backend/internal/platform/request"
	"github.com/jadewellness/backend/internal/platform/respond"
)

// Handler implements the /2fa endpoints.
type Handler struct {
	service *Service
	guard   *middleware.Guard
	limiter func(http.Handler) http.Handler
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service, guard *middleware.Guard, limiter func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, guard: guard, limiter: limiter}
}

// Routes returns a [chi.Router] configured with the 2FA routes.
//
// # Endpoints
//   - POST /setup, /verify-setup, /disable, GET /status : authenticated
//   - POST /verify-login : rate limited, no bearer token (the session is not trusted yet)
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Group(func(r chi.Router) {
		r.Use(handler.guard.RequireAuthenticated)
		r.Post("/setup", handler.setup)
		r.Post("/verify-setup", handler.verifySetup)
		r.Post("/disable", handler.disable)
		r.Get("/status", handler.status)
	})

	router.With(handler.limiter).Post("/verify-login", handler.verifyLogin)

	return router
}

type tokenRequest struct {
	Token string `json:"token"`
}

type verifyLoginRequest struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

/*
Setup starts enrolment.

POST /api/2fa/setup

Response:
  - 200: {qrCode, secret, backupCodes, message}
  - 400: Already enabled
  - 403: Not a patient
*/
func (handler *Handler) setup(writer http.ResponseWriter, request *http.Request) {
	enrollment, err := handler.service.Setup(request.Context(), ctxutil.GetAccount(request.Context()))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, enrollment)
}

/*
VerifySetup enables 2FA with a first code.

POST /api/2fa/verify-setup

Response:
  - 200: Enabled
  - 400: Missing token, not set up or invalid token
*/
func (handler *Handler) verifySetup(writer http.ResponseWriter, request *http.Request) {
	var input tokenRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.VerifySetup(request.Context(), ctxutil.GetAccount(request.Context()), input.Token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, "Two-factor authentication enabled successfully")
}

/*
Disable turns 2FA off.

POST /api/2fa/disable

Response:
  - 200: Disabled
  - 400: Not enabled or invalid proof
*/
func (handler *Handler) disable(writer http.ResponseWriter, request *http.Request) {
	var input tokenRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Disable(request.Context(), ctxutil.GetAccount(request.Context()), input.Token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, "Two-factor authentication disabled successfully")
}

/*
VerifyLogin checks the second factor after a password login.

POST /api/2fa/verify-login

Response:
  - 200: Verified
  - 400: Missing fields, 2FA not enabled or invalid proof
*/
func (handler *Handler) verifyLogin(writer http.ResponseWriter, request *http.Request) {
	var input verifyLoginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.VerifyLogin(request.Context(), input.Email, input.Token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, "Two-factor authentication verified successfully")
}

// status reports the caller's 2FA state. GET /api/2fa/status
func (handler *Handler) status(writer http.ResponseWriter, request *http.Request) {
	status, err := handler.service.Status(request.Context(), ctxutil.GetAccount(request.Context()))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, status)
}
