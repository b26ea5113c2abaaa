// Copyright (c) 2026 JadeWellness. All rights reserved.

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/jadewellness/backend/internal/platform/request"
	"github.com/jadewellness/backend/internal/platform/respond"
	"github.com/jadewellness/backend/internal/platform/validate"
	"github.com/jadewellness/backend/pkg/pagination"
)

// Handler implements the administrator account-management endpoints.
//
// # Security
//
// Routes carries no guard of its own; the caller mounts it behind the
// administrator guard.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns a [chi.Router] configured with the admin endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/users", handler.listUsers)
	router.Delete("/users/{id}", handler.deleteUser)
	router.Post("/administrators", handler.createAdministrator)
	router.Post("/clinicians", handler.createClinician)

	return router
}

type createAdministratorRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createClinicianRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Specialty      string `json:"specialty"`
	Experience     int    `json:"experience"`
	Qualifications string `json:"qualifications"`
}

/*
GET /api/admin/users.

Description: Lists patient accounts, newest first.

Request:
  - Query: page, limit

Response:
  - 200: {data, meta}
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	patients, total, err := handler.accountService.ListPatients(request.Context(), params.Offset(), params.Limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, patients, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
DELETE /api/admin/users/{id}.

Response:
  - 200: User deleted
  - 404: User not found
*/
func (handler *Handler) deleteUser(writer http.ResponseWriter, request *http.Request) {
	if err := handler.accountService.DeletePatient(request.Context(), requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, "User deleted")
}

/*
POST /api/admin/administrators.

Response:
  - 201: The new administrator
  - 400: Missing fields
  - 409: Email already registered as an administrator
*/
func (handler *Handler) createAdministrator(writer http.ResponseWriter, request *http.Request) {
	var input createAdministratorRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("name", input.Name).
		Required("email", input.Email).
		Required("password", input.Password)
	if err := validator.ErrAs("Please provide name, email, and password"); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := validator.Email("email", input.Email).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	admin, err := handler.accountService.CreateAdministrator(request.Context(), CreateAccountInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, admin)
}

/*
POST /api/admin/clinicians.

Description: Creates a clinician with a generated temporary password, which is
emailed to the clinician and returned once in the response.

Response:
  - 201: {user, tempPassword}
  - 400: Missing fields
  - 409: Email already registered as a clinician
*/
func (handler *Handler) createClinician(writer http.ResponseWriter, request *http.Request) {
	var input createClinicianRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("name", input.Name).
		Required("email", input.Email).
		Email("email", input.Email).
		Required("specialty", input.Specialty).
		Range("experience", input.Experience, 0, 80)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	clinician, temporary, err := handler.accountService.CreateClinician(request.Context(), CreateClinicianInput{
		Name:           input.Name,
		Email:          input.Email,
		Phone:          input.Phone,
		Specialty:      input.Specialty,
		Experience:     input.Experience,
		Qualifications: input.Qualifications,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		"user":         clinician,
		"tempPassword": temporary,
	})
}
