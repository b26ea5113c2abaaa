// Copyright (c) 2026 JadeWellness. All rights reserved.

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jadewellness/backend/internal/platform/ctxutil"
	"github.com/jadewellness/backend/internal/platform/middleware"
	requestutil "github.com/jadewellness/backend/internal/platform/request"
	"github.com/jadewellness/backend/internal/platform/respond"
	"github.com/jadewellness/backend/internal/platform/sec"
	"github.com/jadewellness/backend/internal/platform/validate"
	"github.com/jadewellness/backend/internal/users/account"
)

// Request field names, used in validation details.
const (
	FieldName             = "name"
	FieldEmail            = "email"
	FieldPassword         = "password"
	FieldToken            = "token"
	FieldBirthdate        = "birthdate"
	FieldGender           = "gender"
	FieldCurrentPassword  = "currentPassword"
	FieldNewPassword      = "newPassword"
	birthdateLayout       = "2006-01-02"
	messageProfileUpdated = "Profile updated successfully"
)

// # Definitions & Constructors

// Handler implements the /auth endpoints: credentials, password recovery and
// profile self-service.
type Handler struct {
	authService    *Service
	accountService *account.Service
	guard          *middleware.Guard
	limiter        func(http.Handler) http.Handler
}

// NewHandler constructs a new [Handler]. limiter guards the credential
// endpoints and is typically [middleware.AuthLimiter.Handler].
func NewHandler(service *Service, accounts *account.Service, guard *middleware.Guard, limiter func(http.Handler) http.Handler) *Handler {
	return &Handler{
		authService:    service,
		accountService: accounts,
		guard:          guard,
		limiter:        limiter,
	}
}

// Routes returns a [chi.Router] configured with the authentication routes.
//
// # Endpoints
//   - POST /register, /login, /forgot-password, /reset-password : rate limited
//   - GET|PUT /profile, PUT /change-password : authenticated
//   - GET /login-history, /export-data : patients only
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Credential endpoints
	router.Group(func(r chi.Router) {
		r.Use(handler.limiter)
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/forgot-password", handler.forgotPassword)
		r.Post("/reset-password", handler.resetPassword)
	})

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(handler.guard.RequireAuthenticated)
		r.Get("/profile", handler.getProfile)
		r.Put("/profile", handler.updateProfile)
		r.Put("/change-password", handler.changePassword)

		r.Group(func(r chi.Router) {
			r.Use(handler.guard.RequireRole(sec.RolePatient))
			r.Get("/login-history", handler.loginHistory)
			r.Get("/export-data", handler.exportData)
		})
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	Birthdate        string `json:"birthdate"`
	Gender           string `json:"gender"`
	MedicalCondition string `json:"medicalCondition"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

/*
Register enrolls a new patient and signs them in.

POST /api/auth/register

Request:
  - Body: registerRequest (name, email, password, optional birthdate, gender, medicalCondition)

Response:
  - 201: {user, token}
  - 400: Missing fields, malformed birthdate or "User already exists"
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).
		Required(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)

	if err := validator.ErrAs("Please provide name, email, and password"); err != nil {
		respond.Error(writer, request, err)
		return
	}

	var birthdate *time.Time
	if input.Birthdate != "" {
		parsed, err := parseBirthdate(input.Birthdate)
		validator.Custom(FieldBirthdate, err != nil, "Must be a date (YYYY-MM-DD)")
		birthdate = &parsed
	}
	if input.Gender != "" {
		validator.OneOf(FieldGender, input.Gender, account.GenderMale, account.GenderFemale, account.GenderOther)
	}
	validator.Email(FieldEmail, input.Email)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Register(request.Context(), RegisterInput{
		Name:             input.Name,
		Email:            input.Email,
		Password:         input.Password,
		Birthdate:        birthdate,
		Gender:           input.Gender,
		MedicalCondition: input.MedicalCondition,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		"user":  session.Account,
		"token": session.Token,
	})
}

/*
Login authenticates an email and password.

POST /api/auth/login

Request:
  - Body: loginRequest (email, password)

Response:
  - 200: {user, token, twoFactorRequired}
  - 400: Missing email or password
  - 401: Invalid credentials
  - 404: User not found
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)

	if err := validator.ErrAs("Please provide email and password"); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		IPAddress: middleware.RealIP(request),
		UserAgent: request.UserAgent(),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"user":              session.Account,
		"token":             session.Token,
		"twoFactorRequired": session.TwoFactorRequired,
	})
}

/*
ForgotPassword emails a reset link.

POST /api/auth/forgot-password

Response:
  - 200: Reset link sent
  - 400: Missing email
  - 404: User not found
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.Email == "" {
		respond.Error(writer, request, validate.RequiredError(FieldEmail, "This field is required"))
		return
	}

	if err := handler.authService.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, "Password reset link sent to email")
}

/*
ResetPassword completes the recovery flow with the emailed token.

POST /api/auth/reset-password

Response:
  - 200: Password reset
  - 400: Missing fields or weak password
  - 401: Invalid or expired reset token
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, "Password reset successfully")
}

// # Profile Self-Service

// getProfile returns the caller's account. GET /api/auth/profile
func (handler *Handler) getProfile(writer http.ResponseWriter, request *http.Request) {
	principal := ctxutil.GetAccount(request.Context())

	found, err := handler.accountService.GetProfile(request.Context(), principal)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, found)
}

/*
UpdateProfile applies a partial profile update.

PUT /api/auth/profile

Response:
  - 200: {message, user}
  - 400: Malformed email or duplicate email
*/
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	principal := ctxutil.GetAccount(request.Context())

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.Email != nil {
		if err := (&validate.Validator{}).Email(FieldEmail, *input.Email).Err(); err != nil {
			respond.Error(writer, request, err)
			return
		}
	}

	updated, err := handler.accountService.UpdateProfile(request.Context(), principal, account.UpdateProfileInput{
		Name:    input.Name,
		Email:   input.Email,
		Phone:   input.Phone,
		Address: input.Address,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"message": messageProfileUpdated,
		"user":    updated,
	})
}

/*
ChangePassword replaces the caller's password.

PUT /api/auth/change-password

Response:
  - 200: Password changed
  - 400: Missing fields, short password or wrong current password
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	principal := ctxutil.GetAccount(request.Context())

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword)

	if err := validator.ErrAs("Current password and new password are required"); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.authService.ChangePassword(request.Context(), principal, input.CurrentPassword, input.NewPassword)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, "Password changed successfully")
}

// loginHistory returns the newest login attempts. GET /api/auth/login-history
func (handler *Handler) loginHistory(writer http.ResponseWriter, request *http.Request) {
	history, err := handler.accountService.LoginHistory(request.Context(), ctxutil.GetAccount(request.Context()))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, history)
}

// exportData returns the caller's personal data export. GET /api/auth/export-data
func (handler *Handler) exportData(writer http.ResponseWriter, request *http.Request) {
	export, err := handler.accountService.Export(request.Context(), ctxutil.GetAccount(request.Context()))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, export)
}

// parseBirthdate accepts a calendar date or a full RFC 3339 timestamp.
func parseBirthdate(value string) (time.Time, error) {
	if parsed, err := time.Parse(birthdateLayout, value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339, value)
}
