// Copyright (c) 2026 JadeWellness. All rights reserved.

/*
Package auth implements login, registration and the password flows of JadeWellness.

Architecture:

  - Resolver: maps token subjects and emails to accounts in role precedence.
  - Service: orchestrates Register, Login, password reset and change.
  - Handler: the /api/auth routes, including profile self-service.

Credentials are bcrypt hashes. Records still holding a legacy plaintext value
are upgraded transparently the first time they log in.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jadewellness/backend/internal/platform/apperr"
	"github.com/jadewellness/backend/internal/platform/mail"
	"github.com/jadewellness/backend/internal/platform/sec"
	"github.com/jadewellness/backend/internal/users/account"
	"github.com/jadewellness/backend/pkg/textnorm"
)

// Client-facing errors of the auth flows.
var (
	ErrUserExists              = account.ErrDuplicateEmail.WithStatus(http.StatusBadRequest)
	ErrInvalidCredentials      = apperr.Unauthorized("Invalid credentials")
	ErrInvalidResetToken       = apperr.Unauthorized("Invalid or expired reset token")
	ErrCurrentPasswordMismatch = apperr.ValidationError("Current password is incorrect")
	ErrPasswordTooShort        = apperr.ValidationError(fmt.Sprintf("New password must be at least %d characters long", MinPasswordLength))
)

// # Contracts & Types

// TokenIssuer signs and verifies bearer tokens. [*sec.TokenService] implements it.
type TokenIssuer interface {
	Issue(userID string, role sec.Role, name, email string, ttl time.Duration) (string, error)
	IssueReset(userID string, ttl time.Duration) (string, error)
	Verify(tokenString string) (*sec.AuthClaims, error)
}

// Service implements the authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// or login logic must be reviewed with the same care as the token code.
type Service struct {
	directory      account.Directory
	resolver       *Resolver
	tokens         TokenIssuer
	notifier       account.Notifier
	frontendOrigin string
	logger         *slog.Logger
	now            func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	directory account.Directory,
	resolver *Resolver,
	tokens TokenIssuer,
	notifier account.Notifier,
	frontendOrigin string,
	logger *slog.Logger,
) *Service {
	return &Service{
		directory:      directory,
		resolver:       resolver,
		tokens:         tokens,
		notifier:       notifier,
		frontendOrigin: frontendOrigin,
		logger:         logger,
		now:            time.Now,
	}
}

// Session is an authenticated account and its bearer token.
type Session struct {
	Account           *account.Account
	Token             string
	TwoFactorRequired bool
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new patient.
type RegisterInput struct {
	Name             string
	Email            string
	Password         string
	Birthdate        *time.Time
	Gender           string
	MedicalCondition string
}

/*
Register creates a patient account and signs it in.

Description: Only patients self-register. Clinicians and administrators are
created by an administrator.

Parameters:
  - context: context.Context
  - input: RegisterInput (presence already validated)

Returns:
  - *Session: The created account and a 30-day token
  - error: ErrUserExists or storage failures
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*Session, error) {
	email := textnorm.Email(input.Email)

	// Per-store uniqueness; the store index is the final arbiter under races.
	if _, err := service.directory.Patients.FindByEmail(context, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, account.ErrNotFound) {
		return nil, fmt.Errorf("auth_service_register_lookup_failed: %w", err)
	}

	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	patient := &account.Account{
		Name:         textnorm.Name(input.Name),
		Email:        email,
		PasswordHash: hashedPassword,
		Patient: &account.PatientProfile{
			Birthdate:        input.Birthdate,
			Gender:           input.Gender,
			MedicalCondition: input.MedicalCondition,
		},
	}

	if err := service.directory.Patients.Create(context, patient); err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	if message, err := mail.Welcome(patient.Email, patient.Name); err == nil {
		service.notifier.Dispatch(message)
	}

	token, err := service.tokens.Issue(patient.ID, sec.RolePatient, patient.Name, patient.Email, SessionTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	service.logger.Info("patient_registered", slog.String("user_id", patient.ID))

	return &Session{Account: patient, Token: token}, nil
}

// # Authentication Flow

// LoginInput defines credentials and client metadata for an attempt.
type LoginInput struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

/*
Login authenticates an email and password against the three stores.

Description: The first store holding the email (patient, clinician,
administrator) owns the attempt; a wrong password there is not retried against
lower-precedence stores. Patient attempts are recorded in the login history.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *Session: Account, 30-day token and whether a second factor is expected
  - error: ErrAccountNotFound (404), ErrInvalidCredentials (401) or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*Session, error) {
	found, err := service.resolver.FindByEmail(context, input.Email)
	if err != nil {
		return nil, err
	}

	ok := service.checkPassword(context, found, input.Password)

	if found.IsPatient() {
		service.recordLogin(context, found, input, ok)
	}

	if !ok {
		service.logger.Info("login_failed",
			slog.String("user_id", found.ID),
			slog.String("role", found.Role.String()),
		)
		return nil, ErrInvalidCredentials
	}

	token, err := service.tokens.Issue(found.ID, found.Role, found.Name, found.Email, SessionTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	service.logger.Info("login_succeeded",
		slog.String("user_id", found.ID),
		slog.String("role", found.Role.String()),
	)

	return &Session{
		Account:           found,
		Token:             token,
		TwoFactorRequired: found.TwoFactorState().Enabled,
	}, nil
}

// checkPassword verifies plain against the stored credential and upgrades a
// legacy plaintext value to a bcrypt hash on success. Upgrade failures are
// logged and never fail the login.
func (service *Service) checkPassword(context context.Context, found *account.Account, plain string) bool {
	ok, legacy := sec.VerifyPassword(plain, found.PasswordHash)
	if !ok || !legacy {
		return ok
	}

	logger := service.logger.With(slog.String("user_id", found.ID), slog.String("role", found.Role.String()))

	hashed, err := sec.HashPassword(plain)
	if err != nil {
		logger.Warn("legacy_rehash_failed", slog.Any("error", err))
		return true
	}

	store, err := service.directory.ForRole(found.Role)
	if err == nil {
		err = store.UpdatePassword(context, found.ID, hashed)
	}
	if err != nil {
		logger.Warn("legacy_rehash_failed", slog.Any("error", err))
		return true
	}

	found.PasswordHash = hashed
	logger.Info("legacy_password_rehashed")
	return true
}

func (service *Service) recordLogin(context context.Context, found *account.Account, input LoginInput, success bool) {
	entry := account.LoginEntry{
		Timestamp: service.now().UTC(),
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
		Success:   success,
	}
	if err := service.directory.Patients.AppendLoginEntry(context, found.ID, entry); err != nil {
		service.logger.Warn("login_history_append_failed",
			slog.String("user_id", found.ID),
			slog.Any("error", err),
		)
	}
}

// # Password Management

/*
RequestPasswordReset emails a one-hour reset link to the account owning email.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - error: ErrAccountNotFound (404) or internal failures
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) error {
	found, err := service.resolver.FindByEmail(context, email)
	if err != nil {
		return err
	}

	token, err := service.tokens.IssueReset(found.ID, ResetTokenTTL)
	if err != nil {
		return fmt.Errorf("auth_service_reset_token_failed: %w", err)
	}

	link := service.frontendOrigin + resetPath + token
	if message, err := mail.PasswordReset(found.Email, found.Name, link); err == nil {
		service.notifier.Dispatch(message)
	}

	service.logger.Info("password_reset_requested", slog.String("user_id", found.ID))
	return nil
}

/*
ResetPassword sets a new password using a reset token.

Description: Only tokens minted by [Service.RequestPasswordReset] are accepted;
session tokens are rejected.

Parameters:
  - context: context.Context
  - token: string (from the emailed link)
  - newPassword: string

Returns:
  - error: ErrInvalidResetToken, ErrPasswordTooShort or storage failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	claims, err := service.tokens.Verify(token)
	if err != nil || !claims.IsReset() {
		return ErrInvalidResetToken
	}

	found, err := service.resolver.Resolve(context, claims)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	if err := service.setPassword(context, found, newPassword); err != nil {
		return err
	}

	service.logger.Info("password_reset_completed", slog.String("user_id", found.ID))
	return nil
}

/*
ChangePassword replaces the caller's password after checking the current one.

Parameters:
  - context: context.Context
  - principal: *account.Account (resolved by the guard)
  - currentPassword: string
  - newPassword: string

Returns:
  - error: ErrCurrentPasswordMismatch, ErrPasswordTooShort or storage failures
*/
func (service *Service) ChangePassword(context context.Context, principal *account.Account, currentPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	store, err := service.directory.ForRole(principal.Role)
	if err != nil {
		return apperr.Internal(err)
	}

	found, err := store.FindByID(context, principal.ID)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_lookup_failed: %w", err)
	}

	if ok, _ := sec.VerifyPassword(currentPassword, found.PasswordHash); !ok {
		return ErrCurrentPasswordMismatch
	}

	if err := service.setPassword(context, found, newPassword); err != nil {
		return err
	}

	service.logger.Info("password_changed", slog.String("user_id", found.ID))
	return nil
}

func (service *Service) setPassword(context context.Context, found *account.Account, plain string) error {
	hashed, err := sec.HashPassword(plain)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	store, err := service.directory.ForRole(found.Role)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := store.UpdatePassword(context, found.ID, hashed); err != nil {
		return fmt.Errorf("auth_service_update_password_failed: %w", err)
	}
	return nil
}
