// Copyright (c) 2026 JadeWellness. All rights reserved.

package account

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jadewellness/backend/internal/platform/apperr"
	"github.com/jadewellness/backend/internal/platform/mail"
	"github.com/jadewellness/backend/internal/platform/sec"
	"github.com/jadewellness/backend/pkg/slice"
	"github.com/jadewellness/backend/pkg/textnorm"
)

const (
	// RecentLoginHistory is how many entries the login-history endpoint returns.
	RecentLoginHistory = 20

	// temporaryPasswordLength is the length of admin-issued clinician passwords.
	temporaryPasswordLength = 10
)

// ExportDataTypes lists the categories included in a personal data export.
var ExportDataTypes = []string{"profile", "login_history"}

// Notifier queues outbound email. [*mail.Dispatcher] implements it.
type Notifier interface {
	Dispatch(message mail.Message)
}

// # Service Layer

// Service implements profile self-service and administrator account management.
type Service struct {
	directory Directory
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a new [Service].
func NewService(directory Directory, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		directory: directory,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// # Profile Management

/*
GetProfile reloads the principal from the store that owns it.

Parameters:
  - context: context.Context
  - principal: *Account (the resolved caller)

Returns:
  - *Account: Fresh copy of the account
  - error: ErrNotFound or storage failures
*/
func (service *Service) GetProfile(context context.Context, principal *Account) (*Account, error) {
	store, err := service.directory.ForRole(principal.Role)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	found, err := store.FindByID(context, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return found, nil
}

// UpdateProfileInput defines the mutable subset of profile fields. Nil means unchanged.
type UpdateProfileInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

/*
UpdateProfile applies a partial set of changes to the caller's profile.

Description: Name and email apply to every role. Phone applies to patients and
clinicians, address to patients only; they are ignored elsewhere.

Parameters:
  - context: context.Context
  - principal: *Account
  - input: UpdateProfileInput

Returns:
  - *Account: The updated account
  - error: ErrDuplicateEmail, ErrNotFound or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, principal *Account, input UpdateProfileInput) (*Account, error) {
	found, err := service.GetProfile(context, principal)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && *input.Name != "" {
		found.Name = textnorm.Name(*input.Name)
	}
	if input.Email != nil && *input.Email != "" {
		found.Email = textnorm.Email(*input.Email)
	}
	if input.Phone != nil && *input.Phone != "" {
		switch {
		case found.Patient != nil:
			found.Patient.Phone = *input.Phone
		case found.Clinician != nil:
			found.Clinician.Phone = *input.Phone
		}
	}
	if input.Address != nil && *input.Address != "" && found.Patient != nil {
		found.Patient.Address = *input.Address
	}

	store, err := service.directory.ForRole(found.Role)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := store.Update(context, found); err != nil {
		return nil, fmt.Errorf("account_service_update_failed: %w", err)
	}

	service.logger.Info("account_profile_updated",
		slog.String("user_id", found.ID),
		slog.String("role", found.Role.String()),
	)
	return found, nil
}

// # Patient Data

/*
LoginHistory returns the caller's most recent login attempts, newest first.

Returns:
  - []LoginEntry: Up to RecentLoginHistory entries, never nil
  - error: Forbidden for non-patients, or storage failures
*/
func (service *Service) LoginHistory(context context.Context, principal *Account) ([]LoginEntry, error) {
	if !principal.IsPatient() {
		return nil, apperr.Forbidden("Not authorized as patient")
	}

	found, err := service.directory.Patients.FindByID(context, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("account_service_login_history_failed: %w", err)
	}

	var history []LoginEntry
	if found.Patient != nil {
		history = append(history, found.Patient.LoginHistory...)
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.After(history[j].Timestamp)
	})
	if len(history) > RecentLoginHistory {
		history = history[:RecentLoginHistory]
	}
	if history == nil {
		history = []LoginEntry{}
	}
	return history, nil
}

// Export is the personal data export document.
type Export struct {
	Profile    *Account  `json:"profile"`
	ExportDate time.Time `json:"exportDate"`
	DataTypes  []string  `json:"dataTypes"`
}

// Export assembles the caller's data export. Credential and 2FA secrets are redacted.
func (service *Service) Export(context context.Context, principal *Account) (*Export, error) {
	if !principal.IsPatient() {
		return nil, apperr.Forbidden("Not authorized as patient")
	}

	found, err := service.directory.Patients.FindByID(context, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("account_service_export_failed: %w", err)
	}

	service.logger.Info("account_data_exported", slog.String("user_id", found.ID))

	return &Export{
		Profile:    found.Redacted(),
		ExportDate: service.now().UTC(),
		DataTypes:  append([]string(nil), ExportDataTypes...),
	}, nil
}

// # Administration

// ListPatients returns one page of patient accounts, newest first.
func (service *Service) ListPatients(context context.Context, offset, limit int) ([]*Account, int, error) {
	patients, total, err := service.directory.Patients.List(context, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("account_service_list_patients_failed: %w", err)
	}

	redacted := slice.Map(patients, (*Account).Redacted)
	if redacted == nil {
		redacted = []*Account{}
	}
	return redacted, total, nil
}

// DeletePatient removes a patient account.
func (service *Service) DeletePatient(context context.Context, id string) error {
	if err := service.directory.Patients.Delete(context, id); err != nil {
		return fmt.Errorf("account_service_delete_patient_failed: %w", err)
	}

	service.logger.Warn("patient_account_deleted", slog.String("user_id", id))
	return nil
}

// CreateAccountInput carries the shared fields of an admin-created account.
type CreateAccountInput struct {
	Name     string
	Email    string
	Password string
}

// CreateAdministrator registers a new administrator with the given password.
func (service *Service) CreateAdministrator(context context.Context, input CreateAccountInput) (*Account, error) {
	hash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.ValidationError("Please provide name, email, and password")
	}

	admin := &Account{
		Name:         textnorm.Name(input.Name),
		Email:        textnorm.Email(input.Email),
		PasswordHash: hash,
	}
	if err := service.directory.Administrators.Create(context, admin); err != nil {
		return nil, fmt.Errorf("account_service_create_administrator_failed: %w", err)
	}

	if message, err := mail.Welcome(admin.Email, admin.Name); err == nil {
		service.notifier.Dispatch(message)
	}

	service.logger.Info("administrator_created", slog.String("user_id", admin.ID))
	return admin, nil
}

// CreateClinicianInput carries the fields of an admin-created clinician.
type CreateClinicianInput struct {
	Name           string
	Email          string
	Phone          string
	Specialty      string
	Experience     int
	Qualifications string
}

/*
CreateClinician registers a clinician with a generated temporary password.

Description: The temporary password is emailed to the clinician and returned
once to the administrator.

Returns:
  - *Account: The created clinician
  - string: The temporary password
  - error: ErrDuplicateEmail or storage failures
*/
func (service *Service) CreateClinician(context context.Context, input CreateClinicianInput) (*Account, string, error) {
	temporary, err := sec.RandomString(sec.TemporaryPasswordAlphabet, temporaryPasswordLength)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}

	hash, err := sec.HashPassword(temporary)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}

	clinician := &Account{
		Name:         textnorm.Name(input.Name),
		Email:        textnorm.Email(input.Email),
		PasswordHash: hash,
		Clinician: &ClinicianProfile{
			Specialty:      input.Specialty,
			Phone:          input.Phone,
			Experience:     input.Experience,
			Qualifications: input.Qualifications,
			Available:      true,
		},
	}
	if err := service.directory.Clinicians.Create(context, clinician); err != nil {
		return nil, "", fmt.Errorf("account_service_create_clinician_failed: %w", err)
	}

	if message, err := mail.ClinicianWelcome(clinician.Email, clinician.Name, clinician.Email, temporary); err == nil {
		service.notifier.Dispatch(message)
	}

	service.logger.Info("clinician_created", slog.String("user_id", clinician.ID))
	return clinician, temporary, nil
}
