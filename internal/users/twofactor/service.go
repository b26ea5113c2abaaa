// Copyright (c) 2026 JadeWellness. All rights reserved.

package twofactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jadewellness/backend/internal/platform/apperr"
	"github.com/jadewellness/backend/internal/platform/mail"
	"github.com/jadewellness/backend/internal/users/account"
)

// Client-facing errors. Messages are part of the wire contract.
var (
	ErrNotPatient         = apperr.Forbidden("Not authorized as patient")
	ErrAlreadyEnabled     = apperr.Conflict("Two-factor authentication is already enabled").WithStatus(http.StatusBadRequest)
	ErrTokenRequired      = apperr.ValidationError("Token is required")
	ErrNotSetUp           = apperr.ValidationError("Two-factor authentication not set up")
	ErrInvalidToken       = apperr.ValidationError("Invalid token")
	ErrNotEnabled         = apperr.ValidationError("Two-factor authentication is not enabled")
	ErrInvalidProof       = apperr.ValidationError("Invalid token or backup code")
	ErrLoginFieldsMissing = apperr.ValidationError("Token and email are required")
	ErrNotEnabledForUser  = apperr.ValidationError("Two-factor authentication not enabled for this user")
)

// SetupMessage accompanies a fresh enrolment.
const SetupMessage = "Scan the QR code with your authenticator app and verify with a code to complete setup"

// # Service Layer

// Service drives the per-patient 2FA state machine.
type Service struct {
	patients account.PatientStore
	qr       QRRenderer
	notifier account.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a new [Service].
func NewService(patients account.PatientStore, qr QRRenderer, notifier account.Notifier, logger *slog.Logger) *Service {
	return &Service{
		patients: patients,
		qr:       qr,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Enrollment is returned once by [Service.Setup]. It is the only time the
// secret and backup codes leave the server.
type Enrollment struct {
	QRCode      string   `json:"qrCode"`
	Secret      string   `json:"secret"`
	BackupCodes []string `json:"backupCodes"`
	Message     string   `json:"message"`
}

// Status summarises a patient's 2FA state.
type Status struct {
	TwoFactorEnabled bool `json:"twoFactorEnabled"`
	BackupCodesCount int  `json:"backupCodesCount"`
}

/*
Setup starts enrolment: a new secret and backup codes are stored disabled.

Description: A QR rendering failure is logged and leaves QRCode empty; the
secret is still returned for manual entry. The backup codes are also emailed,
fire-and-forget.

Parameters:
  - context: context.Context
  - principal: *account.Account (resolved caller)

Returns:
  - *Enrollment: QR data URI, base32 secret and backup codes
  - error: ErrNotPatient, ErrAlreadyEnabled or storage failures
*/
func (service *Service) Setup(context context.Context, principal *account.Account) (*Enrollment, error) {
	patient, err := service.load(context, principal)
	if err != nil {
		return nil, err
	}

	if patient.TwoFactorState().Enabled {
		return nil, ErrAlreadyEnabled
	}

	key, err := newKey(patient.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	codes, err := newBackupCodes()
	if err != nil {
		return nil, apperr.Internal(err)
	}

	state := account.TwoFactor{Secret: key.Secret(), Enabled: false, BackupCodes: codes}
	if err := service.patients.SaveTwoFactor(context, patient.ID, state); err != nil {
		return nil, fmt.Errorf("twofactor_service_setup_failed: %w", err)
	}

	qrCode, err := service.qr.Render(key.URL())
	if err != nil {
		service.logger.Warn("two_factor_qr_failed",
			slog.String("user_id", patient.ID),
			slog.Any("error", apperr.Upstream("qr", err)),
		)
		qrCode = ""
	}

	if message, err := mail.TwoFactorSetup(patient.Email, patient.Name, codes); err == nil {
		service.notifier.Dispatch(message)
	}

	service.logger.Info("two_factor_setup_started", slog.String("user_id", patient.ID))

	return &Enrollment{
		QRCode:      qrCode,
		Secret:      key.Secret(),
		BackupCodes: codes,
		Message:     SetupMessage,
	}, nil
}

/*
VerifySetup completes enrolment with a first TOTP code.

Returns:
  - error: ErrTokenRequired, ErrNotSetUp, ErrInvalidToken or storage failures
*/
func (service *Service) VerifySetup(context context.Context, principal *account.Account, code string) error {
	if code == "" {
		return ErrTokenRequired
	}

	patient, err := service.load(context, principal)
	if err != nil {
		return err
	}

	state := patient.TwoFactorState()
	if state.Secret == "" {
		return ErrNotSetUp
	}

	if !validCode(state.Secret, code, service.now()) {
		service.logger.Info("two_factor_verify_failed", slog.String("user_id", patient.ID), slog.String("stage", "setup"))
		return ErrInvalidToken
	}

	state.Enabled = true
	if err := service.patients.SaveTwoFactor(context, patient.ID, state); err != nil {
		return fmt.Errorf("twofactor_service_enable_failed: %w", err)
	}

	service.logger.Info("two_factor_enabled", slog.String("user_id", patient.ID))
	return nil
}

/*
Disable turns 2FA off after a valid TOTP code or backup code.

Description: On success the secret, the enabled flag and every remaining
backup code are cleared.

Returns:
  - error: ErrNotEnabled, ErrInvalidProof or storage failures
*/
func (service *Service) Disable(context context.Context, principal *account.Account, proof string) error {
	patient, err := service.load(context, principal)
	if err != nil {
		return err
	}

	if !patient.TwoFactorState().Enabled {
		return ErrNotEnabled
	}

	ok, err := service.checkProof(context, patient, proof)
	if err != nil {
		return err
	}
	if !ok {
		service.logger.Info("two_factor_verify_failed", slog.String("user_id", patient.ID), slog.String("stage", "disable"))
		return ErrInvalidProof
	}

	if err := service.patients.SaveTwoFactor(context, patient.ID, account.TwoFactor{}); err != nil {
		return fmt.Errorf("twofactor_service_disable_failed: %w", err)
	}

	service.logger.Info("two_factor_disabled", slog.String("user_id", patient.ID))
	return nil
}

/*
VerifyLogin checks the second factor of a patient identified by email.

Description: This endpoint is unauthenticated; the patient is looked up in the
patient store only. Backup codes used here are consumed.

Returns:
  - error: ErrLoginFieldsMissing, ErrNotEnabledForUser, ErrInvalidProof or storage failures
*/
func (service *Service) VerifyLogin(context context.Context, email, proof string) error {
	if email == "" || proof == "" {
		return ErrLoginFieldsMissing
	}

	patient, err := service.patients.FindByEmail(context, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrNotEnabledForUser
		}
		return fmt.Errorf("twofactor_service_lookup_failed: %w", err)
	}

	if !patient.TwoFactorState().Enabled {
		return ErrNotEnabledForUser
	}

	ok, err := service.checkProof(context, patient, proof)
	if err != nil {
		return err
	}
	if !ok {
		service.logger.Info("two_factor_verify_failed", slog.String("user_id", patient.ID), slog.String("stage", "login"))
		return ErrInvalidProof
	}

	service.logger.Info("two_factor_login_verified", slog.String("user_id", patient.ID))
	return nil
}

// Status reports whether 2FA is enabled and how many backup codes remain.
func (service *Service) Status(context context.Context, principal *account.Account) (*Status, error) {
	patient, err := service.load(context, principal)
	if err != nil {
		return nil, err
	}

	state := patient.TwoFactorState()
	return &Status{
		TwoFactorEnabled: state.Enabled,
		BackupCodesCount: len(state.BackupCodes),
	}, nil
}

// # Internals

// load re-reads the caller from the patient store. Other roles have no 2FA.
func (service *Service) load(context context.Context, principal *account.Account) (*account.Account, error) {
	if principal == nil || !principal.IsPatient() {
		return nil, ErrNotPatient
	}

	patient, err := service.patients.FindByID(context, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("twofactor_service_load_failed: %w", err)
	}
	return patient, nil
}

// checkProof validates a TOTP code, or consumes a backup code for any other length.
func (service *Service) checkProof(context context.Context, patient *account.Account, proof string) (bool, error) {
	if proof == "" {
		return false, nil
	}

	if len(proof) == codeLength {
		return validCode(patient.TwoFactorState().Secret, proof, service.now()), nil
	}

	consumed, err := service.patients.ConsumeBackupCode(context, patient.ID, proof)
	if err != nil {
		return false, fmt.Errorf("twofactor_service_consume_backup_failed: %w", err)
	}
	if consumed {
		service.logger.Info("two_factor_backup_code_used", slog.String("user_id", patient.ID))
	}
	return consumed, nil
}
