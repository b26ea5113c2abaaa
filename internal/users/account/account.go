// Copyright (c) 2026 JadeWellness. All rights reserved.

/*
Package account defines the JadeWellness principal and its persistence.

An [Account] is a single tagged union over the three account kinds (patient,
clinician, administrator). The kind is decided by the store that loaded the
record and is never a client-editable field. Shared identity and credential
data live on the Account itself; variant data hangs off [Account.Patient] or
[Account.Clinician].

# Architecture

  - Entities: Account, PatientProfile, ClinicianProfile, TwoFactor, LoginEntry.
  - Contracts: [Store], [PatientStore] and the role-ordered [Directory].
  - Adapters: in-memory, MongoDB and PostgreSQL stores.
  - Use cases: profile, login history, data export and admin management ([Service]).
*/
package account

import (
	"time"

	"github.com/jadewellness/backend/internal/platform/apperr"
	"github.com/jadewellness/backend/internal/platform/sec"
)

// # Domain Entities

// Account is a stored identity with role-specific data and a hashed credential.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.Role  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Patient   *PatientProfile   `json:"patient,omitempty"`
	Clinician *ClinicianProfile `json:"clinician,omitempty"`
}

// PatientProfile is the variant data of a patient account.
type PatientProfile struct {
	Birthdate        *time.Time   `json:"birthdate,omitempty"`
	Gender           string       `json:"gender,omitempty"`
	MedicalCondition string       `json:"medicalCondition,omitempty"`
	Phone            string       `json:"phone,omitempty"`
	Address          string       `json:"address,omitempty"`
	TwoFactor        TwoFactor    `json:"twoFactor"`
	LoginHistory     []LoginEntry `json:"loginHistory,omitempty"`
}

// ClinicianProfile is the variant data of a clinician account.
type ClinicianProfile struct {
	Specialty          string `json:"specialty"`
	Phone              string `json:"phone"`
	Experience         int    `json:"experience"`
	Qualifications     string `json:"qualifications"`
	QualificationsFile string `json:"qualificationsFile,omitempty"`
	Available          bool   `json:"available"`
}

// TwoFactor is the per-patient TOTP state.
//
// Secret and BackupCodes never leave the server through JSON; they are shown
// exactly once by the setup endpoint.
type TwoFactor struct {
	Secret      string   `json:"-"`
	Enabled     bool     `json:"enabled"`
	BackupCodes []string `json:"-"`
}

// LoginEntry records the outcome of one password login attempt.
type LoginEntry struct {
	Timestamp time.Time `json:"timestamp"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Success   bool      `json:"success"`
}

// # Constraints

const (
	// MaxLoginHistory is how many login entries a patient record retains.
	MaxLoginHistory = 100

	// Gender values accepted on patient profiles.
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// # Errors

var (
	// ErrNotFound is returned by every store when no record matches.
	ErrNotFound = apperr.NotFound("User")

	// ErrDuplicateEmail is returned when the email already exists in the same store.
	ErrDuplicateEmail = apperr.Conflict("User already exists")
)

// # Behaviour

// IsPatient reports whether the account was loaded from the patient store.
func (a *Account) IsPatient() bool {
	return a.Role == sec.RolePatient
}

// TwoFactorState returns the patient's 2FA state, or the zero value for other roles.
func (a *Account) TwoFactorState() TwoFactor {
	if a.Patient == nil {
		return TwoFactor{}
	}
	return a.Patient.TwoFactor
}

// Redacted returns a copy safe to hand to exports: credential material is cleared.
func (a *Account) Redacted() *Account {
	clone := *a
	clone.PasswordHash = ""
	if a.Patient != nil {
		patient := *a.Patient
		patient.TwoFactor = TwoFactor{Enabled: a.Patient.TwoFactor.Enabled}
		patient.LoginHistory = append([]LoginEntry(nil), a.Patient.LoginHistory...)
		clone.Patient = &patient
	}
	if a.Clinician != nil {
		clinician := *a.Clinician
		clone.Clinician = &clinician
	}
	return &clone
}

// clone deep-copies the mutable slices so stores never share state with callers.
func (a *Account) clone() *Account {
	out := *a
	if a.Patient != nil {
		patient := *a.Patient
		patient.TwoFactor.BackupCodes = append([]string(nil), a.Patient.TwoFactor.BackupCodes...)
		patient.LoginHistory = append([]LoginEntry(nil), a.Patient.LoginHistory...)
		if a.Patient.Birthdate != nil {
			birthdate := *a.Patient.Birthdate
			patient.Birthdate = &birthdate
		}
		out.Patient = &patient
	}
	if a.Clinician != nil {
		clinician := *a.Clinician
		out.Clinician = &clinician
	}
	return &out
}

// trimHistory keeps the newest MaxLoginHistory entries.
func trimHistory(entries []LoginEntry) []LoginEntry {
	if len(entries) <= MaxLoginHistory {
		return entries
	}
	return entries[len(entries)-MaxLoginHistory:]
}
