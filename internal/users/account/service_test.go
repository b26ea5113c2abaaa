// Copyright (c) 2026 JadeWellness. All rights reserved.

package account

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadewellness/backend/internal/platform/apperr"
	"github.com/jadewellness/backend/internal/platform/mail"
	"github.com/jadewellness/backend/internal/platform/sec"
)

// outbox is a synchronous [Notifier].
type outbox struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (o *outbox) Dispatch(message mail.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, message)
}

func newTestService() (*Service, Directory, *outbox) {
	directory := NewMemoryDirectory()
	notifier := &outbox{}
	return NewService(directory, notifier, slog.New(slog.DiscardHandler)), directory, notifier
}

func ptr(s string) *string { return &s }

/*
TestService_UpdateProfile applies partial updates per role.
*/
func TestService_UpdateProfile(t *testing.T) {
	service, directory, _ := newTestService()
	ctx := context.Background()

	patient := &Account{Email: "p@example.com", Name: "P", Patient: &PatientProfile{}}
	require.NoError(t, directory.Patients.Create(ctx, patient))
	admin := &Account{Email: "a@example.com", Name: "A"}
	require.NoError(t, directory.Administrators.Create(ctx, admin))

	// 1. Patient fields
	updated, err := service.UpdateProfile(ctx, patient, UpdateProfileInput{
		Name: ptr("  New   Name "), Phone: ptr("555"), Address: ptr("1 Main"),
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "555", updated.Patient.Phone)
	assert.Equal(t, "1 Main", updated.Patient.Address)
	assert.Equal(t, "p@example.com", updated.Email)

	// 2. Address is ignored for administrators
	updated, err = service.UpdateProfile(ctx, admin, UpdateProfileInput{Email: ptr("NEW@example.com"), Address: ptr("x")})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Nil(t, updated.Patient)

	// 3. Duplicate email within the same store
	other := &Account{Email: "q@example.com", Patient: &PatientProfile{}}
	require.NoError(t, directory.Patients.Create(ctx, other))
	_, err = service.UpdateProfile(ctx, other, UpdateProfileInput{Email: ptr("p@example.com")})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

/*
TestService_UpdateProfile_UnservedRole fails with 500 when the owning store
hands back a role the directory does not serve.
*/
func TestService_UpdateProfile_UnservedRole(t *testing.T) {
	ctx := context.Background()
	directory := NewMemoryDirectory()
	directory.Patients = NewMemoryStore(sec.Role("guest"))
	service := NewService(directory, &outbox{}, slog.New(slog.DiscardHandler))

	stray := &Account{Email: "g@example.com", Patient: &PatientProfile{}}
	require.NoError(t, directory.Patients.Create(ctx, stray))

	_, err := service.UpdateProfile(ctx, &Account{ID: stray.ID, Role: sec.RolePatient}, UpdateProfileInput{Name: ptr("G")})
	require.Error(t, err)
	require.NotNil(t, apperr.As(err))
	assert.Equal(t, http.StatusInternalServerError, apperr.As(err).HTTPStatus)
}

/*
TestService_LoginHistory returns at most 20 entries, newest first.
*/
func TestService_LoginHistory(t *testing.T) {
	service, directory, _ := newTestService()
	ctx := context.Background()

	patient := &Account{Email: "p@example.com", Patient: &PatientProfile{}}
	require.NoError(t, directory.Patients.Create(ctx, patient))

	empty, err := service.LoginHistory(ctx, patient)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		require.NoError(t, directory.Patients.AppendLoginEntry(ctx, patient.ID, LoginEntry{
			Timestamp: start.Add(time.Duration(i) * time.Minute), Success: i%2 == 0,
		}))
	}

	history, err := service.LoginHistory(ctx, patient)
	require.NoError(t, err)
	require.Len(t, history, RecentLoginHistory)
	assert.Equal(t, start.Add(29*time.Minute), history[0].Timestamp)

	_, err = service.LoginHistory(ctx, &Account{ID: "c", Role: sec.RoleClinician})
	assert.Equal(t, http.StatusForbidden, apperr.As(err).HTTPStatus)
}

/*
TestService_Export redacts credentials and 2FA secrets.
*/
func TestService_Export(t *testing.T) {
	service, directory, _ := newTestService()
	ctx := context.Background()

	patient := &Account{Email: "p@example.com", PasswordHash: "hash", Patient: &PatientProfile{}}
	require.NoError(t, directory.Patients.Create(ctx, patient))
	require.NoError(t, directory.Patients.SaveTwoFactor(ctx, patient.ID, TwoFactor{
		Secret: "SECRET", Enabled: true, BackupCodes: []string{"AAAA1111"},
	}))

	export, err := service.Export(ctx, patient)
	require.NoError(t, err)
	assert.Empty(t, export.Profile.PasswordHash)
	assert.True(t, export.Profile.Patient.TwoFactor.Enabled)
	assert.Empty(t, export.Profile.Patient.TwoFactor.Secret)
	assert.Empty(t, export.Profile.Patient.TwoFactor.BackupCodes)
	assert.Equal(t, ExportDataTypes, export.DataTypes)
}

/*
TestService_AdminOperations creates accounts, lists and deletes patients.
*/
func TestService_AdminOperations(t *testing.T) {
	service, directory, notifier := newTestService()
	ctx := context.Background()

	// 1. Administrator with a chosen password
	admin, err := service.CreateAdministrator(ctx, CreateAccountInput{Name: "Root", Email: "root@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, sec.RoleAdministrator, admin.Role)
	ok, _ := sec.VerifyPassword("secret1", admin.PasswordHash)
	assert.True(t, ok)

	// 2. Clinician with a generated password
	clinician, temporary, err := service.CreateClinician(ctx, CreateClinicianInput{
		Name: "Dr Who", Email: "who@example.com", Specialty: "cardiology", Experience: 12,
	})
	require.NoError(t, err)
	assert.Len(t, temporary, 10)
	assert.True(t, clinician.Clinician.Available)

	stored, err := directory.Clinicians.FindByID(ctx, clinician.ID)
	require.NoError(t, err)
	ok, legacy := sec.VerifyPassword(temporary, stored.PasswordHash)
	assert.True(t, ok)
	assert.False(t, legacy)

	require.Len(t, notifier.messages, 2)
	assert.Contains(t, notifier.messages[1].HTML, temporary)

	// 3. List and delete patients
	patient := &Account{Email: "p@example.com", PasswordHash: "hash", Patient: &PatientProfile{}}
	require.NoError(t, directory.Patients.Create(ctx, patient))

	patients, total, err := service.ListPatients(ctx, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, patients[0].PasswordHash)

	require.NoError(t, service.DeletePatient(ctx, patient.ID))
	err = service.DeletePatient(ctx, patient.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
