// Copyright (c) 2026 JadeWellness. All rights reserved.

package twofactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadewellness/backend/internal/platform/apperr"
	"github.com/jadewellness/backend/internal/platform/mail"
	"github.com/jadewellness/backend/internal/platform/sec"
	"github.com/jadewellness/backend/internal/users/account"
)

// stepAligned is the start of a TOTP step, so skew boundaries are exact.
var stepAligned = time.Unix(1700000010, 0).UTC()

type fixture struct {
	store      *account.MemoryStore
	service    *Service
	mailbox    *mail.Recorder
	dispatcher *mail.Dispatcher
	patient    *account.Account
}

func newFixture(t *testing.T, qr QRRenderer) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	store := account.NewMemoryStore(sec.RolePatient)
	mailbox := &mail.Recorder{}
	dispatcher := mail.NewDispatcher(mailbox, logger)

	service := NewService(store, qr, dispatcher, logger)
	service.now = func() time.Time { return stepAligned }

	patient := &account.Account{Email: "pat@example.com", Name: "Pat", Patient: &account.PatientProfile{}}
	require.NoError(t, store.Create(context.Background(), patient))

	return &fixture{store: store, service: service, mailbox: mailbox, dispatcher: dispatcher, patient: patient}
}

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, validateOpts)
	require.NoError(t, err)
	return code
}

// wrongCode returns a six-digit code that no step inside the skew window produces.
func wrongCode(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	accepted := make(map[string]bool)
	for step := -Skew; step <= Skew; step++ {
		accepted[codeAt(t, secret, at.Add(time.Duration(step)*Period*time.Second))] = true
	}
	for candidate := 0; ; candidate++ {
		code := fmt.Sprintf("%06d", candidate)
		if !accepted[code] {
			return code
		}
	}
}

func status(err error) int {
	if appError := apperr.As(err); appError != nil {
		return appError.HTTPStatus
	}
	return 0
}

/*
TestService_StateMachine walks disabled, setup-initiated, enabled and back to disabled.
*/
func TestService_StateMachine(t *testing.T) {
	f := newFixture(t, PNGRenderer{})
	ctx := context.Background()

	// 1. Setup issues a secret and ten codes, still disabled
	enrollment, err := f.service.Setup(ctx, f.patient)
	require.NoError(t, err)
	assert.Len(t, enrollment.BackupCodes, BackupCodeCount)
	for _, code := range enrollment.BackupCodes {
		assert.Len(t, code, BackupCodeLength)
		assert.Equal(t, strings.ToUpper(code), code)
	}
	assert.True(t, strings.HasPrefix(enrollment.QRCode, "data:image/png;base64,"))
	assert.Equal(t, SetupMessage, enrollment.Message)

	state, err := f.service.Status(ctx, f.patient)
	require.NoError(t, err)
	assert.Equal(t, Status{TwoFactorEnabled: false, BackupCodesCount: 10}, *state)

	// 2. Setup email carries the codes
	f.dispatcher.Wait()
	messages := f.mailbox.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].HTML, enrollment.BackupCodes[0])

	// 3. Verification rules
	assert.ErrorIs(t, f.service.VerifySetup(ctx, f.patient, ""), ErrTokenRequired)
	assert.ErrorIs(t, f.service.VerifySetup(ctx, f.patient, "000000x"), ErrInvalidToken)
	assert.ErrorIs(t, f.service.VerifySetup(ctx, f.patient, wrongCode(t, enrollment.Secret, stepAligned)), ErrInvalidToken)

	state, err = f.service.Status(ctx, f.patient)
	require.NoError(t, err)
	assert.False(t, state.TwoFactorEnabled)

	require.NoError(t, f.service.VerifySetup(ctx, f.patient, codeAt(t, enrollment.Secret, stepAligned)))

	state, err = f.service.Status(ctx, f.patient)
	require.NoError(t, err)
	assert.True(t, state.TwoFactorEnabled)

	// 4. Setup again is rejected with 400
	_, err = f.service.Setup(ctx, f.patient)
	assert.ErrorIs(t, err, ErrAlreadyEnabled)
	assert.Equal(t, http.StatusBadRequest, status(err))

	// 5. Disable with a backup code clears everything
	assert.ErrorIs(t, f.service.Disable(ctx, f.patient, "WRONGCODE"), ErrInvalidProof)
	require.NoError(t, f.service.Disable(ctx, f.patient, enrollment.BackupCodes[3]))

	stored, err := f.store.FindByID(ctx, f.patient.ID)
	require.NoError(t, err)
	assert.False(t, stored.Patient.TwoFactor.Enabled)
	assert.Empty(t, stored.Patient.TwoFactor.Secret)
	assert.Empty(t, stored.Patient.TwoFactor.BackupCodes)

	// 6. Disable again requires it to be enabled
	assert.ErrorIs(t, f.service.Disable(ctx, f.patient, enrollment.BackupCodes[4]), ErrNotEnabled)
}

/*
TestService_VerifySetup_WithoutSetup reports the missing secret.
*/
func TestService_VerifySetup_WithoutSetup(t *testing.T) {
	f := newFixture(t, PNGRenderer{})
	assert.ErrorIs(t, f.service.VerifySetup(context.Background(), f.patient, "123456"), ErrNotSetUp)
}

/*
TestService_Skew accepts codes up to two steps away and rejects three.
*/
func TestService_Skew(t *testing.T) {
	f := newFixture(t, PNGRenderer{})
	ctx := context.Background()

	enrollment, err := f.service.Setup(ctx, f.patient)
	require.NoError(t, err)

	stale := codeAt(t, enrollment.Secret, stepAligned.Add(-3*Period*time.Second))
	assert.ErrorIs(t, f.service.VerifySetup(ctx, f.patient, stale), ErrInvalidToken)

	drifted := codeAt(t, enrollment.Secret, stepAligned.Add(-2*Period*time.Second))
	assert.NoError(t, f.service.VerifySetup(ctx, f.patient, drifted))
}

/*
TestService_VerifyLogin covers lookup failures and single-use backup codes.
*/
func TestService_VerifyLogin(t *testing.T) {
	f := newFixture(t, PNGRenderer{})
	ctx := context.Background()

	// 1. Not enabled yet
	assert.ErrorIs(t, f.service.VerifyLogin(ctx, "pat@example.com", "123456"), ErrNotEnabledForUser)
	assert.ErrorIs(t, f.service.VerifyLogin(ctx, "ghost@example.com", "123456"), ErrNotEnabledForUser)
	assert.ErrorIs(t, f.service.VerifyLogin(ctx, "", "123456"), ErrLoginFieldsMissing)

	enrollment, err := f.service.Setup(ctx, f.patient)
	require.NoError(t, err)
	require.NoError(t, f.service.VerifySetup(ctx, f.patient, codeAt(t, enrollment.Secret, stepAligned)))

	// 2. TOTP, case-insensitive email
	assert.NoError(t, f.service.VerifyLogin(ctx, "PAT@example.com", codeAt(t, enrollment.Secret, stepAligned)))

	// 3. A backup code works exactly once
	code := enrollment.BackupCodes[0]
	assert.NoError(t, f.service.VerifyLogin(ctx, "pat@example.com", code))
	assert.ErrorIs(t, f.service.VerifyLogin(ctx, "pat@example.com", code), ErrInvalidProof)

	state, err := f.service.Status(ctx, f.patient)
	require.NoError(t, err)
	assert.Equal(t, 9, state.BackupCodesCount)
}

/*
TestService_BackupCodesSingleUse spends one code twice and then every other code once.
*/
func TestService_BackupCodesSingleUse(t *testing.T) {
	f := newFixture(t, PNGRenderer{})
	ctx := context.Background()

	enrollment, err := f.service.Setup(ctx, f.patient)
	require.NoError(t, err)
	require.NoError(t, f.service.VerifySetup(ctx, f.patient, codeAt(t, enrollment.Secret, stepAligned)))

	// 1. The same code is refused the second time
	spent := enrollment.BackupCodes[3]
	require.NoError(t, f.service.VerifyLogin(ctx, "pat@example.com", spent))
	assert.ErrorIs(t, f.service.VerifyLogin(ctx, "pat@example.com", spent), ErrInvalidProof)

	// 2. The remaining nine still work
	for i, code := range enrollment.BackupCodes {
		if i == 3 {
			continue
		}
		assert.NoError(t, f.service.VerifyLogin(ctx, "pat@example.com", code), "backup code %d", i)
	}

	state, err := f.service.Status(ctx, f.patient)
	require.NoError(t, err)
	assert.Zero(t, state.BackupCodesCount)
	assert.True(t, state.TwoFactorEnabled)
}

/*
TestService_BackupCodeRace presents one backup code concurrently; only one caller wins.
*/
func TestService_BackupCodeRace(t *testing.T) {
	f := newFixture(t, PNGRenderer{})
	ctx := context.Background()

	enrollment, err := f.service.Setup(ctx, f.patient)
	require.NoError(t, err)
	require.NoError(t, f.service.VerifySetup(ctx, f.patient, codeAt(t, enrollment.Secret, stepAligned)))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.service.VerifyLogin(ctx, "pat@example.com", enrollment.BackupCodes[5]) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

/*
TestService_NonPatient rejects clinicians and administrators with 403.
*/
func TestService_NonPatient(t *testing.T) {
	f := newFixture(t, PNGRenderer{})
	clinician := &account.Account{ID: "c1", Role: sec.RoleClinician}

	_, err := f.service.Setup(context.Background(), clinician)
	assert.ErrorIs(t, err, ErrNotPatient)
	assert.Equal(t, http.StatusForbidden, status(err))

	_, err = f.service.Status(context.Background(), clinician)
	assert.ErrorIs(t, err, ErrNotPatient)
}

type brokenQR struct{}

func (brokenQR) Render(string) (string, error) { return "", errors.New("renderer offline") }

/*
TestService_Setup_QRFailure still enrols and leaves qrCode empty.
*/
func TestService_Setup_QRFailure(t *testing.T) {
	f := newFixture(t, brokenQR{})

	enrollment, err := f.service.Setup(context.Background(), f.patient)
	require.NoError(t, err)
	assert.Empty(t, enrollment.QRCode)
	assert.NotEmpty(t, enrollment.Secret)
}

/*
TestNewKey binds the issuer and the account label.
*/
func TestNewKey(t *testing.T) {
	key, err := newKey("pat@example.com")
	require.NoError(t, err)

	assert.Equal(t, Issuer, key.Issuer())
	assert.Equal(t, "JadeWellness (pat@example.com)", key.AccountName())
	assert.Len(t, key.Secret(), 32)
}
