// Copyright (c) 2026 JadeWellness. All rights reserved.

/*
Package account (Postgres) implements the relational variant of the account stores.

# Schema Table Mapping
  - identity.account: identity, credential, 2FA state and a jsonb profile, partitioned by role.
  - identity.loginhistory: patient login attempts, capped per account.
*/
package account

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jadewellness/backend/internal/platform/database/schema"
	"github.com/jadewellness/backend/internal/platform/dberr"
	"github.com/jadewellness/backend/internal/platform/sec"
	"github.com/jadewellness/backend/pkg/textnorm"
	"github.com/jadewellness/backend/pkg/uuid"
)

// profileColumn is the jsonb payload of the variant data.
type profileColumn struct {
	Birthdate          *time.Time `json:"birthdate,omitempty"`
	Gender             string     `json:"gender,omitempty"`
	MedicalCondition   string     `json:"medicalCondition,omitempty"`
	Phone              string     `json:"phone,omitempty"`
	Address            string     `json:"address,omitempty"`
	Specialty          string     `json:"specialty,omitempty"`
	Experience         int        `json:"experience,omitempty"`
	Qualifications     string     `json:"qualifications,omitempty"`
	QualificationsFile string     `json:"qualificationsFile,omitempty"`
	Available          *bool      `json:"available,omitempty"`
}

// # Repository Implementation

// PostgresStore implements [PatientStore] using pgx. One instance serves one role.
type PostgresStore struct {
	pool *pgxpool.Pool
	role sec.Role
}

// NewPostgresStore creates a store bound to role.
func NewPostgresStore(pool *pgxpool.Pool, role sec.Role) *PostgresStore {
	return &PostgresStore{pool: pool, role: role}
}

// NewPostgresDirectory creates the three role-bound stores over one pool.
func NewPostgresDirectory(pool *pgxpool.Pool) Directory {
	return Directory{
		Patients:       NewPostgresStore(pool, sec.RolePatient),
		Clinicians:     NewPostgresStore(pool, sec.RoleClinician),
		Administrators: NewPostgresStore(pool, sec.RoleAdministrator),
	}
}

// Role implements [Store].
func (repository *PostgresStore) Role() sec.Role { return repository.role }

/*
FindByID retrieves an account of this store's role, with login history for patients.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - *Account: Hydrated entity
  - error: ErrNotFound or database execution failure
*/
func (repository *PostgresStore) FindByID(context context.Context, id string) (*Account, error) {
	if !uuid.Valid(id) {
		return nil, ErrNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		strings.Join(schema.IdentityAccount.Columns(), ", "),
		schema.IdentityAccount.Table,
		schema.IdentityAccount.ID, schema.IdentityAccount.Role,
	)

	found, err := repository.scanAccount(repository.pool.QueryRow(context, query, id, repository.role))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_account_find_by_id_failed", ErrNotFound, nil)
	}

	if err := repository.loadHistory(context, found); err != nil {
		return nil, err
	}
	return found, nil
}

// FindByEmail implements [Store].
func (repository *PostgresStore) FindByEmail(context context.Context, email string) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE lower(%s) = $1 AND %s = $2`,
		strings.Join(schema.IdentityAccount.Columns(), ", "),
		schema.IdentityAccount.Table,
		schema.IdentityAccount.Email, schema.IdentityAccount.Role,
	)

	found, err := repository.scanAccount(repository.pool.QueryRow(context, query, textnorm.Email(email), repository.role))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_account_find_by_email_failed", ErrNotFound, nil)
	}

	if err := repository.loadHistory(context, found); err != nil {
		return nil, err
	}
	return found, nil
}

/*
Create inserts a new account row.

Description: The (role, lower(email)) unique index enforces per-store email
uniqueness; violations map to ErrDuplicateEmail.

Parameters:
  - context: context.Context
  - account: *Account

Returns:
  - error: ErrDuplicateEmail or database execution failure
*/
func (repository *PostgresStore) Create(context context.Context, account *Account) error {
	if account.ID == "" {
		account.ID = uuid.New()
	} else if !uuid.Valid(account.ID) {
		return fmt.Errorf("postgres_account_create_failed: invalid id %q", account.ID)
	}

	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	account.Role = repository.role

	profile, err := json.Marshal(profileOf(account))
	if err != nil {
		return fmt.Errorf("postgres_account_profile_encode_failed: %w", err)
	}

	twoFactor := account.TwoFactorState()
	codes := twoFactor.BackupCodes
	if codes == nil {
		codes = []string{}
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		schema.IdentityAccount.Table,
		strings.Join(schema.IdentityAccount.Columns(), ", "),
	)

	_, err = repository.pool.Exec(context, query,
		account.ID, repository.role, account.Email, account.Name, account.PasswordHash, profile,
		twoFactor.Secret, twoFactor.Enabled, codes,
		account.CreatedAt, account.UpdatedAt,
	)
	return dberr.Wrap(err, "postgres_account_create_failed", nil, ErrDuplicateEmail)
}

// Update implements [Store]. Only name, email and the profile document change.
func (repository *PostgresStore) Update(context context.Context, account *Account) error {
	if !uuid.Valid(account.ID) {
		return ErrNotFound
	}

	profile, err := json.Marshal(profileOf(account))
	if err != nil {
		return fmt.Errorf("postgres_account_profile_encode_failed: %w", err)
	}

	account.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2, %s = $3, %s = $4 WHERE %s = $5 AND %s = $6`,
		schema.IdentityAccount.Table,
		schema.IdentityAccount.Name, schema.IdentityAccount.Email,
		schema.IdentityAccount.Profile, schema.IdentityAccount.UpdatedAt,
		schema.IdentityAccount.ID, schema.IdentityAccount.Role,
	)

	tag, err := repository.pool.Exec(context, query,
		account.Name, account.Email, profile, account.UpdatedAt, account.ID, repository.role,
	)
	if err != nil {
		return dberr.Wrap(err, "postgres_account_update_failed", nil, ErrDuplicateEmail)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword implements [Store].
func (repository *PostgresStore) UpdatePassword(context context.Context, id, passwordHash string) error {
	if !uuid.Valid(id) {
		return ErrNotFound
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = now() WHERE %s = $2 AND %s = $3`,
		schema.IdentityAccount.Table,
		schema.IdentityAccount.Password, schema.IdentityAccount.UpdatedAt,
		schema.IdentityAccount.ID, schema.IdentityAccount.Role,
	)

	tag, err := repository.pool.Exec(context, query, passwordHash, id, repository.role)
	if err != nil {
		return dberr.Wrap(err, "postgres_account_update_password_failed", nil, nil)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements [Store]. Login history goes with it (ON DELETE CASCADE).
func (repository *PostgresStore) Delete(context context.Context, id string) error {
	if !uuid.Valid(id) {
		return ErrNotFound
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		schema.IdentityAccount.Table, schema.IdentityAccount.ID, schema.IdentityAccount.Role,
	)

	tag, err := repository.pool.Exec(context, query, id, repository.role)
	if err != nil {
		return dberr.Wrap(err, "postgres_account_delete_failed", nil, nil)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List implements [Store]. Login history is not loaded for listings.
func (repository *PostgresStore) List(context context.Context, offset, limit int) ([]*Account, int, error) {
	var total int
	countQuery := fmt.Sprintf(`SELECT count(*) FROM %s WHERE %s = $1`,
		schema.IdentityAccount.Table, schema.IdentityAccount.Role,
	)
	if err := repository.pool.QueryRow(context, countQuery, repository.role).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "postgres_account_count_failed", nil, nil)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s DESC, %s DESC OFFSET $2 LIMIT $3`,
		strings.Join(schema.IdentityAccount.Columns(), ", "),
		schema.IdentityAccount.Table, schema.IdentityAccount.Role,
		schema.IdentityAccount.CreatedAt, schema.IdentityAccount.ID,
	)

	rows, err := repository.pool.Query(context, query, repository.role, offset, limit)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "postgres_account_list_failed", nil, nil)
	}
	defer rows.Close()

	accounts := make([]*Account, 0, limit)
	for rows.Next() {
		item, err := repository.scanAccount(rows)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "postgres_account_list_scan_failed", nil, nil)
		}
		accounts = append(accounts, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "postgres_account_list_failed", nil, nil)
	}

	return accounts, total, nil
}

// # PatientStore Methods

// SaveTwoFactor implements [PatientStore].
func (repository *PostgresStore) SaveTwoFactor(context context.Context, id string, state TwoFactor) error {
	if !uuid.Valid(id) {
		return ErrNotFound
	}

	codes := state.BackupCodes
	if codes == nil {
		codes = []string{}
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2, %s = $3, %s = now() WHERE %s = $4 AND %s = $5`,
		schema.IdentityAccount.Table,
		schema.IdentityAccount.TwoFactorSecret, schema.IdentityAccount.TwoFactorEnabled,
		schema.IdentityAccount.BackupCodes, schema.IdentityAccount.UpdatedAt,
		schema.IdentityAccount.ID, schema.IdentityAccount.Role,
	)

	tag, err := repository.pool.Exec(context, query, state.Secret, state.Enabled, codes, id, repository.role)
	if err != nil {
		return dberr.Wrap(err, "postgres_account_save_two_factor_failed", nil, nil)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

/*
ConsumeBackupCode removes a backup code in a single conditional UPDATE.

Description: The row only matches while the array still contains the code, so
of two concurrent callers exactly one sees a modified row.

Returns:
  - bool: true when the code was present and has been removed
  - error: database execution failure
*/
func (repository *PostgresStore) ConsumeBackupCode(context context.Context, id, code string) (bool, error) {
	if !uuid.Valid(id) || code == "" {
		return false, nil
	}

	query := fmt.Sprintf(`UPDATE %s SET %s = array_remove(%s, $1), %s = now() WHERE %s = $2 AND %s = $3 AND $1 = ANY(%s)`,
		schema.IdentityAccount.Table,
		schema.IdentityAccount.BackupCodes, schema.IdentityAccount.BackupCodes,
		schema.IdentityAccount.UpdatedAt,
		schema.IdentityAccount.ID, schema.IdentityAccount.Role,
		schema.IdentityAccount.BackupCodes,
	)

	tag, err := repository.pool.Exec(context, query, code, id, repository.role)
	if err != nil {
		return false, dberr.Wrap(err, "postgres_account_consume_backup_code_failed", nil, nil)
	}
	return tag.RowsAffected() == 1, nil
}

// AppendLoginEntry implements [PatientStore]; the insert and the trim share a transaction.
func (repository *PostgresStore) AppendLoginEntry(context context.Context, id string, entry LoginEntry) error {
	if !uuid.Valid(id) {
		return ErrNotFound
	}

	table := schema.IdentityLoginHistory
	return pgx.BeginFunc(context, repository.pool, func(tx pgx.Tx) error {
		insert := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s) VALUES ($1, $2, $3, $4, $5)`,
			table.Table, table.AccountID, table.Timestamp, table.IPAddress, table.UserAgent, table.Success,
		)
		if _, err := tx.Exec(context, insert, id, entry.Timestamp, entry.IPAddress, entry.UserAgent, entry.Success); err != nil {
			return dberr.Wrap(err, "postgres_login_history_insert_failed", nil, nil)
		}

		trim := fmt.Sprintf(`DELETE FROM %[1]s WHERE %[2]s = $1 AND %[3]s NOT IN (
			SELECT %[3]s FROM %[1]s WHERE %[2]s = $1 ORDER BY %[4]s DESC, %[3]s DESC LIMIT $2)`,
			table.Table, table.AccountID, table.ID, table.Timestamp,
		)
		if _, err := tx.Exec(context, trim, id, MaxLoginHistory); err != nil {
			return dberr.Wrap(err, "postgres_login_history_trim_failed", nil, nil)
		}
		return nil
	})
}

// # Scanning

func (repository *PostgresStore) scanAccount(row pgx.Row) (*Account, error) {
	var (
		found     Account
		profile   []byte
		twoFactor TwoFactor
	)

	err := row.Scan(
		&found.ID, &found.Role, &found.Email, &found.Name, &found.PasswordHash, &profile,
		&twoFactor.Secret, &twoFactor.Enabled, &twoFactor.BackupCodes,
		&found.CreatedAt, &found.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var variant profileColumn
	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &variant); err != nil {
			return nil, fmt.Errorf("profile decode: %w", err)
		}
	}

	switch found.Role {
	case sec.RolePatient:
		found.Patient = &PatientProfile{
			Birthdate:        variant.Birthdate,
			Gender:           variant.Gender,
			MedicalCondition: variant.MedicalCondition,
			Phone:            variant.Phone,
			Address:          variant.Address,
			TwoFactor:        twoFactor,
		}
	case sec.RoleClinician:
		found.Clinician = &ClinicianProfile{
			Specialty:          variant.Specialty,
			Phone:              variant.Phone,
			Experience:         variant.Experience,
			Qualifications:     variant.Qualifications,
			QualificationsFile: variant.QualificationsFile,
			Available:          variant.Available == nil || *variant.Available,
		}
	}

	return &found, nil
}

func (repository *PostgresStore) loadHistory(context context.Context, found *Account) error {
	if found.Patient == nil {
		return nil
	}

	table := schema.IdentityLoginHistory
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s FROM (
		SELECT * FROM %s WHERE %s = $1 ORDER BY %s DESC, %s DESC LIMIT $2
	) newest ORDER BY %s ASC, %s ASC`,
		table.Timestamp, table.IPAddress, table.UserAgent, table.Success,
		table.Table, table.AccountID, table.Timestamp, table.ID,
		table.Timestamp, table.ID,
	)

	rows, err := repository.pool.Query(context, query, found.ID, MaxLoginHistory)
	if err != nil {
		return dberr.Wrap(err, "postgres_login_history_query_failed", nil, nil)
	}

	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (LoginEntry, error) {
		var entry LoginEntry
		err := row.Scan(&entry.Timestamp, &entry.IPAddress, &entry.UserAgent, &entry.Success)
		return entry, err
	})
	if err != nil {
		return dberr.Wrap(err, "postgres_login_history_scan_failed", nil, nil)
	}

	found.Patient.LoginHistory = history
	return nil
}

// profileOf extracts the jsonb payload from the account's variant data.
func profileOf(account *Account) profileColumn {
	var column profileColumn
	if patient := account.Patient; patient != nil {
		column.Birthdate = patient.Birthdate
		column.Gender = patient.Gender
		column.MedicalCondition = patient.MedicalCondition
		column.Phone = patient.Phone
		column.Address = patient.Address
	}
	if clinician := account.Clinician; clinician != nil {
		available := clinician.Available
		column.Specialty = clinician.Specialty
		column.Phone = clinician.Phone
		column.Experience = clinician.Experience
		column.Qualifications = clinician.Qualifications
		column.QualificationsFile = clinician.QualificationsFile
		column.Available = &available
	}
	return column
}
