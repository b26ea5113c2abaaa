// Copyright (c) 2026 JadeWellness. All rights reserved.

package account

import (
	"context"
	"fmt"

	"github.com/jadewellness/backend/internal/platform/sec"
)

// # Account Data Access

// Store is the persistence contract of one account kind.
//
// Every method returns [ErrNotFound] (possibly wrapped) when the record is
// absent, so callers can tell a miss from a storage failure.
type Store interface {

	// Role is the kind of account this store holds. Records it returns carry it.
	Role() sec.Role

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Account: Hydrated entity
		  - error: ErrNotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*Account, error)

	/*
		FindByEmail returns the account with the given email, compared case-insensitively.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *Account: Hydrated entity
		  - error: ErrNotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*Account, error)

	/*
		Create persists a brand-new account and assigns its ID and timestamps.

		Returns:
		  - error: ErrDuplicateEmail or persistence failures
	*/
	Create(context context.Context, account *Account) error

	// Update persists changes to mutable profile fields (name, email, variant data).
	Update(context context.Context, account *Account) error

	// UpdatePassword replaces only the stored credential hash.
	UpdatePassword(context context.Context, id, passwordHash string) error

	// Delete removes the account.
	Delete(context context.Context, id string) error

	// List returns a page of accounts, newest first, plus the total count.
	List(context context.Context, offset, limit int) ([]*Account, int, error)
}

// PatientStore extends [Store] with the patient-only state.
type PatientStore interface {
	Store

	// SaveTwoFactor overwrites the account's secret, enabled flag and backup codes.
	SaveTwoFactor(context context.Context, id string, state TwoFactor) error

	// ConsumeBackupCode removes code from the account's backup codes if present.
	//
	// The check and the removal are a single atomic operation, so two concurrent
	// callers presenting the same code cannot both succeed.
	ConsumeBackupCode(context context.Context, id, code string) (bool, error)

	// AppendLoginEntry records a login attempt, keeping the newest MaxLoginHistory.
	AppendLoginEntry(context context.Context, id string, entry LoginEntry) error
}

// # Directory

// Directory groups the three account stores.
type Directory struct {
	Patients       PatientStore
	Clinicians     Store
	Administrators Store
}

// Ordered returns the stores in role precedence: patients, clinicians, administrators.
//
// An id or email present in more than one store resolves to the first hit.
// Ids are store-generated and collisions are not expected; the order is kept
// because it is observable.
func (directory Directory) Ordered() []Store {
	return []Store{directory.Patients, directory.Clinicians, directory.Administrators}
}

// ForRole returns the store holding accounts of the given role.
func (directory Directory) ForRole(role sec.Role) (Store, error) {
	switch role {
	case sec.RolePatient:
		return directory.Patients, nil
	case sec.RoleClinician:
		return directory.Clinicians, nil
	case sec.RoleAdministrator:
		return directory.Administrators, nil
	default:
		return nil, fmt.Errorf("account: unknown role %q", role)
	}
}
