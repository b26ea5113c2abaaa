// Copyright (c) 2026 JadeWellness. All rights reserved.

package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jadewellness/backend/internal/platform/sec"
	"github.com/jadewellness/backend/pkg/textnorm"
	"github.com/jadewellness/backend/pkg/uuid"
)

// MemoryStore is a process-local [PatientStore], used by STORE_DRIVER=memory and tests.
//
// # Concurrency
//
// All operations hold a single mutex, which also makes ConsumeBackupCode atomic.
type MemoryStore struct {
	mu       sync.Mutex
	role     sec.Role
	accounts map[string]*Account
	now      func() time.Time
}

// NewMemoryStore creates an empty store for the given role.
func NewMemoryStore(role sec.Role) *MemoryStore {
	return &MemoryStore{
		role:     role,
		accounts: make(map[string]*Account),
		now:      time.Now,
	}
}

// NewMemoryDirectory creates three empty in-memory stores.
func NewMemoryDirectory() Directory {
	return Directory{
		Patients:       NewMemoryStore(sec.RolePatient),
		Clinicians:     NewMemoryStore(sec.RoleClinician),
		Administrators: NewMemoryStore(sec.RoleAdministrator),
	}
}

// Role implements [Store].
func (store *MemoryStore) Role() sec.Role { return store.role }

// FindByID implements [Store].
func (store *MemoryStore) FindByID(_ context.Context, id string) (*Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	found, ok := store.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return found.clone(), nil
}

// FindByEmail implements [Store].
func (store *MemoryStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	found := store.findByEmailLocked(email)
	if found == nil {
		return nil, ErrNotFound
	}
	return found.clone(), nil
}

// Create implements [Store]. A caller-supplied ID is kept, which lets fixtures
// plant the same ID in several stores.
func (store *MemoryStore) Create(_ context.Context, account *Account) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.findByEmailLocked(account.Email) != nil {
		return ErrDuplicateEmail
	}

	if account.ID == "" {
		account.ID = uuid.New()
	}
	if _, exists := store.accounts[account.ID]; exists {
		return fmt.Errorf("memory_store_create_failed: id %s already present", account.ID)
	}

	now := store.now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	account.Role = store.role

	store.accounts[account.ID] = account.clone()
	return nil
}

// Update implements [Store].
func (store *MemoryStore) Update(_ context.Context, account *Account) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	existing, ok := store.accounts[account.ID]
	if !ok {
		return ErrNotFound
	}
	if other := store.findByEmailLocked(account.Email); other != nil && other.ID != account.ID {
		return ErrDuplicateEmail
	}

	updated := account.clone()
	updated.Role = store.role
	updated.PasswordHash = existing.PasswordHash
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = store.now()
	if existing.Patient != nil && updated.Patient != nil {
		// 2FA state and history have dedicated writers.
		updated.Patient.TwoFactor = existing.clone().Patient.TwoFactor
		updated.Patient.LoginHistory = existing.clone().Patient.LoginHistory
	}

	store.accounts[account.ID] = updated
	account.UpdatedAt = updated.UpdatedAt
	return nil
}

// UpdatePassword implements [Store].
func (store *MemoryStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	existing, ok := store.accounts[id]
	if !ok {
		return ErrNotFound
	}
	existing.PasswordHash = passwordHash
	existing.UpdatedAt = store.now()
	return nil
}

// Delete implements [Store].
func (store *MemoryStore) Delete(_ context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, ok := store.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(store.accounts, id)
	return nil
}

// List implements [Store].
func (store *MemoryStore) List(_ context.Context, offset, limit int) ([]*Account, int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	all := make([]*Account, 0, len(store.accounts))
	for _, candidate := range store.accounts {
		all = append(all, candidate)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []*Account{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]*Account, 0, end-offset)
	for _, item := range all[offset:end] {
		page = append(page, item.clone())
	}
	return page, total, nil
}

// SaveTwoFactor implements [PatientStore].
func (store *MemoryStore) SaveTwoFactor(_ context.Context, id string, state TwoFactor) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	existing, ok := store.accounts[id]
	if !ok {
		return ErrNotFound
	}
	if existing.Patient == nil {
		existing.Patient = &PatientProfile{}
	}
	existing.Patient.TwoFactor = TwoFactor{
		Secret:      state.Secret,
		Enabled:     state.Enabled,
		BackupCodes: append([]string(nil), state.BackupCodes...),
	}
	existing.UpdatedAt = store.now()
	return nil
}

// ConsumeBackupCode implements [PatientStore].
func (store *MemoryStore) ConsumeBackupCode(_ context.Context, id, code string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	existing, ok := store.accounts[id]
	if !ok {
		return false, ErrNotFound
	}
	if existing.Patient == nil || code == "" {
		return false, nil
	}

	codes := existing.Patient.TwoFactor.BackupCodes
	for i, candidate := range codes {
		if candidate == code {
			existing.Patient.TwoFactor.BackupCodes = append(codes[:i:i], codes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// AppendLoginEntry implements [PatientStore].
func (store *MemoryStore) AppendLoginEntry(_ context.Context, id string, entry LoginEntry) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	existing, ok := store.accounts[id]
	if !ok {
		return ErrNotFound
	}
	if existing.Patient == nil {
		existing.Patient = &PatientProfile{}
	}
	existing.Patient.LoginHistory = trimHistory(append(existing.Patient.LoginHistory, entry))
	return nil
}

func (store *MemoryStore) findByEmailLocked(email string) *Account {
	wanted := textnorm.Email(email)
	for _, candidate := range store.accounts {
		if textnorm.Email(candidate.Email) == wanted {
			return candidate
		}
	}
	return nil
}
