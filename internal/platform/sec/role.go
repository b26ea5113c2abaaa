// Copyright (c) 2026 JadeWellness. All rights reserved.

package sec

// # Account Roles

// Role identifies which account store a principal was loaded from.
//
// It is never accepted from client input: the store that returns a record
// decides its role.
type Role string

const (
	// RolePatient is the self-registered member of the platform.
	RolePatient Role = "patient"

	// RoleClinician is a doctor account provisioned by an administrator.
	RoleClinician Role = "clinician"

	// RoleAdministrator has unrestricted access to the admin surface.
	RoleAdministrator Role = "administrator"
)

// Precedence is the fixed order in which account stores are probed when an
// id or email could resolve in more than one of them. Patients win.
var Precedence = []Role{RolePatient, RoleClinician, RoleAdministrator}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleClinician, RoleAdministrator:
		return true
	default:
		return false
	}
}

// In reports whether r is contained in roles.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }
