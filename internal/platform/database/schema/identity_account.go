// Copyright (c) 2026 JadeWellness. All rights reserved.

// Package schema names the PostgreSQL tables and columns used by the stores.
package schema

// IdentityAccountTable represents the 'identity.account' table.
//
// All three account kinds share the table; Role partitions it and the email
// index is unique per role only.
type IdentityAccountTable struct {
	Table            string
	ID               string
	Role             string
	Email            string
	Name             string
	Password         string
	Profile          string
	TwoFactorSecret  string
	TwoFactorEnabled string
	BackupCodes      string
	CreatedAt        string
	UpdatedAt        string
}

// IdentityAccount is the schema definition for identity.account
var IdentityAccount = IdentityAccountTable{
	Table:            "identity.account",
	ID:               "id",
	Role:             "role",
	Email:            "email",
	Name:             "name",
	Password:         "passwordhash",
	Profile:          "profile",
	TwoFactorSecret:  "twofactorsecret",
	TwoFactorEnabled: "twofactorenabled",
	BackupCodes:      "backupcodes",
	CreatedAt:        "createdat",
	UpdatedAt:        "updatedat",
}

// Columns returns the column list in the order the stores scan it.
func (t IdentityAccountTable) Columns() []string {
	return []string{
		t.ID, t.Role, t.Email, t.Name, t.Password, t.Profile,
		t.TwoFactorSecret, t.TwoFactorEnabled, t.BackupCodes,
		t.CreatedAt, t.UpdatedAt,
	}
}
