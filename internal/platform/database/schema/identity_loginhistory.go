// Copyright (c) 2026 JadeWellness. All rights reserved.

package schema

// IdentityLoginHistoryTable represents the 'identity.loginhistory' table
type IdentityLoginHistoryTable struct {
	Table     string
	ID        string
	AccountID string
	Timestamp string
	IPAddress string
	UserAgent string
	Success   string
}

// IdentityLoginHistory is the schema definition for identity.loginhistory
var IdentityLoginHistory = IdentityLoginHistoryTable{
	Table:     "identity.loginhistory",
	ID:        "id",
	AccountID: "accountid",
	Timestamp: "occurredat",
	IPAddress: "ipaddress",
	UserAgent: "useragent",
	Success:   "success",
}
