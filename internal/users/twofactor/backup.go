// Copyright (c) 2026 JadeWellness. All rights reserved.

package twofactor

import (
	"fmt"

	"github.com/jadewellness/backend/internal/platform/sec"
)

const (
	// BackupCodeCount is how many recovery codes each setup issues.
	BackupCodeCount = 10

	// BackupCodeLength is the length of one recovery code.
	BackupCodeLength = 8
)

// newBackupCodes draws a fresh set of single-use recovery codes.
func newBackupCodes() ([]string, error) {
	codes := make([]string, 0, BackupCodeCount)
	for len(codes) < BackupCodeCount {
		code, err := sec.RandomString(sec.UpperAlphanumeric, BackupCodeLength)
		if err != nil {
			return nil, fmt.Errorf("twofactor_backup_codes_failed: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, nil
}
