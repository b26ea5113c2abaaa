// Copyright (c) 2026 JadeWellness. All rights reserved.

// Package migration applies the identity schema migrations with golang-migrate.
//
// It runs once at startup when STORE_DRIVER=postgres, before the pool serves
// traffic. A dirty database stops the boot; it needs an operator.
package migration

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5 driver registers the "pgx5" scheme for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// file source reads .sql files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// pgx5Scheme is the scheme golang-migrate's pgx/v5 driver registers.
const pgx5Scheme = "pgx5://"

// RunUp applies all pending UP migrations.
//
// # Parameters
//   - dsn: A postgres:// or postgresql:// URL.
//   - migrationsPath: Filesystem path to the migrations directory.
//   - logger: Structured logger for migration events.
func RunUp(dsn string, migrationsPath string, logger *slog.Logger) error {
	migrator, err := migrate.New("file://"+migrationsPath, DatabaseURL(dsn))
	if err != nil {
		return fmt.Errorf("migration: failed to initialize: %w", err)
	}
	defer func() {
		sourceError, dbError := migrator.Close()
		if err := errors.Join(sourceError, dbError); err != nil {
			logger.Error("migration_close_failed", slog.Any("error", err))
		}
	}()

	migrator.Log = &slogBridge{logger: logger}

	fromVersion, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration: failed to get current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration: database is dirty at version %d", fromVersion)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migration_up_to_date", slog.Uint64("version", uint64(fromVersion)))
			return nil
		}
		return fmt.Errorf("migration: up failed: %w", err)
	}

	toVersion, _, _ := migrator.Version()
	logger.Info("migration_applied",
		slog.Uint64("from_version", uint64(fromVersion)),
		slog.Uint64("to_version", uint64(toVersion)),
	)
	return nil
}

// DatabaseURL rewrites a postgres:// or postgresql:// URL to the pgx5 scheme.
// Other values are returned unchanged.
func DatabaseURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return pgx5Scheme + rest
		}
	}
	return dsn
}

// slogBridge adapts golang-migrate's logger interface to slog.
type slogBridge struct {
	logger *slog.Logger
}

// Printf implements migrate.Logger.
func (bridge *slogBridge) Printf(format string, args ...any) {
	bridge.logger.Debug("migration_progress", slog.String("detail", strings.TrimSpace(fmt.Sprintf(format, args...))))
}

// Verbose implements migrate.Logger.
func (bridge *slogBridge) Verbose() bool {
	return false
}
