// Copyright (c) 2026 JadeWellness. All rights reserved.

// Package postgres provides the managed PostgreSQL connection pool used by
// STORE_DRIVER=postgres.
//
// # Architecture
//
// The pool backs [account.PostgresStore]. Every physical connection is pinned
// to the identity schema and carries a statement timeout no longer than the
// request deadline.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jadewellness/backend/internal/platform/constants"
)

// Pool sizing for an identity workload: short queries, bursty logins.
const (
	maxConns          = 10
	minConns          = 2
	maxConnLifetime   = 30 * time.Minute
	maxConnIdleTime   = 5 * time.Minute
	healthCheckPeriod = time.Minute
	connectTimeout    = 5 * time.Second
)

// runtimeParams are sent in the startup packet of every connection.
func runtimeParams() map[string]string {
	return map[string]string{
		"search_path":       "identity, public",
		"application_name":  constants.AppName,
		"statement_timeout": strconv.FormatInt(constants.GlobalRequestTimeout.Milliseconds(), 10),
	}
}

// NewPool parses dsn, opens the pool and pings it once.
//
// # Parameters
//   - ctx: Context for the initial connection attempt.
//   - dsn: A libpq-compatible connection string or postgres:// URL.
//   - logger: Structured logger for pool-level events.
func NewPool(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres_parse_dsn_failed: %w", err)
	}

	config.MaxConns = maxConns
	config.MinConns = minConns
	config.MaxConnLifetime = maxConnLifetime
	config.MaxConnIdleTime = maxConnIdleTime
	config.HealthCheckPeriod = healthCheckPeriod
	config.ConnConfig.ConnectTimeout = connectTimeout
	for name, value := range runtimeParams() {
		config.ConnConfig.RuntimeParams[name] = value
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("postgres_create_pool_failed: %w", err)
	}

	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres_pool_connected",
		slog.String("host", config.ConnConfig.Host),
		slog.String("database", config.ConnConfig.Database),
		slog.Int("max_conns", int(config.MaxConns)),
	)

	return pool, nil
}

// Ping verifies that the pool can reach the server within [constants.DependencyCheckTimeout].
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, constants.DependencyCheckTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres_ping_failed: %w", err)
	}
	return nil
}
