// Copyright (c) 2026 JadeWellness. All rights reserved.

/*
Package redis provides a managed client for volatile shared state.

The identity API uses it for one thing: the fixed-window counters of the auth
endpoint limiter, so that several API replicas enforce one budget per client.
Without REDIS_URL the limiter falls back to process-local counters.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jadewellness/backend/internal/platform/constants"
)

// The limiter issues an INCR and at most two follow-up calls per auth request,
// so a small pool is enough and a slow Redis should fail fast.
const (
	poolSize     = 5
	minIdleConns = 1
	dialTimeout  = 2 * time.Second
	ioTimeout    = 500 * time.Millisecond
)

// NewClient parses redisURL, pings the server and returns the client.
//
// # Parameters
//   - context: Context for the initial ping.
//   - redisURL: redis:// or rediss:// connection URL.
//   - logger: Structured logger for connection events.
func NewClient(context stdctx.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis_parse_url_failed: %w", err)
	}

	options.ClientName = constants.AppName
	options.PoolSize = poolSize
	options.MinIdleConns = minIdleConns
	options.DialTimeout = dialTimeout
	options.ReadTimeout = ioTimeout
	options.WriteTimeout = ioTimeout

	client := redis.NewClient(options)
	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", options.Addr),
		slog.Int("db", options.DB),
	)

	return client, nil
}

// Ping verifies that the server answers within [constants.DependencyCheckTimeout].
func Ping(context stdctx.Context, client *redis.Client) error {
	pingCtx, cancel := stdctx.WithTimeout(context, constants.DependencyCheckTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis_ping_failed: %w", err)
	}
	return nil
}
