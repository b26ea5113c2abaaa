// Copyright (c) 2026 JadeWellness. All rights reserved.

/*
Package mongo provides the managed MongoDB client used by the default account store.

The JadeWellness records live in the "users", "doctors" and "admins"
collections of one database; the client is shared by all three stores.
*/
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/jadewellness/backend/internal/platform/constants"
)

// Connection tuning.
const (
	connectTimeout    = 10 * time.Second
	disconnectTimeout = 5 * time.Second
	pingTimeout       = constants.DependencyCheckTimeout
	maxPoolSize       = 20
)

// Connect dials uri, verifies the primary and returns the client with its database.
//
// # Parameters
//   - ctx: Context for the initial connection and ping.
//   - uri: mongodb:// or mongodb+srv:// connection string.
//   - database: Database holding the account collections.
//   - logger: Structured logger for connection events.
func Connect(ctx context.Context, uri, database string, logger *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetAppName(constants.AppName).
		SetMaxPoolSize(maxPoolSize).
		SetTimeout(constants.GlobalRequestTimeout)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo: failed to connect: %w", err)
	}

	if err := Ping(connectCtx, client); err != nil {
		_ = Disconnect(client)
		return nil, nil, err
	}

	logger.Info("mongo_client_connected", slog.String("database", database))

	return client, client.Database(database), nil
}

// Ping verifies that the primary is reachable.
func Ping(ctx context.Context, client *mongo.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo: ping failed: %w", err)
	}
	return nil
}

// Disconnect closes the client's connections with a bounded wait.
func Disconnect(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}
