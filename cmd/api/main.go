// Copyright (c) 2026 JadeWellness. All rights reserved.

// Command api is the entry point for the JadeWellness identity API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the account store selected by STORE_DRIVER (MongoDB, PostgreSQL or memory).
//  4. Connect to Redis when configured (shared auth limiter).
//  5. Build the mail dispatcher (SMTP or no-op).
//  6. Wire services and HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jadewellness/backend/internal/api"
	"github.com/jadewellness/backend/internal/platform/config"
	"github.com/jadewellness/backend/internal/platform/constants"
	"github.com/jadewellness/backend/internal/platform/mail"
	"github.com/jadewellness/backend/internal/platform/middleware"
	"github.com/jadewellness/backend/internal/platform/migration"
	mongostore "github.com/jadewellness/backend/internal/platform/mongo"
	pgstore "github.com/jadewellness/backend/internal/platform/postgres"
	redisstore "github.com/jadewellness/backend/internal/platform/redis"
	"github.com/jadewellness/backend/internal/platform/respond"
	"github.com/jadewellness/backend/internal/platform/sec"
	"github.com/jadewellness/backend/internal/users/account"
	"github.com/jadewellness/backend/internal/users/auth"
	"github.com/jadewellness/backend/internal/users/twofactor"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	log := newLogger(slog.LevelInfo)
	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		log.Debug("debug_logging_enabled")
	}
	respond.ExposeCauses(cfg.Debug)

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store_driver", cfg.StoreDriver),
	)

	// Root context: cancelled on shutdown, stops background janitors.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	checks := api.HealthDependencies{}

	// ── 3. Account Store ──────────────────────────────────────────────────
	var directory account.Directory
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, database, err := mongostore.Connect(startupCtx, cfg.MongoURI, cfg.MongoDatabase, log)
		must(log, err, "connect to mongo")
		defer func() {
			log.Info("closing_mongo_client")
			if cerr := mongostore.Disconnect(client); cerr != nil {
				log.Error("mongo_close_failed", slog.Any("error", cerr))
			}
		}()

		var stores []*account.MongoStore
		directory, stores = account.NewMongoDirectory(database, log)
		for _, store := range stores {
			store.EnsureIndexes(startupCtx)
		}
		checks["mongo"] = func(ctx context.Context) error { return mongostore.Ping(ctx, client) }

	case config.DriverPostgres:
		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		}()

		directory = account.NewPostgresDirectory(pool)
		checks["postgres"] = func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }

	default:
		log.Warn("memory_store_in_use", slog.String("reason", "accounts are lost on restart"))
		directory = account.NewMemoryDirectory()
	}

	// ── 4. Auth Limiter Counter ───────────────────────────────────────────
	var counter middleware.WindowCounter = middleware.NewMemoryWindowCounter()
	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer closeRedis(log, rdb)

		counter = redisstore.NewWindowCounter(rdb, constants.RedisPrefixAuthLimit)
		checks["redis"] = func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }
	}
	authLimiter := middleware.NewAuthLimiter(counter, cfg.AuthRateLimit, cfg.AuthRateWindow)

	// ── 5. Mail ───────────────────────────────────────────────────────────
	var sender mail.Sender = mail.NoopSender{}
	if cfg.SMTPConfigured() {
		sender = mail.NewSMTPSender(cfg.EmailHost, cfg.EmailPort, cfg.EmailUser, cfg.EmailPass, cfg.EmailFrom)
	} else {
		log.Warn("smtp_not_configured", slog.String("effect", "outbound email is discarded"))
	}
	dispatcher := mail.NewDispatcher(sender, log)

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	tokens, err := sec.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer)
	must(log, err, "initialize token service")

	resolver := auth.NewResolver(directory)
	guard := middleware.NewGuard(tokens, resolver)

	accountService := account.NewService(directory, dispatcher, log)
	authService := auth.NewService(directory, resolver, tokens, dispatcher, cfg.FrontendOrigin, log)
	twoFactorService := twofactor.NewService(directory.Patients, twofactor.PNGRenderer{}, dispatcher, log)

	liveness, readiness := api.NewHealthHandlers(checks, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService, accountService, guard, authLimiter.Handler),
		TwoFactor: twofactor.NewHandler(twoFactorService, guard, authLimiter.Handler),
		Admin:     account.NewHandler(accountService),
	}

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(rootCtx, cfg, log, guard, handlers)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	log.Info("shutting_down_server", slog.Duration("timeout", constants.ShutdownTimeout))

	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
	}

	// Let queued emails finish before the process exits.
	dispatcher.Wait()
	log.Info("server_stopped_cleanly")
}

// newLogger builds the JSON logger tagged with the application name and makes it the default.
func newLogger(level slog.Level) *slog.Logger {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName))
	slog.SetDefault(log)
	return log
}

func closeRedis(log *slog.Logger, rdb *goredis.Client) {
	log.Info("closing_redis_client")
	if err := rdb.Close(); err != nil {
		log.Error("redis_close_failed", slog.Any("error", err))
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
