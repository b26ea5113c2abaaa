// Copyright (c) 2026 JadeWellness. All rights reserved.

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadewellness/backend/internal/platform/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "5002", cfg.ServerPort)
	assert.Equal(t, "jadewellness", cfg.MongoDatabase)
	assert.Equal(t, 20, cfg.AuthRateLimit)
	assert.Equal(t, 15*time.Minute, cfg.AuthRateWindow)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "memory")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() config.Config {
		return config.Config{
			Environment:    "development",
			StoreDriver:    config.DriverMongo,
			MongoURI:       "mongodb://localhost:27017",
			AuthRateLimit:  20,
			AuthRateWindow: 15 * time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"valid_mongo", func(*config.Config) {}, false},
		{"mongo_without_uri", func(c *config.Config) { c.MongoURI = "" }, true},
		{"postgres_without_url", func(c *config.Config) { c.StoreDriver = config.DriverPostgres }, true},
		{"unknown_driver", func(c *config.Config) { c.StoreDriver = "sqlite" }, true},
		{"memory_in_production", func(c *config.Config) {
			c.StoreDriver = config.DriverMemory
			c.Environment = "production"
			c.EmailHost, c.EmailUser, c.EmailPass = "smtp", "u", "p"
		}, true},
		{"production_without_smtp", func(c *config.Config) { c.Environment = "production" }, true},
		{"zero_rate_window", func(c *config.Config) { c.AuthRateWindow = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
