// Copyright (c) 2026 JadeWellness. All rights reserved.

package postgres

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeParams(t *testing.T) {
	params := runtimeParams()

	assert.Equal(t, "identity, public", params["search_path"])
	assert.Equal(t, "jadewellness", params["application_name"])
	assert.Equal(t, "30000", params["statement_timeout"])
}

func TestNewPool_InvalidDSN(t *testing.T) {
	_, err := NewPool(context.Background(), "postgres://%zz", slog.New(slog.DiscardHandler))
	assert.ErrorContains(t, err, "postgres_parse_dsn_failed")
}
