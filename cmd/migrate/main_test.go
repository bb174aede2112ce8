package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-theatre/internal/config"
	"ms-theatre/internal/database/testdb"
	"ms-theatre/internal/logger"
	"ms-theatre/internal/models"
)

func TestMigrateCommandSQLite(t *testing.T) {
	ctx := context.Background()
	bunDB := testdb.New(t)
	log := logger.Discard()

	require.NoError(t, migrateCommand(ctx, bunDB, "sqlite", "down", "", false, log))
	_, err := bunDB.NewSelect().Model((*models.Play)(nil)).Count(ctx)
	assert.Error(t, err, "tables are gone after down")

	require.NoError(t, migrateCommand(ctx, bunDB, "sqlite", "up", "", false, log))
	n, err := bunDB.NewSelect().Model((*models.Play)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Error(t, migrateCommand(ctx, bunDB, "sqlite", "sideways", "", false, log))
}

func TestCreateAdmin(t *testing.T) {
	ctx := context.Background()
	bunDB := testdb.New(t)
	var out bytes.Buffer
	log := logger.New(&out)
	cfg := config.Load().Auth

	require.NoError(t, createAdmin(ctx, bunDB, cfg, "admin@theatre.io:hunter22", log))
	assert.Contains(t, out.String(), "admin@theatre.io")

	var user models.User
	require.NoError(t, bunDB.NewSelect().Model(&user).Where("email = ?", "admin@theatre.io").Scan(ctx))
	assert.True(t, user.IsStaff)

	assert.Error(t, createAdmin(ctx, bunDB, cfg, "missing-colon", log))
}
