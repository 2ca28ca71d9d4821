package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"migrations/00001_create_users.sql",
		"migrations/00002_create_changelog_entries.sql",
		"migrations/00003_create_scheduled_notifications.sql",
	}, files)

	for _, f := range files {
		body, err := fs.ReadFile(migrationsFS, f)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(body), "-- +goose Up"), f)
		assert.True(t, strings.Contains(string(body), "-- +goose Down"), f)
	}
}
