package database_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/what2eat/internal/database"
)

func newStore(t *testing.T) database.Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, nil)
}

func TestStore_UpsertAndList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Ping(ctx))

	rev, err := s.MaxRevision(ctx)
	require.NoError(t, err)
	assert.Zero(t, rev)

	r1, err := s.UpsertSetting(ctx, "guilds", "-100", `{"prefix":"?"}`)
	require.NoError(t, err)
	r2, err := s.UpsertSetting(ctx, "banned", "42", `true`)
	require.NoError(t, err)
	r3, err := s.UpsertSetting(ctx, "guilds", "-100", `{"prefix":"!"}`)
	require.NoError(t, err)
	assert.Less(t, r1, r2)
	assert.Less(t, r2, r3)

	rows, err := s.ListSettings(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "banned", rows[0].Scope)
	assert.Equal(t, `{"prefix":"!"}`, rows[1].Value)

	since, err := s.ListSettingsSince(ctx, r2)
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, "-100", since[0].Key)
	assert.Equal(t, r3, since[0].Revision)

	_, err = s.UpsertSetting(ctx, "", "k", "1")
	require.Error(t, err)
}

func TestStore_DeleteLeavesTombstone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newStore(t)

	rev, err := s.UpsertSetting(ctx, "banned", "42", `true`)
	require.NoError(t, err)
	require.NoError(t, s.DeleteSetting(ctx, "banned", "42"))
	require.NoError(t, s.DeleteSetting(ctx, "banned", "missing"))

	rows, err := s.ListSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	since, err := s.ListSettingsSince(ctx, rev)
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.True(t, since[0].Deleted)

	n, err := s.PurgeTombstones(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.RunSQLMaintenance(ctx))
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"storage.db", "storage.db"},
		{"file:storage.db?_pragma=busy_timeout(5000)", "storage.db"},
		{"file:my%20db.db", "my db.db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, database.ExtractDBNameFromPath(tt.input))
	}
}
