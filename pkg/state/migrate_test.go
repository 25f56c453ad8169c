// pkg/state/migrate_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: temp dirs, local lock manager
// PURPOSE: Verify legacy state migration, backups and idempotency

package state_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyState = `{
  "active_profile": "work",
  "dotfiles_path": "/home/alice/.dotfiles",
  "repo_url": "git@example.com:alice/dotfiles.git",
  "last_sync": "2024-06-01T10:00:00Z",
  "last_apply": "2024-06-02T08:15:00Z"
}`

func TestMigrateLegacy(t *testing.T) {
	f := newFixture(t, laptop)
	f.writeState(t, legacyState)
	g := f.guard(t)

	result, err := f.store.Migrate(g, false)
	require.NoError(t, err)
	assert.Equal(t, state.LegacyVersion, result.FromVersion)
	assert.Equal(t, state.CurrentVersion, result.ToVersion)
	assert.False(t, result.AlreadyCurrent)

	// backup is the original, byte for byte
	require.NotEmpty(t, result.BackupPath)
	assert.Equal(t, filepath.Join(f.paths.BackupDir(), "state_v1_20250115T093000Z.json"), result.BackupPath)
	backup, err := os.ReadFile(result.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, legacyState, string(backup))

	loaded, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, state.CurrentVersion, loaded.Version)
	assert.Equal(t, "work", loaded.ActiveProfile)
	assert.Equal(t, uint64(1), loaded.Lineage.Serial)
	assert.Equal(t, []string{laptop.ID}, loaded.Lineage.Machines)
	assert.Equal(t, result.Snapshot.Lineage.ID, loaded.Lineage.ID)
	assert.Equal(t, "1.4.0", loaded.ToolVersion)
	require.NotNil(t, loaded.LastApply)
	assert.Equal(t, "2024-06-02T08:15:00Z", loaded.LastApply.Format("2006-01-02T15:04:05Z07:00"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	f := newFixture(t, laptop)
	f.writeState(t, legacyState)
	g := f.guard(t)

	_, err := f.store.Migrate(g, false)
	require.NoError(t, err)
	migrated, err := os.ReadFile(f.paths.StateFilePath())
	require.NoError(t, err)

	again, err := f.store.Migrate(g, false)
	require.NoError(t, err)
	assert.True(t, again.AlreadyCurrent)
	assert.Empty(t, again.BackupPath)

	after, err := os.ReadFile(f.paths.StateFilePath())
	require.NoError(t, err)
	assert.Equal(t, migrated, after)

	entries, err := os.ReadDir(f.paths.BackupDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMigrateBackupNamesDoNotCollide(t *testing.T) {
	f := newFixture(t, laptop)
	g := f.guard(t)

	f.writeState(t, legacyState)
	first, err := f.store.Migrate(g, false)
	require.NoError(t, err)

	f.writeState(t, legacyState)
	second, err := f.store.Migrate(g, false)
	require.NoError(t, err)

	assert.NotEqual(t, first.BackupPath, second.BackupPath)
	assert.Equal(t, filepath.Join(f.paths.BackupDir(), "state_v1_20250115T093000Z_1.json"), second.BackupPath)
}

func TestMigrateWithoutBackup(t *testing.T) {
	f := newFixture(t, laptop)
	f.writeState(t, legacyState)

	result, err := f.store.Migrate(f.guard(t), true)
	require.NoError(t, err)
	assert.Empty(t, result.BackupPath)
	_, err = os.Stat(f.paths.BackupDir())
	assert.True(t, os.IsNotExist(err))
}

func TestMigrateFailures(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode errors.ErrorCode
		backedUp bool
	}{
		{name: "future version", content: `{"version":7}`, wantCode: errors.ErrUnsupportedVersion},
		{name: "not json", content: `nope`, wantCode: errors.ErrStateCorrupt},
		{name: "legacy missing field", content: `{"active_profile":"x"}`, wantCode: errors.ErrMigrationFailed, backedUp: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, laptop)
			f.writeState(t, tt.content)

			_, err := f.store.Migrate(f.guard(t), false)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, tt.wantCode), "got %v", err)

			// the original is never touched on failure
			data, rerr := os.ReadFile(f.paths.StateFilePath())
			require.NoError(t, rerr)
			assert.Equal(t, tt.content, string(data))

			if tt.backedUp {
				assert.NotEmpty(t, errors.GetErrorDetails(err)["backup_path"])
			}
		})
	}
}

func TestMigrateMissingState(t *testing.T) {
	f := newFixture(t, laptop)
	_, err := f.store.Migrate(f.guard(t), false)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStateMissing))
}
