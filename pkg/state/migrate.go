package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/lock"
)

// backupTimeFormat is used in backup file names, always UTC.
const backupTimeFormat = "20060102T150405Z"

// MigrationResult describes what Migrate did.
type MigrationResult struct {
	FromVersion    int       `json:"from_version" yaml:"from_version" toml:"from_version"`
	ToVersion      int       `json:"to_version" yaml:"to_version" toml:"to_version"`
	BackupPath     string    `json:"backup_path,omitempty" yaml:"backup_path,omitempty" toml:"backup_path,omitempty"`
	AlreadyCurrent bool      `json:"already_current" yaml:"already_current" toml:"already_current"`
	Snapshot       *Snapshot `json:"-" yaml:"-" toml:"-"`
}

// Migrate rewrites a legacy state file in the current schema. The original
// bytes are copied to a timestamped backup first unless noBackup is set.
// Running it on a current file changes nothing.
func (s *Store) Migrate(guard *lock.Guard, noBackup bool) (*MigrationResult, error) {
	if err := requireGuard(guard); err != nil {
		return nil, err
	}

	path := s.Path()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrStateMissing, "state file not found").WithDetail("path", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", path).WithDetail("path", path)
	}

	version, _, err := detectVersion(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	if version == CurrentVersion {
		snap, _, err := s.decoder().decode(data)
		if err != nil {
			return nil, withPath(err, path)
		}
		return &MigrationResult{
			FromVersion:    version,
			ToVersion:      CurrentVersion,
			AlreadyCurrent: true,
			Snapshot:       snap,
		}, nil
	}
	if version > CurrentVersion {
		_, _, err := s.decoder().decode(data)
		return nil, withPath(err, path)
	}

	result := &MigrationResult{FromVersion: version, ToVersion: CurrentVersion}
	if !noBackup {
		backup, err := s.writeBackup(data, version)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrMigrationFailed, "cannot write migration backup; state left untouched").
				WithDetail("path", path)
		}
		result.BackupPath = backup
		s.logger.Info().Str("backup_path", backup).Msg("Backed up legacy state")
	}

	snap, _, err := s.decoder().decode(data)
	if err != nil {
		return nil, migrationFailed(err, "legacy state cannot be read", path, result.BackupPath)
	}
	snap.ToolVersion = s.toolVersion

	if err := s.write(snap); err != nil {
		return nil, migrationFailed(err, "cannot write migrated state", path, result.BackupPath)
	}
	result.Snapshot = snap

	s.logger.Info().
		Int("from", version).
		Int("to", CurrentVersion).
		Str("lineage_id", snap.Lineage.ID).
		Msg("State migrated")
	return result, nil
}

func (s *Store) writeBackup(data []byte, version int) (string, error) {
	dir := s.paths.BackupDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	stamp := s.clock().UTC().Format(backupTimeFormat)
	base := fmt.Sprintf("state_v%d_%s", version, stamp)
	for i := 0; i < 100; i++ {
		name := base + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.json", base, i)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, stateFilePerm)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return "", err
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return "", err
		}
		return path, f.Close()
	}
	return "", fmt.Errorf("too many backups named %s", base)
}

func migrationFailed(err error, msg, path, backup string) error {
	out := errors.Wrap(err, errors.ErrMigrationFailed, msg).WithDetail("path", path)
	if backup != "" {
		out = out.WithDetail("backup_path", backup)
	}
	return out
}
