package state

import (
	stderrors "errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/lock"
	"github.com/limistah/heimdal/pkg/logging"
	"github.com/limistah/heimdal/pkg/machine"
	"github.com/limistah/heimdal/pkg/paths"
	"github.com/rs/zerolog"
)

const stateFilePerm = 0644

// HeadReader reports the commit the dotfiles worktree is on.
type HeadReader interface {
	HeadCommit() (string, error)
}

// StoreOptions configures a Store.
type StoreOptions struct {
	Paths       paths.Paths
	Machine     machine.Info
	ToolVersion string
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Head, when set, stamps lineage.git_commit on save.
	Head HeadReader
}

// Store loads and persists the state file.
type Store struct {
	paths       paths.Paths
	machine     machine.Info
	toolVersion string
	clock       func() time.Time
	head        HeadReader
	checksums   *ChecksumTracker
	logger      zerolog.Logger
}

// SaveOptions describes the operation being recorded by Save.
type SaveOptions struct {
	Operation   string
	Description string
	// Touched lists the tracked paths the operation wrote. Their checksums
	// are recomputed.
	Touched []string
}

// NewStore creates a Store.
func NewStore(opts StoreOptions) *Store {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		paths:       opts.Paths,
		machine:     opts.Machine,
		toolVersion: opts.ToolVersion,
		clock:       clock,
		head:        opts.Head,
		checksums:   NewChecksumTracker(opts.Paths),
		logger:      logging.GetLogger("state"),
	}
}

// Path is the state file location.
func (s *Store) Path() string { return s.paths.StateFilePath() }

// Machine is the identity this store writes as.
func (s *Store) Machine() machine.Info { return s.machine }

// Checksums returns the tracker bound to this store's paths.
func (s *Store) Checksums() *ChecksumTracker { return s.checksums }

// Exists reports whether a state file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}

// Load reads the state file. Legacy content is migrated in memory; use
// Migrate to rewrite it on disk.
func (s *Store) Load() (*Snapshot, error) {
	snap, _, err := s.LoadVersioned()
	return snap, err
}

// LoadVersioned is Load that also reports the schema version found on disk.
func (s *Store) LoadVersioned() (*Snapshot, int, error) {
	path := s.Path()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, 0, errors.New(errors.ErrStateMissing, "state file not found; run 'heimdal init' first").
			WithDetail("path", path)
	}
	if err != nil {
		return nil, 0, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", path).
			WithDetail("path", path)
	}

	snap, version, err := s.decoder().decode(data)
	if err != nil {
		return nil, version, withPath(err, path)
	}
	if version < CurrentVersion {
		s.logger.Info().Int("version", version).Str("path", path).
			Msg("Loaded legacy state; run 'heimdal state migrate' to upgrade the file")
	}
	return snap, version, nil
}

// Parse decodes state bytes from elsewhere, typically the remote copy.
func (s *Store) Parse(data []byte) (*Snapshot, error) {
	snap, _, err := s.decoder().decode(data)
	return snap, err
}

// NewDefault builds a fresh snapshot for this machine with a new lineage.
func (s *Store) NewDefault(profile, dotfilesPath, repoURL string) *Snapshot {
	snap := newSnapshot(s.machine, s.clock(), uuid.NewString())
	snap.ActiveProfile = profile
	snap.DotfilesPath = dotfilesPath
	snap.RepoURL = repoURL
	snap.ToolVersion = s.toolVersion
	return snap
}

// Initialize writes snap as the first state file. It refuses to replace an
// existing file unless force is set.
func (s *Store) Initialize(guard *lock.Guard, snap *Snapshot, force bool) error {
	if err := requireGuard(guard); err != nil {
		return err
	}
	if s.Exists() && !force {
		return errors.New(errors.ErrStateExists, "state file already exists").
			WithDetail("path", s.Path())
	}
	return s.write(snap)
}

// Save persists snap as the result of one operation: the serial moves
// forward by exactly one, the operation is appended to history and the
// checksums of touched files are refreshed. snap is updated only when the
// write succeeds.
func (s *Store) Save(guard *lock.Guard, snap *Snapshot, opts SaveOptions) error {
	if err := requireGuard(guard); err != nil {
		return err
	}
	if snap == nil {
		return errors.New(errors.ErrInvalidInput, "nil snapshot")
	}

	now := s.clock().UTC()
	next := snap.Clone()
	next.Version = CurrentVersion
	next.ToolVersion = s.toolVersion

	var firstSeen *time.Time
	if next.Machine.ID == s.machine.ID {
		firstSeen = next.Machine.FirstSeen
	}
	next.Machine = machineRecord(s.machine, firstSeen, now)

	next.Lineage.Advance(s.machine.ID)
	if s.head != nil {
		if commit, err := s.head.HeadCommit(); err == nil && commit != "" {
			next.Lineage.GitCommit = commit
		} else if err != nil {
			s.logger.Debug().Err(err).Msg("Cannot read HEAD commit")
		}
	}

	operation := opts.Operation
	if operation == "" {
		operation = "save"
	}
	next.AppendHistory(OperationRecord{
		Operation:   operation,
		Timestamp:   now,
		MachineID:   s.machine.ID,
		User:        s.machine.User,
		Serial:      next.Lineage.Serial,
		Description: opts.Description,
	})

	if err := s.checksums.Record(next, opts.Touched); err != nil {
		return err
	}

	if err := s.write(next); err != nil {
		return err
	}
	*snap = *next

	s.logger.Info().
		Str("operation", operation).
		Uint64("serial", snap.Lineage.Serial).
		Uint64("parent_serial", snap.Lineage.ParentSerial).
		Msg("State saved")
	return nil
}

// SaveResolved writes a resolver result exactly as produced. The resolver
// has already assigned the serial.
func (s *Store) SaveResolved(guard *lock.Guard, snap *Snapshot) error {
	if err := requireGuard(guard); err != nil {
		return err
	}
	if snap == nil {
		return errors.New(errors.ErrInvalidInput, "nil snapshot")
	}
	if snap.Lineage.ID == "" || snap.Lineage.Serial < 1 {
		return errors.New(errors.ErrInvalidInput, "resolved snapshot has no valid lineage")
	}
	next := snap.Clone()
	next.Version = CurrentVersion
	return s.write(next)
}

// CurrentSerial returns the serial on disk, or 0 when there is no state
// yet. It is what a new lock records as state_serial.
func (s *Store) CurrentSerial() (uint64, error) {
	snap, err := s.Load()
	if errors.IsErrorCode(err, errors.ErrStateMissing) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return snap.Lineage.Serial, nil
}

// LastActivity reports machineID's most recent history entry in the local
// state file.
func (s *Store) LastActivity(machineID string) (time.Time, bool) {
	snap, err := s.Load()
	if err != nil {
		return time.Time{}, false
	}
	return snap.LastActivity(machineID)
}

func (s *Store) write(snap *Snapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}
	path := s.Path()
	if err := writeFileAtomic(path, data, stateFilePerm); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", path).
			WithDetail("path", path)
	}
	return nil
}

func (s *Store) decoder() decoder {
	return decoder{machine: s.machine, now: s.clock()}
}

func requireGuard(guard *lock.Guard) error {
	if guard == nil || !guard.Held() {
		return errors.New(errors.ErrLockRequired, "state can only be written while holding the state lock")
	}
	return nil
}

func withPath(err error, path string) error {
	var hErr *errors.HeimdalError
	if stderrors.As(err, &hErr) {
		return hErr.WithDetail("path", path)
	}
	return err
}
