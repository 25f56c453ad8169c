package lock

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/logging"
	"github.com/limistah/heimdal/pkg/machine"
	"github.com/rs/zerolog"
)

const (
	lockFilePerm = 0644
	// critical sections are short; this only bounds a wedged peer
	flockWait  = 5 * time.Second
	flockRetry = 10 * time.Millisecond
)

// SerialSource reports the serial of the local state file.
type SerialSource interface {
	CurrentSerial() (uint64, error)
}

// ActivitySource reports when a machine last wrote the local state.
type ActivitySource interface {
	LastActivity(machineID string) (time.Time, bool)
}

// RemoteProbe fetches the remote state for hybrid locks. A nil result with
// no error means the remote has no state yet.
type RemoteProbe interface {
	FetchRemoteState(ctx context.Context) ([]byte, error)
}

// Options wires a Manager.
type Options struct {
	Config   Config
	Path     string
	Machine  machine.Info
	Liveness Liveness
	Serials  SerialSource
	Activity ActivitySource
	Remote   RemoteProbe
	// RemoteActivity extracts a machine's last activity from fetched remote
	// state bytes.
	RemoteActivity func(data []byte, machineID string) (time.Time, bool)
	Clock          func() time.Time
}

// Manager acquires and releases the state lock.
type Manager struct {
	cfg            Config
	path           string
	guardPath      string
	machine        machine.Info
	liveness       Liveness
	serials        SerialSource
	activity       ActivitySource
	remote         RemoteProbe
	remoteActivity func([]byte, string) (time.Time, bool)
	clock          func() time.Time
	exit           func(int)
	logger         zerolog.Logger
}

// NewManager builds a Manager. Missing seams get safe defaults.
func NewManager(opts Options) *Manager {
	m := &Manager{
		cfg:            opts.Config,
		path:           opts.Path,
		guardPath:      guardPathFor(opts.Path),
		machine:        opts.Machine,
		liveness:       opts.Liveness,
		serials:        opts.Serials,
		activity:       opts.Activity,
		remote:         opts.Remote,
		remoteActivity: opts.RemoteActivity,
		clock:          opts.Clock,
		exit:           os.Exit,
		logger:         logging.GetLogger("lock"),
	}
	if m.cfg.Type == "" {
		m.cfg.Type = TypeHybrid
	}
	if m.liveness == nil {
		m.liveness = ProcessLiveness()
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	return m
}

// Path is the lock file location.
func (m *Manager) Path() string { return m.path }

// Type is the configured lock type.
func (m *Manager) Type() Type { return m.cfg.Type }

func guardPathFor(lockPath string) string {
	return filepath.Join(filepath.Dir(lockPath), "."+filepath.Base(lockPath)+".guard")
}

// Acquire takes the lock for req, retrying against a live holder.
func (m *Manager) Acquire(ctx context.Context, req Request) (*Guard, error) {
	g := &Guard{mgr: m, state: StateAcquiring}
	logger := m.logger.With().Str("operation", req.Operation).Logger()

	if m.cfg.Type == TypeDisabled {
		msg := "state locking is disabled; concurrent heimdal runs may corrupt state"
		logger.Warn().Msg(msg)
		g.warn(WarnLockingDisabled, msg)
		g.disabled = true
		g.record = m.newRecord(TypeDisabled, req, 0)
		g.setState(StateLocked)
		return g, nil
	}

	effective := m.cfg.Type
	if effective == TypeHybrid {
		effective = m.probeRemote(ctx, g, logger)
	}

	serial := m.currentSerial(logger)

	b := &backoff.ExponentialBackOff{
		InitialInterval:     m.cfg.RetryInitialDelay,
		RandomizationFactor: 0.2,
		Multiplier:          2,
		MaxInterval:         m.cfg.RetryMaxDelay,
	}
	maxRetries := m.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	rec, err := backoff.Retry(ctx, func() (*Record, error) {
		rec, err := m.tryAcquire(ctx, g, effective, req, serial)
		if err == nil {
			return rec, nil
		}
		if errors.IsErrorCode(err, errors.ErrLockHeld) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(maxRetries)+1),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Info().Dur("retry_in", next).Msg("State is locked, waiting")
		}),
	)
	if err != nil {
		g.setState(StateFailed)
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.IsErrorCode(err, errors.ErrLockHeld) {
			return nil, errors.Wrap(ctxErr, errors.ErrInternal, "lock acquisition cancelled")
		}
		return nil, err
	}

	g.record = *rec
	g.setState(StateLocked)
	logger.Debug().
		Str("lock_id", rec.ID).
		Str("lock_type", string(rec.LockType)).
		Uint64("state_serial", rec.StateSerial).
		Msg("Lock acquired")
	return g, nil
}

// probeRemote performs the hybrid pre-check and returns the lock type to
// use for this call.
func (m *Manager) probeRemote(ctx context.Context, g *Guard, logger zerolog.Logger) Type {
	if m.remote == nil {
		return TypeHybrid
	}

	pctx := ctx
	if m.cfg.RemoteTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, m.cfg.RemoteTimeout)
		defer cancel()
	}

	data, err := m.remote.FetchRemoteState(pctx)
	if err == nil {
		g.remote = data
		g.remoteFetched = true
		return TypeHybrid
	}

	if isUnreachable(err) {
		msg := fmt.Sprintf("remote repository unreachable, falling back to a local lock: %v", err)
		logger.Warn().Err(err).Msg("Remote repository unreachable, falling back to a local lock; sync when the connection is back")
		g.warn(WarnRemoteUnreachable, msg)
	} else {
		msg := fmt.Sprintf("cannot read remote state, falling back to a local lock: %v", err)
		logger.Warn().Err(err).Msg("Cannot read remote state, falling back to a local lock")
		g.warn(WarnRemoteFailed, msg)
	}
	return TypeLocal
}

func isUnreachable(err error) bool {
	return errors.IsErrorCode(err, errors.ErrRemoteUnreachable) ||
		stderrors.Is(err, context.DeadlineExceeded)
}

func (m *Manager) currentSerial(logger zerolog.Logger) uint64 {
	if m.serials == nil {
		return 0
	}
	serial, err := m.serials.CurrentSerial()
	if err != nil {
		// Commands like migrate must lock an unreadable state file.
		logger.Debug().Err(err).Msg("Cannot read state serial for lock record")
		return 0
	}
	return serial
}

// tryAcquire makes one attempt inside the local critical section.
func (m *Manager) tryAcquire(ctx context.Context, g *Guard, typ Type, req Request, serial uint64) (*Record, error) {
	var rec *Record
	err := m.critical(ctx, func() error {
		existing, readErr := m.read()
		switch {
		case readErr == nil && existing != nil:
			stale, reason := m.classify(*existing, g.remote)
			if !stale {
				return m.heldError(*existing)
			}
			if err := m.removeStale(g, *existing, reason); err != nil {
				return err
			}
		case readErr != nil && !os.IsNotExist(readErr):
			var parseErr *recordError
			if !stderrors.As(readErr, &parseErr) {
				return errors.Wrap(readErr, errors.ErrFileAccess, "cannot read lock file").
					WithDetail("path", m.path)
			}
			msg := fmt.Sprintf("removed unreadable lock file %s", m.path)
			m.logger.Warn().Err(readErr).Str("path", m.path).Msg("Removing unreadable lock file")
			if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
				return errors.Wrap(err, errors.ErrFileWrite, "cannot remove unreadable lock file")
			}
			g.warn(WarnStaleRemoved, msg)
		}

		next := m.newRecord(typ, req, serial)
		if err := m.create(next); err != nil {
			return err
		}
		rec = &next
		return nil
	})
	return rec, err
}

// critical runs fn while holding the flock that serialises lock file
// inspection and creation on this machine.
func (m *Manager) critical(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(m.guardPath), 0755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "cannot create lock directory")
	}

	fl := flock.New(m.guardPath)
	wctx, cancel := context.WithTimeout(ctx, flockWait)
	defer cancel()

	locked, err := fl.TryLockContext(wctx, flockRetry)
	if err != nil && ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), errors.ErrInternal, "lock acquisition cancelled")
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrLockHeld, "another heimdal process is inspecting the lock").
			WithDetail("path", m.guardPath)
	}
	if !locked {
		return errors.New(errors.ErrLockHeld, "another heimdal process is inspecting the lock").
			WithDetail("path", m.guardPath)
	}
	defer func() { _ = fl.Unlock() }()

	return fn()
}

type recordError struct{ err error }

func (e *recordError) Error() string { return "unreadable lock record: " + e.err.Error() }
func (e *recordError) Unwrap() error { return e.err }

func (m *Manager) read() (*Record, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return nil, &recordError{err: err}
	}
	return rec, nil
}

// create writes rec with O_EXCL so an existing file is never clobbered.
func (m *Manager) create(rec Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(m.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, lockFilePerm)
	if os.IsExist(err) {
		existing, rerr := m.read()
		if rerr == nil {
			return m.heldError(*existing)
		}
		return errors.New(errors.ErrLockHeld, "state is locked").WithDetail("path", m.path)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrFileWrite, "cannot create lock file").WithDetail("path", m.path)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(m.path)
		return errors.Wrap(err, errors.ErrFileWrite, "cannot write lock file").WithDetail("path", m.path)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(m.path)
		return errors.Wrap(err, errors.ErrFileWrite, "cannot sync lock file").WithDetail("path", m.path)
	}
	return f.Close()
}

func (m *Manager) removeStale(g *Guard, rec Record, reason StaleReason) error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrFileWrite, "cannot remove stale lock").WithDetail("path", m.path)
	}
	age := m.clock().Sub(rec.CreatedAt)
	msg := fmt.Sprintf("removed stale lock (%s) held by %s on %s (%s), pid %d, acquired %s ago",
		reason, rec.Operation, rec.Machine.Hostname, rec.Machine.ID, rec.Machine.PID, FormatAge(age))
	m.logger.Warn().
		Str("lock_id", rec.ID).
		Str("reason", string(reason)).
		Str("owner_machine", rec.Machine.ID).
		Int("pid", rec.Machine.PID).
		Msg("Removing stale lock")
	g.warn(WarnStaleRemoved, msg)
	return nil
}

func (m *Manager) heldError(rec Record) error {
	age := m.clock().Sub(rec.CreatedAt)
	return errors.Newf(errors.ErrLockHeld,
		"state is locked by '%s' on %s (%s), pid %d, user %s, acquired %s ago; wait, or run 'heimdal state unlock --force' if that process is gone",
		rec.Operation, rec.Machine.Hostname, rec.Machine.ID, rec.Machine.PID, rec.Machine.User, FormatAge(age)).
		WithDetails(map[string]interface{}{
			"owner_machine": rec.Machine.ID,
			"hostname":      rec.Machine.Hostname,
			"pid":           rec.Machine.PID,
			"user":          rec.Machine.User,
			"age":           FormatAge(age),
			"lock_id":       rec.ID,
			"operation":     rec.Operation,
		})
}

func (m *Manager) newRecord(typ Type, req Request, serial uint64) Record {
	return Record{
		ID:                      uuid.NewString(),
		LockType:                typ,
		Operation:               req.Operation,
		Machine:                 Owner{ID: m.machine.ID, Hostname: m.machine.Hostname, PID: m.machine.PID, User: m.machine.User},
		CreatedAt:               m.clock().UTC(),
		ExpectedDurationSeconds: uint64(req.ExpectedDuration / time.Second),
		Reason:                  req.Reason,
		StateSerial:             serial,
	}
}

// Info describes the current lock without taking it. It returns nil when
// the state is unlocked.
func (m *Manager) Info() (*Info, error) {
	rec, err := m.read()
	if os.IsNotExist(err) {
		return nil, nil
	}
	var parseErr *recordError
	if stderrors.As(err, &parseErr) {
		return &Info{Stale: true, StaleReason: StaleUnreadable}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot read lock file").WithDetail("path", m.path)
	}

	stale, reason := m.classify(*rec, nil)
	age := m.clock().Sub(rec.CreatedAt)
	if age < 0 {
		age = 0
	}
	return &Info{Record: *rec, Age: age, Stale: stale, StaleReason: reason}, nil
}

// ForceUnlock removes the lock file regardless of owner.
func (m *Manager) ForceUnlock(ctx context.Context) (bool, error) {
	removed := false
	err := m.critical(ctx, func() error {
		err := os.Remove(m.path)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrFileWrite, "cannot remove lock file").WithDetail("path", m.path)
		}
		removed = true
		return nil
	})
	if removed {
		m.logger.Warn().Str("path", m.path).Msg("Lock forcibly removed")
	}
	return removed, err
}

// release removes the lock file if it still belongs to rec.
func (m *Manager) release(rec Record) error {
	return m.critical(context.Background(), func() error {
		existing, err := m.read()
		if os.IsNotExist(err) {
			m.logger.Warn().Str("lock_id", rec.ID).Msg("Lock file already gone at release")
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrFileAccess, "cannot read lock file").WithDetail("path", m.path)
		}
		if existing.ID != rec.ID {
			return errors.Newf(errors.ErrLockNotOwned,
				"lock is now owned by a different operation (%s on %s); leaving it in place",
				existing.Operation, existing.Machine.Hostname).
				WithDetail("lock_id", existing.ID)
		}
		if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, errors.ErrFileWrite, "cannot remove lock file").WithDetail("path", m.path)
		}
		return nil
	})
}
