package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/limistah/heimdal/pkg/conflict"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/lock"
	"github.com/limistah/heimdal/pkg/logging"
	"github.com/limistah/heimdal/pkg/remote"
	"github.com/limistah/heimdal/pkg/state"
	"github.com/rs/zerolog"
)

// Warnings raised after the lock is held.
const (
	WarnNoRemote      lock.WarningKind = "no-remote"
	WarnPullFailed    lock.WarningKind = "pull-failed"
	WarnPublishFailed lock.WarningKind = "publish-failed"
)

// Options wires a Coordinator.
type Options struct {
	Store *state.Store
	Locks *lock.Manager
	// Remote may be nil when the dotfiles directory has no git remote.
	Remote       remote.Remote
	FetchTimeout time.Duration
}

// Coordinator sequences lock, load, detect, work and save.
type Coordinator struct {
	Store        *state.Store
	Locks        *lock.Manager
	Remote       remote.Remote
	FetchTimeout time.Duration
	Log          zerolog.Logger
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	return &Coordinator{
		Store:        opts.Store,
		Locks:        opts.Locks,
		Remote:       opts.Remote,
		FetchTimeout: opts.FetchTimeout,
		Log:          logging.GetLogger("coordinator"),
	}
}

// Operation describes a mutating command.
type Operation struct {
	Name             string
	Reason           string
	Description      string
	ExpectedDuration time.Duration
	// AutoMerge lets conflicts below High severity, and a remote that is
	// simply ahead, be merged before the work runs. Without it any conflict
	// aborts the operation.
	AutoMerge bool
	// FetchRemote fetches the remote state when the lock did not already
	// do so.
	FetchRemote bool
	// Pull fast-forwards the dotfiles worktree before the state is loaded.
	// Failures are warnings.
	Pull bool
	// Publish commits and pushes the saved state. Failures are warnings.
	Publish bool
}

// Work performs the command on snap, which it may modify. It returns the
// tracked paths it wrote so their checksums are refreshed.
type Work func(snap *state.Snapshot) (touched []string, err error)

// Outcome reports what Run did.
type Outcome struct {
	Snapshot      *state.Snapshot `json:"-" yaml:"-" toml:"-"`
	Report        conflict.Report `json:"report" yaml:"report" toml:"report"`
	RemoteChecked bool            `json:"remote_checked" yaml:"remote_checked" toml:"remote_checked"`
	Merged        bool            `json:"merged" yaml:"merged" toml:"merged"`
	Pulled        bool            `json:"pulled" yaml:"pulled" toml:"pulled"`
	Published     bool            `json:"published" yaml:"published" toml:"published"`
	Serial        uint64          `json:"serial" yaml:"serial" toml:"serial"`
	Warnings      []lock.Warning  `json:"warnings" yaml:"warnings" toml:"warnings"`
}

func (o *Outcome) warn(log zerolog.Logger, kind lock.WarningKind, msg string) {
	log.Warn().Str("kind", string(kind)).Msg(msg)
	o.Warnings = append(o.Warnings, lock.Warning{Kind: kind, Message: msg})
}

// Run executes op under the state lock. The lock is released on every path.
// Conflicts that cannot be merged abort before fn runs with a
// CONFLICT_UNRESOLVED error carrying the report.
func (c *Coordinator) Run(ctx context.Context, op Operation, fn Work) (*Outcome, error) {
	logger := c.Log.With().Str("operation", op.Name).Logger()
	out := &Outcome{Report: conflict.Report{Conflicts: []conflict.Conflict{}}}

	req := lock.Request{Operation: op.Name, Reason: op.Reason, ExpectedDuration: op.ExpectedDuration}
	err := c.Locks.WithLock(ctx, req, func(g *lock.Guard) error {
		out.Warnings = append(out.Warnings, g.Warnings()...)

		if op.Pull {
			out.Pulled = c.pull(ctx, g, out, logger)
		}

		local, err := c.Store.Load()
		if err != nil {
			return err
		}

		remoteSnap, checked, err := c.remoteFor(ctx, g, op.FetchRemote, out, logger)
		if err != nil {
			return err
		}
		out.RemoteChecked = checked

		if remoteSnap != nil {
			out.Report = conflict.Detect(local, remoteSnap)
			switch {
			case out.Report.HasConflicts() && (!op.AutoMerge || !out.Report.AutoMergeable()):
				logger.Warn().Str("summary", out.Report.Summary()).Msg("Conflicts need a resolution strategy")
				return conflict.UnresolvedError(out.Report)
			case out.Report.HasConflicts(), op.AutoMerge && remoteSnap.Lineage.Serial > local.Lineage.Serial:
				logger.Info().
					Uint64("local_serial", local.Lineage.Serial).
					Uint64("remote_serial", remoteSnap.Lineage.Serial).
					Msg("Merging remote state")
				local = conflict.Merge(local, remoteSnap)
				out.Merged = true
			}
		}

		var touched []string
		if fn != nil {
			if touched, err = fn(local); err != nil {
				return err
			}
		}

		if err := c.Store.Save(g, local, state.SaveOptions{
			Operation:   op.Name,
			Description: op.Description,
			Touched:     touched,
		}); err != nil {
			return err
		}
		out.Snapshot = local
		out.Serial = local.Lineage.Serial

		if op.Publish {
			msg := fmt.Sprintf("heimdal: %s (serial %d)", op.Name, local.Lineage.Serial)
			out.Published = c.publish(ctx, append([]string{c.Store.Path()}, touched...), msg, out, logger)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// remoteFor returns the remote snapshot for this run: the bytes the hybrid
// lock fetched, or a fresh fetch when asked. An unreachable remote is a
// warning and yields no snapshot.
func (c *Coordinator) remoteFor(ctx context.Context, g *lock.Guard, fetch bool, out *Outcome, logger zerolog.Logger) (*state.Snapshot, bool, error) {
	data, ok := g.RemoteState()
	if !ok {
		if !fetch || probeFailed(g) {
			return nil, false, nil
		}
		if c.Remote == nil {
			out.warn(logger, WarnNoRemote, "no git remote configured; state is not compared with other machines")
			return nil, false, nil
		}
		var err error
		data, err = c.fetch(ctx)
		if err != nil {
			if remote.IsUnreachable(err) {
				out.warn(logger, lock.WarnRemoteUnreachable,
					fmt.Sprintf("remote repository unreachable, continuing with local state only: %v", err))
			} else {
				out.warn(logger, lock.WarnRemoteFailed,
					fmt.Sprintf("cannot read remote state, continuing with local state only: %v", err))
			}
			return nil, false, nil
		}
	}

	if data == nil {
		logger.Debug().Msg("Remote has no state yet")
		return nil, true, nil
	}
	snap, err := c.Store.Parse(data)
	if err != nil {
		return nil, false, remoteCorrupt(err)
	}
	return snap, true, nil
}

// probeFailed reports whether the hybrid lock already tried the remote and
// warned about it.
func probeFailed(g *lock.Guard) bool {
	for _, w := range g.Warnings() {
		if w.Kind == lock.WarnRemoteUnreachable || w.Kind == lock.WarnRemoteFailed {
			return true
		}
	}
	return false
}

func (c *Coordinator) fetch(ctx context.Context) ([]byte, error) {
	if c.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.FetchTimeout)
		defer cancel()
	}
	return c.Remote.FetchRemoteState(ctx)
}

// pull brings the worktree up to date with the remote branch. It is skipped
// when the lock already found the remote out of reach.
func (c *Coordinator) pull(ctx context.Context, g *lock.Guard, out *Outcome, logger zerolog.Logger) bool {
	if c.Remote == nil || probeFailed(g) {
		return false
	}
	if err := c.Remote.Pull(ctx, true); err != nil {
		kind := WarnPullFailed
		if remote.IsUnreachable(err) {
			kind = lock.WarnRemoteUnreachable
		}
		out.warn(logger, kind, fmt.Sprintf("cannot pull the dotfiles repository, comparing state files instead: %v", err))
		return false
	}
	return true
}

// publish commits and pushes paths. It never fails the operation: the state
// is already saved locally and the next sync pushes it.
func (c *Coordinator) publish(ctx context.Context, paths []string, msg string, out *Outcome, logger zerolog.Logger) bool {
	if c.Remote == nil {
		out.warn(logger, WarnNoRemote, "no git remote configured; state was saved locally only")
		return false
	}
	if err := c.Remote.Commit(ctx, paths, msg); err != nil {
		out.warn(logger, WarnPublishFailed, fmt.Sprintf("state saved but not committed: %v", err))
		return false
	}
	if err := c.Remote.Push(ctx); err != nil {
		hint := "run 'heimdal sync' to retry"
		if remote.IsDiverged(err) {
			hint = "the git branches diverged; run 'git pull --rebase' or merge by hand in the dotfiles repository, then 'heimdal sync'"
		}
		out.warn(logger, WarnPublishFailed, fmt.Sprintf("state committed but not pushed (%s): %v", hint, err))
		return false
	}
	return true
}

func remoteCorrupt(err error) error {
	code := errors.GetErrorCode(err)
	if code == errors.ErrUnknown {
		code = errors.ErrStateCorrupt
	}
	return errors.Wrap(err, code, "remote state file cannot be read").WithDetail("source", "remote")
}
