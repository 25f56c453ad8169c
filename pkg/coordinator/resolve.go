package coordinator

import (
	"context"
	"fmt"

	"github.com/limistah/heimdal/pkg/conflict"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/lock"
	"github.com/limistah/heimdal/pkg/remote"
	"github.com/limistah/heimdal/pkg/state"
)

// Check is the read-only comparison returned by CheckConflicts.
type Check struct {
	Report        conflict.Report `json:"report" yaml:"report" toml:"report"`
	RemoteChecked bool            `json:"remote_checked" yaml:"remote_checked" toml:"remote_checked"`
	LocalSerial   uint64          `json:"local_serial" yaml:"local_serial" toml:"local_serial"`
	RemoteSerial  uint64          `json:"remote_serial,omitempty" yaml:"remote_serial,omitempty" toml:"remote_serial,omitempty"`
	Warnings      []lock.Warning  `json:"warnings" yaml:"warnings" toml:"warnings"`
}

// CheckConflicts compares local and remote state without taking the lock or
// writing anything. An unreachable remote is reported as a warning.
func (c *Coordinator) CheckConflicts(ctx context.Context) (*Check, error) {
	local, err := c.Store.Load()
	if err != nil {
		return nil, err
	}

	out := &Outcome{}
	check := &Check{
		Report:      conflict.Report{Conflicts: []conflict.Conflict{}},
		LocalSerial: local.Lineage.Serial,
	}

	if c.Remote == nil {
		out.warn(c.Log, WarnNoRemote, "no git remote configured; nothing to compare with")
		check.Warnings = out.Warnings
		return check, nil
	}

	data, err := c.fetch(ctx)
	if err != nil {
		if !remote.IsUnreachable(err) {
			return nil, err
		}
		out.warn(c.Log, lock.WarnRemoteUnreachable,
			fmt.Sprintf("remote repository unreachable, conflicts were not checked: %v", err))
		check.Warnings = out.Warnings
		return check, nil
	}
	check.RemoteChecked = true
	if data == nil {
		return check, nil
	}

	remoteSnap, err := c.Store.Parse(data)
	if err != nil {
		return nil, remoteCorrupt(err)
	}
	check.RemoteSerial = remoteSnap.Lineage.Serial
	check.Report = conflict.Detect(local, remoteSnap)
	return check, nil
}

// Resolved reports what Resolve did.
type Resolved struct {
	Resolution *conflict.Resolution `json:"resolution" yaml:"resolution" toml:"resolution"`
	Serial     uint64               `json:"serial,omitempty" yaml:"serial,omitempty" toml:"serial,omitempty"`
	Published  bool                 `json:"published" yaml:"published" toml:"published"`
	Warnings   []lock.Warning       `json:"warnings" yaml:"warnings" toml:"warnings"`
}

// Resolve settles local against remote state with strategy under the lock,
// writes the result and publishes it. Manual writes nothing.
func (c *Coordinator) Resolve(ctx context.Context, strategy conflict.Strategy) (*Resolved, error) {
	if _, err := conflict.ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if c.Remote == nil {
		return nil, errors.New(errors.ErrNotFound, "no git remote configured; there is nothing to resolve against")
	}

	logger := c.Log.With().Str("strategy", string(strategy)).Logger()
	var result *Resolved

	req := lock.Request{Operation: "resolve", Reason: "resolve conflicts with " + string(strategy)}
	err := c.Locks.WithLock(ctx, req, func(g *lock.Guard) error {
		out := &Outcome{Warnings: g.Warnings()}

		local, err := c.Store.Load()
		if err != nil {
			return err
		}

		data, ok := g.RemoteState()
		if !ok {
			// resolving against a stale view would discard work
			if data, err = c.fetch(ctx); err != nil {
				return err
			}
		}
		if data == nil {
			return errors.New(errors.ErrNotFound, "remote has no state file; there is nothing to resolve against")
		}
		remoteSnap, err := c.Store.Parse(data)
		if err != nil {
			return remoteCorrupt(err)
		}

		res, err := conflict.Resolve(local, remoteSnap, strategy)
		if err != nil {
			return err
		}
		result = &Resolved{Resolution: res}

		if !res.Applied {
			logger.Info().Str("summary", res.Report.Summary()).Msg("Manual resolution requested; state left untouched")
			result.Warnings = out.Warnings
			return nil
		}

		if err := c.Store.SaveResolved(g, res.Snapshot); err != nil {
			return err
		}
		result.Serial = res.Snapshot.Lineage.Serial
		logger.Info().Uint64("serial", result.Serial).Msg("Conflicts resolved")

		msg := fmt.Sprintf("heimdal: resolve %s (serial %d)", strategy, result.Serial)
		result.Published = c.publish(ctx, []string{c.Store.Path()}, msg, out, logger)
		result.Warnings = out.Warnings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Snapshot returns the resolved state written by Resolve, or nil for
// Manual.
func (r *Resolved) Snapshot() *state.Snapshot {
	if r == nil || r.Resolution == nil {
		return nil
	}
	return r.Resolution.Snapshot
}
