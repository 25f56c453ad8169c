// Package statesync implements "heimdal sync": pull the dotfiles repo,
// merge the remote state into the local one and publish the result.
package statesync

import (
	"context"
	"time"

	"github.com/limistah/heimdal/pkg/commands/env"
	"github.com/limistah/heimdal/pkg/coordinator"
	"github.com/limistah/heimdal/pkg/logging"
	"github.com/limistah/heimdal/pkg/state"
)

// Options defines the options for the Sync command.
type Options struct {
	// NoPull skips the git pull before merging state.
	NoPull bool
	// NoPush keeps the result local.
	NoPush bool
}

// Sync runs a sync operation. Conflicts that cannot be merged automatically
// fail with CONFLICT_UNRESOLVED and leave local state untouched.
func Sync(ctx context.Context, e *env.Env, opts Options) (*coordinator.Outcome, error) {
	log := logging.GetLogger("commands.sync")
	log.Debug().Str("command", "Sync").Bool("no_pull", opts.NoPull).Bool("no_push", opts.NoPush).Msg("Executing command")

	op := coordinator.Operation{
		Name:             "sync",
		Reason:           "synchronize state with remote",
		Description:      "sync with remote",
		ExpectedDuration: time.Minute,
		AutoMerge:        true,
		FetchRemote:      true,
		Pull:             !opts.NoPull,
		Publish:          !opts.NoPush,
	}
	return e.Coordinator.Run(ctx, op, func(snap *state.Snapshot) ([]string, error) {
		now := e.Clock().UTC()
		snap.LastSync = &now
		return nil, nil
	})
}
