package statecmd

import (
	"context"

	"github.com/limistah/heimdal/pkg/commands/env"
	"github.com/limistah/heimdal/pkg/lock"
	"github.com/limistah/heimdal/pkg/state"
)

// Migrate upgrades the state file under the lock.
func Migrate(ctx context.Context, e *env.Env, noBackup bool) (*state.MigrationResult, error) {
	var res *state.MigrationResult
	err := e.Locks.WithLock(ctx, lock.Request{Operation: "migrate", Reason: "upgrade state schema"}, func(g *lock.Guard) error {
		var err error
		res, err = e.Store.Migrate(g, noBackup)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
