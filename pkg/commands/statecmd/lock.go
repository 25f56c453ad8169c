package statecmd

import (
	"context"
	"fmt"

	"github.com/limistah/heimdal/pkg/commands/env"
	"github.com/limistah/heimdal/pkg/lock"
	"github.com/limistah/heimdal/pkg/logging"
)

// Confirm asks the user a yes/no question.
type Confirm func(prompt string) (bool, error)

// LockInfoResult describes the lock file.
type LockInfoResult struct {
	Path   string     `json:"path" yaml:"path" toml:"path"`
	Locked bool       `json:"locked" yaml:"locked" toml:"locked"`
	Info   *lock.Info `json:"info,omitempty" yaml:"info,omitempty" toml:"info,omitempty"`
	Age    string     `json:"age,omitempty" yaml:"age,omitempty" toml:"age,omitempty"`
}

// LockInfo reads the lock without taking it.
func LockInfo(e *env.Env) (*LockInfoResult, error) {
	info, err := e.Locks.Info()
	if err != nil {
		return nil, err
	}
	res := &LockInfoResult{Path: e.Locks.Path(), Locked: info != nil, Info: info}
	if info != nil && info.StaleReason != lock.StaleUnreadable {
		res.Age = lock.FormatAge(info.Age)
	}
	return res, nil
}

// UnlockOptions controls Unlock.
type UnlockOptions struct {
	// Force skips the confirmation.
	Force   bool
	Confirm Confirm
}

// UnlockResult reports what Unlock did.
type UnlockResult struct {
	Info      *lock.Info `json:"info,omitempty" yaml:"info,omitempty" toml:"info,omitempty"`
	Removed   bool       `json:"removed" yaml:"removed" toml:"removed"`
	Cancelled bool       `json:"cancelled" yaml:"cancelled" toml:"cancelled"`
}

// Unlock removes the lock file whoever holds it, after confirmation unless
// Force is set.
func Unlock(ctx context.Context, e *env.Env, opts UnlockOptions) (*UnlockResult, error) {
	log := logging.GetLogger("commands.state")

	info, err := e.Locks.Info()
	if err != nil {
		return nil, err
	}
	res := &UnlockResult{Info: info}
	if info == nil {
		return res, nil
	}

	if !opts.Force {
		prompt := "Force remove this lock?"
		if !info.Stale {
			prompt = fmt.Sprintf("The lock held by %s (pid %d) looks active. Force remove it?",
				info.Record.Machine.Hostname, info.Record.Machine.PID)
		}
		ok, err := confirm(opts.Confirm, prompt)
		if err != nil {
			return nil, err
		}
		if !ok {
			res.Cancelled = true
			return res, nil
		}
	}

	removed, err := e.Locks.ForceUnlock(ctx)
	if err != nil {
		return nil, err
	}
	res.Removed = removed
	log.Info().Bool("removed", removed).Str("lock_id", info.Record.ID).Msg("Unlock finished")
	return res, nil
}
