package statecmd

import (
	"context"
	"fmt"

	"github.com/limistah/heimdal/pkg/commands/env"
	"github.com/limistah/heimdal/pkg/conflict"
	"github.com/limistah/heimdal/pkg/coordinator"
	"github.com/limistah/heimdal/pkg/errors"
)

// CheckConflicts compares local and remote state without locking.
func CheckConflicts(ctx context.Context, e *env.Env) (*coordinator.Check, error) {
	return e.Coordinator.CheckConflicts(ctx)
}

// ResolveOptions controls Resolve.
type ResolveOptions struct {
	Strategy conflict.Strategy
	// Yes skips the confirmation.
	Yes     bool
	Confirm Confirm
}

// ResolveResult reports what Resolve did.
type ResolveResult struct {
	Resolved  *coordinator.Resolved `json:"resolved,omitempty" yaml:"resolved,omitempty" toml:"resolved,omitempty"`
	Cancelled bool                  `json:"cancelled" yaml:"cancelled" toml:"cancelled"`
}

// Resolve applies a strategy. Destructive strategies ask first unless Yes
// is set; Manual never writes and needs no confirmation.
func Resolve(ctx context.Context, e *env.Env, opts ResolveOptions) (*ResolveResult, error) {
	if opts.Strategy == "" {
		return nil, errors.New(errors.ErrInvalidInput,
			"choose a strategy: --use-local, --use-remote, --merge or --manual")
	}
	if _, err := conflict.ParseStrategy(string(opts.Strategy)); err != nil {
		return nil, err
	}

	if opts.Strategy != conflict.Manual && !opts.Yes {
		ok, err := confirm(opts.Confirm, fmt.Sprintf("Apply the %s resolution to the local state?", opts.Strategy))
		if err != nil {
			return nil, err
		}
		if !ok {
			return &ResolveResult{Cancelled: true}, nil
		}
	}

	resolved, err := e.Coordinator.Resolve(ctx, opts.Strategy)
	if err != nil {
		return nil, err
	}
	return &ResolveResult{Resolved: resolved}, nil
}

// StrategyAlias maps the short names accepted by --strategy.
func StrategyAlias(s string) (conflict.Strategy, error) {
	switch s {
	case "local":
		return conflict.UseLocal, nil
	case "remote":
		return conflict.UseRemote, nil
	}
	return conflict.ParseStrategy(s)
}

func confirm(fn Confirm, prompt string) (bool, error) {
	if fn == nil {
		return false, errors.Newf(errors.ErrInvalidInput,
			"%s Confirmation needs an interactive terminal; pass the flag to skip it", prompt)
	}
	return fn(prompt)
}
