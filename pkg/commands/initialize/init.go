package initialize

import (
	"context"
	"os"
	"strings"

	"github.com/limistah/heimdal/pkg/commands/env"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/lock"
	"github.com/limistah/heimdal/pkg/logging"
)

// DefaultProfile is used when init is given no profile.
const DefaultProfile = "default"

// Options defines the options for the Init command.
type Options struct {
	// Profile is recorded as the active profile.
	Profile string
	// RepoURL defaults to the URL of the configured git remote.
	RepoURL string
	// Force replaces an existing state file with a new lineage.
	Force bool
}

// Result describes the state Init wrote.
type Result struct {
	Path      string `json:"path" yaml:"path" toml:"path"`
	Profile   string `json:"profile" yaml:"profile" toml:"profile"`
	RepoURL   string `json:"repo_url" yaml:"repo_url" toml:"repo_url"`
	LineageID string `json:"lineage_id" yaml:"lineage_id" toml:"lineage_id"`
	Serial    uint64 `json:"serial" yaml:"serial" toml:"serial"`
	Replaced  bool   `json:"replaced" yaml:"replaced" toml:"replaced"`
}

type urlRemote interface {
	URL() string
}

// Init writes the first state file for the dotfiles dir under the lock. It
// records no history entry; the next sync publishes it.
func Init(ctx context.Context, e *env.Env, opts Options) (*Result, error) {
	log := logging.GetLogger("commands.init")
	log.Debug().Str("command", "Init").Str("profile", opts.Profile).Msg("Executing command")

	profile := opts.Profile
	if profile == "" {
		profile = DefaultProfile
	}
	if strings.ContainsAny(profile, "/\\:*?\"<>|") || strings.TrimSpace(profile) != profile {
		return nil, errors.Newf(errors.ErrInvalidInput, "profile name contains invalid characters: %q", profile)
	}

	dir := e.Paths.DotfilesDir()
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, errors.Newf(errors.ErrNotFound, "dotfiles directory %s does not exist", dir).
			WithDetail("path", dir)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read dotfiles directory %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrInvalidInput, "%s is not a directory", dir).WithDetail("path", dir)
	}

	repoURL := opts.RepoURL
	if u, ok := e.Remote.(urlRemote); ok && repoURL == "" {
		repoURL = u.URL()
	}

	res := &Result{Path: e.Store.Path(), Profile: profile, RepoURL: repoURL}
	req := lock.Request{Operation: "init", Reason: "initialize state"}
	err = e.Locks.WithLock(ctx, req, func(g *lock.Guard) error {
		res.Replaced = e.Store.Exists()
		snap := e.Store.NewDefault(profile, dir, repoURL)
		if err := e.Store.Initialize(g, snap, opts.Force); err != nil {
			return err
		}
		res.LineageID = snap.Lineage.ID
		res.Serial = snap.Lineage.Serial
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("path", res.Path).
		Str("lineage_id", res.LineageID).
		Bool("replaced", res.Replaced).
		Msg("State initialized")
	return res, nil
}
