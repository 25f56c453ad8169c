// pkg/state/helpers_test.go
// TEST TYPE: Test Helpers
// DEPENDENCIES: temp dirs, local lock manager
// PURPOSE: Shared fixtures for state package tests

package state_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/limistah/heimdal/pkg/lock"
	"github.com/limistah/heimdal/pkg/machine"
	"github.com/limistah/heimdal/pkg/paths"
	"github.com/limistah/heimdal/pkg/state"
	"github.com/stretchr/testify/require"
)

var (
	laptop  = machine.Info{ID: "machine-laptop", Hostname: "laptop", OS: "linux", Arch: "amd64", User: "alice", PID: 100}
	desktop = machine.Info{ID: "machine-desktop", Hostname: "desktop", OS: "darwin", Arch: "arm64", User: "alice", PID: 200}
	t0      = time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
)

type fixture struct {
	dir   string
	paths paths.Paths
	store *state.Store
	locks *lock.Manager
	now   time.Time
}

func newFixture(t *testing.T, m machine.Info) *fixture {
	t.Helper()
	root := t.TempDir()
	dotfiles := filepath.Join(root, "dotfiles")
	require.NoError(t, os.MkdirAll(dotfiles, 0755))

	p, err := paths.New(dotfiles, paths.WithHomeDir(filepath.Join(root, "heimdal-home")))
	require.NoError(t, err)

	f := &fixture{dir: root, paths: p, now: t0}
	clock := func() time.Time { return f.now }

	f.store = state.NewStore(state.StoreOptions{
		Paths:       p,
		Machine:     m,
		ToolVersion: "1.4.0",
		Clock:       clock,
	})

	cfg := lock.DefaultConfig()
	cfg.Type = lock.TypeLocal
	cfg.MaxRetries = 0
	f.locks = lock.NewManager(lock.Options{
		Config:   cfg,
		Path:     p.LockFilePath(),
		Machine:  m,
		Liveness: lock.NewFakeLiveness(m.PID),
		Serials:  f.store,
		Clock:    clock,
	})
	return f
}

// guard takes the lock for the rest of the test.
func (f *fixture) guard(t *testing.T) *lock.Guard {
	t.Helper()
	g, err := f.locks.Acquire(context.Background(), lock.Request{Operation: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Release() })
	return g
}

func (f *fixture) writeState(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.paths.StateFilePath(), []byte(content), 0644))
}

func (f *fixture) writeDotfile(t *testing.T, rel, content string) {
	t.Helper()
	full := filepath.Join(f.paths.DotfilesDir(), rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

// initialized writes a fresh state file and returns it.
func (f *fixture) initialized(t *testing.T) *state.Snapshot {
	t.Helper()
	snap := f.store.NewDefault("work", f.paths.DotfilesDir(), "git@example.com:alice/dotfiles.git")
	g := f.guard(t)
	require.NoError(t, f.store.Initialize(g, snap, false))
	require.NoError(t, g.Release())
	return snap
}
