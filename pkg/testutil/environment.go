// pkg/testutil/environment.go
// DEPENDENCIES: pkg/commands/env, remote.Fake, lock.FakeLiveness
// PURPOSE: Orchestrate isolated heimdal environments for command tests

package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/limistah/heimdal/pkg/commands/env"
	"github.com/limistah/heimdal/pkg/config"
	"github.com/limistah/heimdal/pkg/lock"
	"github.com/limistah/heimdal/pkg/machine"
	"github.com/limistah/heimdal/pkg/paths"
	"github.com/limistah/heimdal/pkg/remote"
	"github.com/limistah/heimdal/pkg/state"
	"github.com/stretchr/testify/require"
)

// T0 is the starting time of every environment clock.
var T0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

// Test machines.
var (
	Laptop  = machine.Info{ID: "machine-laptop", Hostname: "laptop", OS: "linux", Arch: "amd64", User: "alice", PID: 100}
	Desktop = machine.Info{ID: "machine-desktop", Hostname: "desktop", OS: "darwin", Arch: "arm64", User: "alice", PID: 200}
)

// TestEnvironment is one machine with its own dotfiles checkout.
type TestEnvironment struct {
	DotfilesRoot string
	HomeDir      string

	Machine  machine.Info
	Config   *config.Config
	Remote   *remote.Fake
	Liveness *lock.FakeLiveness
	Now      time.Time

	// NoRemote builds environments without a remote.
	NoRemote bool

	t *testing.T
}

// Option adjusts a TestEnvironment before its first Env call.
type Option func(*TestEnvironment)

// WithMachine sets the machine identity.
func WithMachine(m machine.Info) Option {
	return func(e *TestEnvironment) { e.Machine = m }
}

// WithRemote shares an existing fake remote.
func WithRemote(r *remote.Fake) Option {
	return func(e *TestEnvironment) { e.Remote = r }
}

// WithoutRemote runs with no remote at all.
func WithoutRemote() Option {
	return func(e *TestEnvironment) { e.NoRemote = true }
}

// WithConfig edits the default configuration.
func WithConfig(fn func(*config.Config)) Option {
	return func(e *TestEnvironment) { fn(e.Config) }
}

// NewTestEnvironment creates the directories and defaults. Lock retries
// are off so contention fails fast.
func NewTestEnvironment(t *testing.T, opts ...Option) *TestEnvironment {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Lock.Type = config.LockLocal
	cfg.Lock.MaxRetries = 0
	cfg.Remote.FetchTimeout = time.Second

	te := &TestEnvironment{
		DotfilesRoot: filepath.Join(root, "dotfiles"),
		HomeDir:      filepath.Join(root, "heimdal-home"),
		Machine:      Laptop,
		Config:       cfg,
		Now:          T0,
		t:            t,
	}
	for _, opt := range opts {
		opt(te)
	}
	if te.Remote == nil && !te.NoRemote {
		te.Remote = remote.NewFake(nil)
	}
	te.Liveness = lock.NewFakeLiveness(te.Machine.PID)

	require.NoError(t, os.MkdirAll(te.DotfilesRoot, 0755))
	require.NoError(t, os.MkdirAll(te.HomeDir, 0755))
	return te
}

// Env builds a fresh env.Env. Pushes from it publish this machine's state.
func (te *TestEnvironment) Env() *env.Env {
	te.t.Helper()

	opts := env.Options{
		DotfilesPath: te.DotfilesRoot,
		Config:       te.Config,
		HomeDir:      te.HomeDir,
		Machine:      machine.Static(te.Machine),
		Liveness:     te.Liveness,
		Clock:        func() time.Time { return te.Now },
		ToolVersion:  "1.4.0",
	}
	if !te.NoRemote {
		opts.Remote = &machineRemote{Fake: te.Remote, statePath: te.StatePath()}
	}
	e, err := env.New(opts)
	require.NoError(te.t, err)
	return e
}

// StatePath is where this machine keeps its state file.
func (te *TestEnvironment) StatePath() string {
	te.t.Helper()
	p, err := paths.New(te.DotfilesRoot,
		paths.WithHomeDir(te.HomeDir),
		paths.WithStateFileName(te.Config.Remote.StateFile))
	require.NoError(te.t, err)
	return p.StateFilePath()
}

// machineRemote publishes the state file of the machine that pushes, so
// several environments can share one Fake.
type machineRemote struct {
	*remote.Fake
	statePath string
}

func (m *machineRemote) Push(ctx context.Context) error {
	m.Fake.PublishFrom = m.statePath
	return m.Fake.Push(ctx)
}

// Advance moves the clock forward.
func (te *TestEnvironment) Advance(d time.Duration) {
	te.Now = te.Now.Add(d)
}

// WriteDotfile creates a file in the dotfiles dir and returns its path.
func (te *TestEnvironment) WriteDotfile(rel, content string) string {
	te.t.Helper()
	full := filepath.Join(te.DotfilesRoot, rel)
	require.NoError(te.t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(te.t, os.WriteFile(full, []byte(content), 0644))
	return full
}

// InitState writes a fresh state for profile and publishes it to the
// remote, as if it had been committed and pushed.
func (te *TestEnvironment) InitState(profile string) *state.Snapshot {
	te.t.Helper()
	e := te.Env()

	g, err := e.Locks.Acquire(context.Background(), lock.Request{Operation: "init"})
	require.NoError(te.t, err)
	snap := e.Store.NewDefault(profile, te.DotfilesRoot, "git@example.com:alice/dotfiles.git")
	require.NoError(te.t, e.Store.Initialize(g, snap, false))
	require.NoError(te.t, g.Release())

	if te.Remote != nil {
		data, err := os.ReadFile(e.Store.Path())
		require.NoError(te.t, err)
		te.Remote.State = data
	}
	return snap
}

// Clone returns a second machine with its own checkout that shares the
// remote and starts from the current remote state.
func (te *TestEnvironment) Clone(m machine.Info) *TestEnvironment {
	te.t.Helper()
	other := NewTestEnvironment(te.t, WithMachine(m), WithRemote(te.Remote))
	*other.Config = *te.Config
	other.Now = te.Now

	if data := te.Remote.Published(); len(data) > 0 {
		require.NoError(te.t, os.WriteFile(other.StatePath(), data, 0644))
	}
	return other
}

// Load reads the local state.
func (te *TestEnvironment) Load() *state.Snapshot {
	te.t.Helper()
	snap, err := te.Env().Store.Load()
	require.NoError(te.t, err)
	return snap
}
