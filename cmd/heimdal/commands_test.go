// cmd/heimdal/commands_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: pkg/testutil, in-memory stdout and stderr
// PURPOSE: Verify the command tree end to end: flags, rendering and exit codes

package heimdal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limistah/heimdal/cmd/heimdal"
	"github.com/limistah/heimdal/internal/cli"
	"github.com/limistah/heimdal/pkg/commands/env"
	"github.com/limistah/heimdal/pkg/coordinator"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/lock"
	"github.com/limistah/heimdal/pkg/remote"
	"github.com/limistah/heimdal/pkg/state"
	"github.com/limistah/heimdal/pkg/testutil"
)

type result struct {
	stdout string
	stderr string
	code   int
}

func execute(t *testing.T, te *testutil.TestEnvironment, opts []cli.Option, args ...string) result {
	t.Helper()
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	// Buffers are not terminals, so output is plain and nothing can confirm.
	opts = append([]cli.Option{
		cli.WithEnv(func(cli.Flags) (*env.Env, error) { return te.Env(), nil }),
		cli.WithStdin(strings.NewReader("")),
	}, opts...)

	var out, errb bytes.Buffer
	code := heimdal.Run(context.Background(), args, &out, &errb, opts...)
	return result{stdout: out.String(), stderr: errb.String(), code: code}
}

func run(t *testing.T, te *testutil.TestEnvironment, args ...string) result {
	t.Helper()
	return execute(t, te, nil, args...)
}

// diverged leaves laptop and desktop with competing serial 2 states; the
// remote holds the laptop's.
func diverged(t *testing.T) (a, b *testutil.TestEnvironment) {
	t.Helper()
	a = testutil.NewTestEnvironment(t)
	a.InitState("work")
	b = a.Clone(testutil.Desktop)

	a.Advance(time.Minute)
	_, err := a.Env().Coordinator.Run(context.Background(),
		coordinator.Operation{Name: "apply", FetchRemote: true, Publish: true},
		func(s *state.Snapshot) ([]string, error) {
			s.ActiveProfile = "laptop"
			return nil, nil
		})
	require.NoError(t, err)

	b.Advance(time.Minute)
	_, err = b.Env().Coordinator.Run(context.Background(), coordinator.Operation{Name: "apply"},
		func(*state.Snapshot) ([]string, error) { return nil, nil })
	require.NoError(t, err)
	return a, b
}

func TestInitCommand(t *testing.T) {
	te := testutil.NewTestEnvironment(t)

	res := run(t, te, "init", "--profile", "work")
	require.Equal(t, errors.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Initialized heimdal state")
	assert.Contains(t, res.stdout, "profile:  work")
	assert.Equal(t, "work", te.Load().ActiveProfile)

	res = run(t, te, "init")
	assert.Equal(t, errors.ExitFailure, res.code)
	assert.Contains(t, res.stderr, "Error:")

	res = run(t, te, "init", "--force", "--profile", "home")
	require.Equal(t, errors.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Replaced the existing state file")
	assert.Equal(t, "home", te.Load().ActiveProfile)
}

func TestSyncCommandJSON(t *testing.T) {
	te := testutil.NewTestEnvironment(t)
	te.InitState("work")
	te.Advance(time.Minute)

	res := run(t, te, "sync", "-o", "json")
	require.Equal(t, errors.ExitOK, res.code, res.stderr)

	var got struct {
		Serial    uint64 `json:"serial"`
		Published bool   `json:"published"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	assert.EqualValues(t, 2, got.Serial)
	assert.True(t, got.Published)
	assert.NotNil(t, te.Load().LastSync)
}

func TestSyncStopsOnHighSeverityConflict(t *testing.T) {
	te := testutil.NewTestEnvironment(t)
	te.InitState("work")

	other := testutil.NewTestEnvironment(t, testutil.WithMachine(testutil.Desktop), testutil.WithRemote(remote.NewFake(nil)))
	other.InitState("home")
	te.Remote.State = other.Remote.Published()

	res := run(t, te, "sync")
	assert.Equal(t, errors.ExitConflict, res.code)
	assert.Contains(t, res.stderr, "Conflicts with the remote state need a decision")
	assert.Contains(t, res.stderr, "path-mismatch")
	assert.Contains(t, res.stderr, "heimdal state resolve")
	assert.Equal(t, "work", te.Load().ActiveProfile)
}

func TestStateVersionWithoutState(t *testing.T) {
	te := testutil.NewTestEnvironment(t)

	res := run(t, te, "state", "version")
	assert.Equal(t, errors.ExitStateError, res.code)
	assert.Contains(t, res.stderr, "Error:")

	res = run(t, te, "-o", "json", "state", "version")
	assert.Equal(t, errors.ExitStateError, res.code)
	assert.Empty(t, res.stderr)

	var got struct {
		Error struct {
			Code     string `json:"code"`
			ExitCode int    `json:"exit_code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	assert.Equal(t, string(errors.ErrStateMissing), got.Error.Code)
	assert.Equal(t, errors.ExitStateError, got.Error.ExitCode)
}

func TestStateReadCommands(t *testing.T) {
	te := testutil.NewTestEnvironment(t)
	te.InitState("work")
	te.Advance(time.Minute)
	require.Equal(t, errors.ExitOK, run(t, te, "sync").code)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "version", args: []string{"state", "version"}, want: []string{"schema:", "profile:", "work", "compatibility:"}},
		{name: "history", args: []string{"state", "history", "--limit", "5"}, want: []string{"History", "sync with remote"}},
		{name: "lock-info", args: []string{"state", "lock-info"}, want: []string{"No lock held"}},
		{name: "check-drift", args: []string{"state", "check-drift"}, want: []string{"No tracked files"}},
		{name: "check-conflicts", args: []string{"state", "check-conflicts"}, want: []string{"In sync with the remote state"}},
		{name: "migrate", args: []string{"state", "migrate"}, want: []string{"State already uses schema"}},
		{name: "tool version", args: []string{"version"}, want: []string{"heimdal "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, te, tt.args...)
			require.Equal(t, errors.ExitOK, res.code, res.stderr)
			for _, w := range tt.want {
				assert.Contains(t, res.stdout, w)
			}
		})
	}
}

func TestCheckConflictsExitsWithConflictStatus(t *testing.T) {
	_, b := diverged(t)

	res := run(t, b, "state", "check-conflicts")
	assert.Equal(t, errors.ExitConflict, res.code)
	assert.Contains(t, res.stdout, "serial-divergence")
	assert.Contains(t, res.stdout, "profile-mismatch")
	assert.Empty(t, res.stderr)
}

func TestResolveCommand(t *testing.T) {
	t.Run("merge with --yes", func(t *testing.T) {
		_, b := diverged(t)
		res := run(t, b, "state", "resolve", "--merge", "--yes")
		require.Equal(t, errors.ExitOK, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Resolved with merge")
	})

	t.Run("confirmed on a terminal", func(t *testing.T) {
		_, b := diverged(t)
		var prompts []string
		res := execute(t, b, []cli.Option{cli.WithConfirm(testutil.Confirm(true, &prompts))}, "state", "resolve", "-s", "remote")
		require.Equal(t, errors.ExitOK, res.code, res.stderr)
		require.Len(t, prompts, 1)
		assert.Contains(t, prompts[0], "use-remote")
		assert.Equal(t, "laptop", b.Load().ActiveProfile)
	})

	t.Run("without a terminal", func(t *testing.T) {
		_, b := diverged(t)
		res := run(t, b, "state", "resolve", "--use-local")
		assert.Equal(t, errors.ExitFailure, res.code)
		assert.Contains(t, res.stderr, "interactive terminal")
	})

	t.Run("manual", func(t *testing.T) {
		_, b := diverged(t)
		res := run(t, b, "state", "resolve", "--manual")
		require.Equal(t, errors.ExitOK, res.code, res.stderr)
		assert.Contains(t, res.stdout, "Manual resolution")
		assert.EqualValues(t, 2, b.Load().Lineage.Serial)
	})

	t.Run("two strategies", func(t *testing.T) {
		_, b := diverged(t)
		res := run(t, b, "state", "resolve", "--merge", "--use-local")
		assert.Equal(t, errors.ExitFailure, res.code)
	})

	t.Run("no strategy", func(t *testing.T) {
		_, b := diverged(t)
		res := run(t, b, "state", "resolve")
		assert.Equal(t, errors.ExitFailure, res.code)
		assert.Contains(t, res.stderr, "choose a strategy")
	})
}

func TestUnlockCommand(t *testing.T) {
	te := testutil.NewTestEnvironment(t)
	te.InitState("work")
	_, err := te.Env().Locks.Acquire(context.Background(), lock.Request{Operation: "apply", Reason: "apply dotfiles"})
	require.NoError(t, err)

	res := run(t, te, "state", "lock-info")
	require.Equal(t, errors.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Locked by")
	assert.Contains(t, res.stdout, "operation: apply")

	res = run(t, te, "sync")
	assert.Equal(t, errors.ExitLockHeld, res.code)

	res = run(t, te, "state", "unlock", "--force")
	require.Equal(t, errors.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Removed the lock")

	res = run(t, te, "state", "lock-info")
	assert.Contains(t, res.stdout, "No lock held")
}

func TestUnknownOutputFormat(t *testing.T) {
	te := testutil.NewTestEnvironment(t)
	te.InitState("work")

	res := run(t, te, "-o", "xml", "state", "version")
	assert.Equal(t, errors.ExitFailure, res.code)
	assert.Contains(t, res.stderr, "unknown output format")
}

func TestHelp(t *testing.T) {
	te := testutil.NewTestEnvironment(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "topic", args: []string{"help", "conflicts"}, want: []string{"serial-divergence", "resolve"}},
		{name: "command", args: []string{"help", "state"}, want: []string{"check-conflicts", "migrate"}},
		{name: "root", args: []string{"--help"}, want: []string{"COMMANDS:", "sync", "state"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, te, tt.args...)
			require.Equal(t, errors.ExitOK, res.code, res.stderr)
			for _, w := range tt.want {
				assert.Contains(t, res.stdout, w)
			}
		})
	}
}

func TestCompletion(t *testing.T) {
	te := testutil.NewTestEnvironment(t)
	res := run(t, te, "completion", "bash")
	require.Equal(t, errors.ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "heimdal")
}
