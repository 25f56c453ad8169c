// pkg/commands/statecmd/helpers_test.go
// TEST TYPE: Test Helpers
// DEPENDENCIES: pkg/testutil
// PURPOSE: Shared operations for state command tests

package statecmd_test

import (
	"context"
	"testing"
	"time"

	"github.com/limistah/heimdal/pkg/coordinator"
	"github.com/limistah/heimdal/pkg/state"
	"github.com/limistah/heimdal/pkg/testutil"
	"github.com/stretchr/testify/require"
)

// run executes one operation on te a minute after the previous one.
func run(t *testing.T, te *testutil.TestEnvironment, op coordinator.Operation, fn coordinator.Work) *coordinator.Outcome {
	t.Helper()
	te.Advance(time.Minute)
	out, err := te.Env().Coordinator.Run(context.Background(), op, fn)
	require.NoError(t, err)
	return out
}

func noop(*state.Snapshot) ([]string, error) { return nil, nil }

// diverged leaves laptop and desktop with competing serial 2 states. The
// remote holds the laptop's, with profile "laptop".
func diverged(t *testing.T) (a, b *testutil.TestEnvironment) {
	t.Helper()
	a = testutil.NewTestEnvironment(t)
	a.InitState("work")
	b = a.Clone(testutil.Desktop)

	run(t, a, coordinator.Operation{Name: "apply", FetchRemote: true, Publish: true}, func(s *state.Snapshot) ([]string, error) {
		s.ActiveProfile = "laptop"
		return nil, nil
	})
	run(t, b, coordinator.Operation{Name: "apply"}, noop)
	return a, b
}
