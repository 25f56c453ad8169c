// pkg/conflict/conflict_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Verify conflict detection order, severities and report helpers

package conflict_test

import (
	"testing"
	"time"

	"github.com/limistah/heimdal/pkg/conflict"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)

// snapshot builds a snapshot that machine wrote at serial, after parent.
func snapshot(machine string, serial, parent uint64) *state.Snapshot {
	return &state.Snapshot{
		Version:       state.CurrentVersion,
		ActiveProfile: "work",
		DotfilesPath:  "/home/alice/.dotfiles",
		RepoURL:       "git@example.com:alice/dotfiles.git",
		Machine:       state.MachineRecord{ID: machine},
		Lineage: state.Lineage{
			ID:           "lineage-1",
			Serial:       serial,
			ParentSerial: parent,
			Machines:     []string{"machine-a", "machine-b"},
		},
		History:   []state.OperationRecord{},
		Checksums: map[string]string{},
	}
}

// save mimics Store.Save on an in-memory snapshot.
func save(s *state.Snapshot, machine string, at time.Time) *state.Snapshot {
	out := s.Clone()
	out.Machine.ID = machine
	out.Lineage.Advance(machine)
	out.AppendHistory(state.OperationRecord{Operation: "apply", Timestamp: at, MachineID: machine, Serial: out.Lineage.Serial})
	return out
}

func TestDetectIdenticalSnapshots(t *testing.T) {
	a := snapshot("machine-a", 7, 6)
	a.Checksums["zsh/.zshrc"] = "sha256:aa"
	a.History = append(a.History, state.OperationRecord{Operation: "apply", MachineID: "machine-a", Serial: 7, Timestamp: base})

	report := conflict.Detect(a, a.Clone())
	assert.False(t, report.HasConflicts())
	assert.Equal(t, conflict.SeverityNone, report.Highest())
	assert.True(t, report.AutoMergeable())
	assert.NotNil(t, report.Conflicts)
}

func TestDetectDivergedSerials(t *testing.T) {
	local := snapshot("machine-a", 43, 42)
	remote := snapshot("machine-b", 44, 42)

	report := conflict.Detect(local, remote)
	require.Len(t, report.Conflicts, 1)
	c := report.Conflicts[0]
	assert.Equal(t, conflict.KindSerialDivergence, c.Kind)
	assert.Equal(t, conflict.SeverityHigh, c.Severity)
	assert.Equal(t, "43", c.Local)
	assert.Equal(t, "44", c.Remote)
	assert.Contains(t, c.Message, "common parent 42")
	assert.False(t, report.AutoMergeable())
}

func TestDetectRemoteAheadIsNotDivergence(t *testing.T) {
	local := snapshot("machine-a", 42, 41)
	remote := snapshot("machine-b", 43, 42)
	assert.False(t, conflict.Detect(local, remote).HasConflicts())
}

func TestConcurrentApplyScenario(t *testing.T) {
	shared := snapshot("machine-a", 41, 40)
	shared.History = append(shared.History, state.OperationRecord{Operation: "sync", MachineID: "machine-a", Serial: 41, Timestamp: base})
	shared.Lineage.Machines = []string{"machine-a"}

	a := save(shared, "machine-a", base.Add(time.Hour))
	b := save(shared, "machine-b", base.Add(2*time.Hour))
	require.Equal(t, uint64(42), a.Lineage.Serial)
	require.Equal(t, uint64(42), b.Lineage.Serial)
	require.Equal(t, uint64(41), b.Lineage.ParentSerial)

	// B syncs and sees A's push
	report := conflict.Detect(b, a)
	require.Equal(t, 1, report.Count(conflict.KindSerialDivergence))
	assert.Equal(t, conflict.SeverityHigh, report.Conflicts[0].Severity)
	assert.Contains(t, report.Conflicts[0].Message, "machine-b")
	assert.Contains(t, report.Conflicts[0].Message, "machine-a")

	res, err := conflict.Resolve(b, a, conflict.Merged)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, uint64(43), res.Snapshot.Lineage.Serial)
	assert.Equal(t, uint64(42), res.Snapshot.Lineage.ParentSerial)
	assert.ElementsMatch(t, []string{"machine-a", "machine-b"}, res.Snapshot.Lineage.Machines)
	assert.Len(t, res.Snapshot.History, 3)
}

func TestDetectOrderAndSeverity(t *testing.T) {
	local := snapshot("machine-a", 10, 9)
	remote := snapshot("machine-b", 11, 9)
	remote.ActiveProfile = "home"
	remote.DotfilesPath = "/Users/alice/dotfiles"
	local.Checksums = map[string]string{
		"vim/.vimrc":      "sha256:01",
		"zsh/.zshrc":      "sha256:02",
		"only/local":      "sha256:03",
		"same/everywhere": "sha256:04",
	}
	remote.Checksums = map[string]string{
		"vim/.vimrc":      "sha256:01",
		"zsh/.zshrc":      "sha256:ff",
		"only/remote":     "sha256:05",
		"same/everywhere": "sha256:04",
	}

	report := conflict.Detect(local, remote)
	kinds := make([]conflict.Kind, 0, len(report.Conflicts))
	for _, c := range report.Conflicts {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []conflict.Kind{
		conflict.KindSerialDivergence,
		conflict.KindProfileMismatch,
		conflict.KindPathMismatch,
		conflict.KindFileDrift,
		conflict.KindFileDrift,
		conflict.KindFileDrift,
	}, kinds)

	assert.Equal(t, conflict.SeverityMedium, report.Conflicts[1].Severity)
	assert.Equal(t, conflict.SeverityHigh, report.Conflicts[2].Severity)

	drift := report.Conflicts[3:]
	assert.Equal(t, "only/local", drift[0].Path)
	assert.Equal(t, conflict.DriftMissing, drift[0].DriftKind)
	assert.Equal(t, "only/remote", drift[1].Path)
	assert.Equal(t, conflict.DriftMissing, drift[1].DriftKind)
	assert.Equal(t, "zsh/.zshrc", drift[2].Path)
	assert.Equal(t, conflict.DriftModified, drift[2].DriftKind)
	assert.Equal(t, "sha256:02", drift[2].Local)
	assert.Equal(t, "sha256:ff", drift[2].Remote)
	for _, d := range drift {
		assert.Equal(t, conflict.SeverityLow, d.Severity)
	}

	assert.Equal(t, 3, report.Count(conflict.KindFileDrift))
	assert.Equal(t, conflict.SeverityHigh, report.Highest())
	assert.Contains(t, report.Summary(), "6 conflict(s)")
}

func TestLowAndMediumAreAutoMergeable(t *testing.T) {
	local := snapshot("machine-a", 5, 4)
	remote := snapshot("machine-b", 6, 5)
	remote.ActiveProfile = "home"
	remote.Checksums["a"] = "sha256:1"

	report := conflict.Detect(local, remote)
	assert.True(t, report.HasConflicts())
	assert.Equal(t, conflict.SeverityMedium, report.Highest())
	assert.True(t, report.AutoMergeable())
}

func TestDetectIsPure(t *testing.T) {
	local := snapshot("machine-a", 3, 2)
	remote := snapshot("machine-b", 4, 2)
	local.Checksums["x"] = "sha256:1"
	before := local.Clone()

	first := conflict.Detect(local, remote)
	second := conflict.Detect(local, remote)
	assert.Equal(t, first, second)
	assert.Equal(t, before, local)
}

func TestUnresolvedError(t *testing.T) {
	report := conflict.Detect(snapshot("machine-a", 3, 2), snapshot("machine-b", 4, 2))
	err := conflict.UnresolvedError(report)

	assert.True(t, errors.IsErrorCode(err, errors.ErrConflictUnresolved))
	assert.Equal(t, errors.ExitConflict, errors.ExitCode(err))

	got, ok := conflict.ReportFrom(err)
	require.True(t, ok)
	assert.Equal(t, report, got)
}

func TestSeverityText(t *testing.T) {
	for _, s := range []conflict.Severity{conflict.SeverityNone, conflict.SeverityLow, conflict.SeverityMedium, conflict.SeverityHigh} {
		text, err := s.MarshalText()
		require.NoError(t, err)
		var back conflict.Severity
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}
	var s conflict.Severity
	assert.Error(t, s.UnmarshalText([]byte("critical")))
}
