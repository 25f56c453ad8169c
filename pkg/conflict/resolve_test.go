// pkg/conflict/resolve_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Verify resolution strategies and the merge policy table

package conflict_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/limistah/heimdal/pkg/conflict"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(h int) *time.Time {
	t := base.Add(time.Duration(h) * time.Hour)
	return &t
}

func TestParseStrategy(t *testing.T) {
	for _, s := range conflict.Strategies() {
		got, err := conflict.ParseStrategy(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := conflict.ParseStrategy("theirs")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestResolveStrategies(t *testing.T) {
	local := snapshot("machine-a", 12, 10)
	local.ActiveProfile = "work"
	local.Lineage.Machines = []string{"machine-a"}
	remote := snapshot("machine-b", 15, 10)
	remote.ActiveProfile = "home"
	remote.Lineage.ID = "lineage-remote"
	remote.Lineage.Machines = []string{"machine-b", "machine-c"}

	t.Run("use local", func(t *testing.T) {
		res, err := conflict.Resolve(local, remote, conflict.UseLocal)
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.Equal(t, "work", res.Snapshot.ActiveProfile)
		assert.Equal(t, "lineage-1", res.Snapshot.Lineage.ID)
		assert.Equal(t, uint64(16), res.Snapshot.Lineage.Serial)
		assert.Equal(t, uint64(15), res.Snapshot.Lineage.ParentSerial)
		assert.Equal(t, []string{"machine-a", "machine-b", "machine-c"}, res.Snapshot.Lineage.Machines)
		assert.True(t, res.Report.HasConflicts())
	})

	t.Run("use remote", func(t *testing.T) {
		res, err := conflict.Resolve(local, remote, conflict.UseRemote)
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.Equal(t, "home", res.Snapshot.ActiveProfile)
		assert.Equal(t, "lineage-1", res.Snapshot.Lineage.ID, "re-parented onto the local lineage")
		assert.Equal(t, uint64(16), res.Snapshot.Lineage.Serial)
		assert.Equal(t, "machine-a", res.Snapshot.Machine.ID, "keeps the local machine record")
		assert.Equal(t, "machine-b", remote.Machine.ID)
	})

	t.Run("manual", func(t *testing.T) {
		res, err := conflict.Resolve(local, remote, conflict.Manual)
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.Nil(t, res.Snapshot)
		assert.Equal(t, conflict.Detect(local, remote), res.Report)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := conflict.Resolve(local, remote, conflict.Strategy("coin-flip"))
		assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	})

	t.Run("missing remote", func(t *testing.T) {
		_, err := conflict.Resolve(local, nil, conflict.Merged)
		assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
	})

	// inputs untouched by every strategy
	assert.Equal(t, uint64(12), local.Lineage.Serial)
	assert.Equal(t, []string{"machine-a"}, local.Lineage.Machines)
	assert.Equal(t, "lineage-remote", remote.Lineage.ID)
}

func TestMergeSerialAlwaysAdvances(t *testing.T) {
	pairs := [][2]uint64{{1, 1}, {1, 9}, {9, 1}, {41, 42}, {100, 100}}
	for _, p := range pairs {
		t.Run(fmt.Sprintf("%d_%d", p[0], p[1]), func(t *testing.T) {
			merged := conflict.Merge(snapshot("machine-a", p[0], 0), snapshot("machine-b", p[1], 0))
			assert.Greater(t, merged.Lineage.Serial, max(p[0], p[1]))
			assert.Equal(t, merged.Lineage.Serial-1, merged.Lineage.ParentSerial)
		})
	}
}

func TestMergeScalars(t *testing.T) {
	tests := []struct {
		name        string
		localAt     time.Time
		remoteAt    time.Time
		wantProfile string
	}{
		{"remote written later", base, base.Add(time.Hour), "home"},
		{"local written later", base.Add(time.Hour), base, "work"},
		{"tie keeps local", base, base, "work"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := snapshot("machine-a", 5, 4)
			local.History = []state.OperationRecord{{MachineID: "machine-a", Serial: 5, Timestamp: tt.localAt}}
			remote := snapshot("machine-b", 5, 4)
			remote.ActiveProfile = "home"
			remote.DotfilesPath = "/srv/dotfiles"
			remote.History = []state.OperationRecord{{MachineID: "machine-b", Serial: 5, Timestamp: tt.remoteAt}}

			merged := conflict.Merge(local, remote)
			assert.Equal(t, tt.wantProfile, merged.ActiveProfile)
			if tt.wantProfile == "home" {
				assert.Equal(t, "/srv/dotfiles", merged.DotfilesPath)
			} else {
				assert.Equal(t, "/home/alice/.dotfiles", merged.DotfilesPath)
			}
		})
	}
}

func TestMergeTimestamps(t *testing.T) {
	local := snapshot("machine-a", 5, 4)
	remote := snapshot("machine-b", 6, 4)
	local.LastSync, remote.LastSync = at(1), at(3)
	local.LastApply, remote.LastApply = at(5), nil

	merged := conflict.Merge(local, remote)
	assert.True(t, merged.LastSync.Equal(*at(3)))
	assert.True(t, merged.LastApply.Equal(*at(5)))

	// pointers are not shared with the inputs
	*merged.LastSync = base
	assert.True(t, remote.LastSync.Equal(*at(3)))
}

func TestMergeHistory(t *testing.T) {
	local := snapshot("machine-a", 60, 59)
	remote := snapshot("machine-b", 61, 59)

	// 40 shared entries, then 20 new on each side
	for i := 1; i <= 40; i++ {
		rec := state.OperationRecord{Operation: "apply", MachineID: "machine-a", Serial: uint64(i), Timestamp: base.Add(time.Duration(i) * time.Minute)}
		local.History = append(local.History, rec)
		remote.History = append(remote.History, rec)
	}
	for i := 41; i <= 60; i++ {
		local.History = append(local.History, state.OperationRecord{MachineID: "machine-a", Serial: uint64(i), Timestamp: base.Add(time.Duration(2*i) * time.Minute)})
		remote.History = append(remote.History, state.OperationRecord{MachineID: "machine-b", Serial: uint64(i), Timestamp: base.Add(time.Duration(2*i+1) * time.Minute)})
	}
	local.History = state.TrimHistory(local.History)
	remote.History = state.TrimHistory(remote.History)

	merged := conflict.Merge(local, remote)
	require.Len(t, merged.History, state.HistoryLimit)
	for i := 1; i < len(merged.History); i++ {
		assert.False(t, merged.History[i].Timestamp.Before(merged.History[i-1].Timestamp))
	}
	newest := merged.History[len(merged.History)-1]
	assert.Equal(t, "machine-b", newest.MachineID)
	assert.Equal(t, uint64(60), newest.Serial)

	seen := map[string]bool{}
	for _, rec := range merged.History {
		k := fmt.Sprintf("%s/%d", rec.MachineID, rec.Serial)
		assert.False(t, seen[k], "duplicate %s", k)
		seen[k] = true
	}
}

func TestMergeIsOrderIndependentExceptTies(t *testing.T) {
	a := snapshot("machine-a", 8, 7)
	a.History = []state.OperationRecord{{MachineID: "machine-a", Serial: 8, Timestamp: base}}
	a.Checksums = map[string]string{"x": "sha256:a"}
	b := snapshot("machine-b", 8, 7)
	b.History = []state.OperationRecord{{MachineID: "machine-b", Serial: 8, Timestamp: base.Add(time.Minute)}}
	b.ActiveProfile = "home"

	ab := conflict.Merge(a, b)
	ba := conflict.Merge(b, a)
	assert.Equal(t, ab.Lineage.Serial, ba.Lineage.Serial)
	assert.Equal(t, ab.History, ba.History)
	assert.Equal(t, ab.ActiveProfile, ba.ActiveProfile)
	assert.ElementsMatch(t, ab.Lineage.Machines, ba.Lineage.Machines)
}

func TestMergeLineageID(t *testing.T) {
	local := snapshot("machine-a", 3, 2)
	remote := snapshot("machine-b", 3, 2)
	remote.Lineage.ID = "lineage-2"

	// tie keeps local
	assert.Equal(t, "lineage-1", conflict.Merge(local, remote).Lineage.ID)

	remote.Lineage.Machines = append(remote.Lineage.Machines, "machine-c")
	assert.Equal(t, "lineage-2", conflict.Merge(local, remote).Lineage.ID)
}

// The remote copy is taken as authoritative for file content. When a local
// commit never made it to the remote, the remote's older hash still wins.
// This pins the current behaviour; the resulting drift shows up in
// check-drift on the next run.
func TestMergeChecksumsPreferRemoteEvenWhenLocalIsNewer(t *testing.T) {
	local := snapshot("machine-a", 9, 8)
	local.Checksums = map[string]string{
		"zsh/.zshrc": "sha256:local-committed-not-pushed",
		"local/only": "sha256:l",
	}
	local.History = []state.OperationRecord{{MachineID: "machine-a", Serial: 9, Timestamp: base.Add(time.Hour)}}
	remote := snapshot("machine-b", 8, 7)
	remote.Checksums = map[string]string{
		"zsh/.zshrc":  "sha256:stale-remote",
		"remote/only": "sha256:r",
	}
	remote.History = []state.OperationRecord{{MachineID: "machine-b", Serial: 8, Timestamp: base}}

	merged := conflict.Merge(local, remote)
	assert.Equal(t, "sha256:stale-remote", merged.Checksums["zsh/.zshrc"])
	assert.Equal(t, "sha256:l", merged.Checksums["local/only"])
	assert.Equal(t, "sha256:r", merged.Checksums["remote/only"])
}

func TestMergePoliciesCoverFields(t *testing.T) {
	fields := map[string]bool{}
	for _, p := range conflict.MergePolicies() {
		assert.NotEmpty(t, p.Rule, p.Field)
		fields[p.Field] = true
	}
	for _, f := range []string{
		"lineage.id", "lineage.serial", "lineage.parent_serial", "lineage.machines",
		"active_profile", "dotfiles_path", "last_sync", "last_apply", "history", "checksums",
	} {
		assert.True(t, fields[f], "no merge policy for %s", f)
	}
}

func TestPolicyApplyIndividually(t *testing.T) {
	local := snapshot("machine-a", 4, 3)
	remote := snapshot("machine-b", 9, 3)
	out := local.Clone()

	for _, p := range conflict.MergePolicies() {
		if p.Field == "lineage.serial" {
			p.Apply(out, local, remote)
		}
	}
	assert.Equal(t, uint64(10), out.Lineage.Serial)
	assert.Equal(t, uint64(3), out.Lineage.ParentSerial, "other fields untouched")
}
