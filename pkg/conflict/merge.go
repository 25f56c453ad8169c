package conflict

import (
	"cmp"
	"slices"
	"time"

	"github.com/limistah/heimdal/pkg/state"
)

// Policy is the merge rule for one snapshot field.
type Policy struct {
	Field string
	Rule  string
	apply func(out, local, remote *state.Snapshot)
}

// Apply runs the rule, writing into out. out starts as a copy of local.
func (p Policy) Apply(out, local, remote *state.Snapshot) {
	p.apply(out, local, remote)
}

// MergePolicies lists every merged field in the order Merge applies them.
// lineage.id runs before lineage.machines because it compares the sets as
// they were before the union.
func MergePolicies() []Policy {
	return []Policy{
		{
			Field: "lineage.id",
			Rule:  "side with the larger machines set; tie keeps local",
			apply: func(out, local, remote *state.Snapshot) {
				out.Lineage.ID = local.Lineage.ID
				if len(remote.Lineage.Machines) > len(local.Lineage.Machines) {
					out.Lineage.ID = remote.Lineage.ID
				}
			},
		},
		{
			Field: "lineage.serial",
			Rule:  "max(local, remote) + 1",
			apply: func(out, local, remote *state.Snapshot) {
				out.Lineage.Serial = max(local.Lineage.Serial, remote.Lineage.Serial) + 1
			},
		},
		{
			Field: "lineage.parent_serial",
			Rule:  "merged serial - 1",
			apply: func(out, local, remote *state.Snapshot) {
				out.Lineage.ParentSerial = out.Lineage.Serial - 1
			},
		},
		{
			Field: "lineage.machines",
			Rule:  "union, local order first",
			apply: func(out, local, remote *state.Snapshot) {
				out.Lineage.Machines = state.UnionMachines(local.Lineage.Machines, remote.Lineage.Machines)
			},
		},
		{
			Field: "lineage.git_commit",
			Rule:  "remote when set, otherwise local",
			apply: func(out, local, remote *state.Snapshot) {
				out.Lineage.GitCommit = local.Lineage.GitCommit
				if remote.Lineage.GitCommit != "" {
					out.Lineage.GitCommit = remote.Lineage.GitCommit
				}
			},
		},
		{
			Field: "active_profile",
			Rule:  "most recently written side; tie keeps local",
			apply: func(out, local, remote *state.Snapshot) {
				out.ActiveProfile = pick(local, remote).ActiveProfile
			},
		},
		{
			Field: "dotfiles_path",
			Rule:  "most recently written side; tie keeps local",
			apply: func(out, local, remote *state.Snapshot) {
				out.DotfilesPath = pick(local, remote).DotfilesPath
			},
		},
		{
			Field: "last_sync",
			Rule:  "later timestamp; tie keeps local",
			apply: func(out, local, remote *state.Snapshot) {
				out.LastSync = laterTime(local.LastSync, remote.LastSync)
			},
		},
		{
			Field: "last_apply",
			Rule:  "later timestamp; tie keeps local",
			apply: func(out, local, remote *state.Snapshot) {
				out.LastApply = laterTime(local.LastApply, remote.LastApply)
			},
		},
		{
			Field: "history",
			Rule:  "union deduplicated by (machine_id, serial), sorted by timestamp, newest 50 kept",
			apply: func(out, local, remote *state.Snapshot) {
				out.History = mergeHistory(local.History, remote.History)
			},
		},
		{
			Field: "checksums",
			Rule:  "remote wins on collision; keys from either side are kept",
			apply: func(out, local, remote *state.Snapshot) {
				merged := make(map[string]string, len(local.Checksums)+len(remote.Checksums))
				for k, v := range local.Checksums {
					merged[k] = v
				}
				for k, v := range remote.Checksums {
					merged[k] = v
				}
				out.Checksums = merged
			},
		},
		{
			Field: "version, repo_url, machine, tool_version",
			Rule:  "local",
			apply: func(out, local, remote *state.Snapshot) {},
		},
	}
}

// Merge combines two snapshots following MergePolicies. Neither input is
// modified.
func Merge(local, remote *state.Snapshot) *state.Snapshot {
	out := local.Clone()
	for _, p := range MergePolicies() {
		p.apply(out, local, remote)
	}
	return out
}

// lastWrite is when a side was last written: its newest history entry, or
// the machine's last_seen for snapshots without history.
func lastWrite(s *state.Snapshot) time.Time {
	if rec, ok := s.LatestRecord(); ok {
		return rec.Timestamp
	}
	if s.Machine.LastSeen != nil {
		return *s.Machine.LastSeen
	}
	return time.Time{}
}

func pick(local, remote *state.Snapshot) *state.Snapshot {
	if lastWrite(remote).After(lastWrite(local)) {
		return remote
	}
	return local
}

func laterTime(local, remote *time.Time) *time.Time {
	switch {
	case remote == nil:
		return cloneTime(local)
	case local == nil || remote.After(*local):
		return cloneTime(remote)
	default:
		return cloneTime(local)
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

type historyKey struct {
	machine string
	serial  uint64
}

func mergeHistory(local, remote []state.OperationRecord) []state.OperationRecord {
	seen := make(map[historyKey]bool, len(local)+len(remote))
	out := make([]state.OperationRecord, 0, len(local)+len(remote))
	for _, h := range [][]state.OperationRecord{local, remote} {
		for _, rec := range h {
			k := historyKey{rec.MachineID, rec.Serial}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, rec)
		}
	}

	slices.SortStableFunc(out, func(a, b state.OperationRecord) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Serial, b.Serial); c != 0 {
			return c
		}
		return cmp.Compare(a.MachineID, b.MachineID)
	})
	return state.TrimHistory(out)
}
