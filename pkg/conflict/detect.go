package conflict

import (
	"fmt"
	"sort"
	"time"

	"github.com/limistah/heimdal/pkg/state"
)

// Detect compares two snapshots. The order is fixed: serial divergence,
// profile, path, then one entry per differing checksum sorted by path.
func Detect(local, remote *state.Snapshot) Report {
	report := Report{Conflicts: []Conflict{}}
	if local == nil || remote == nil {
		return report
	}

	if c, ok := serialDivergence(local, remote); ok {
		report.Conflicts = append(report.Conflicts, c)
	}

	if local.ActiveProfile != remote.ActiveProfile {
		report.Conflicts = append(report.Conflicts, Conflict{
			Kind:     KindProfileMismatch,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("active profile differs: local '%s' vs remote '%s'", local.ActiveProfile, remote.ActiveProfile),
			Local:    local.ActiveProfile,
			Remote:   remote.ActiveProfile,
		})
	}

	if local.DotfilesPath != remote.DotfilesPath {
		report.Conflicts = append(report.Conflicts, Conflict{
			Kind:     KindPathMismatch,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("dotfiles path differs: local '%s' vs remote '%s'", local.DotfilesPath, remote.DotfilesPath),
			Local:    local.DotfilesPath,
			Remote:   remote.DotfilesPath,
		})
	}

	report.Conflicts = append(report.Conflicts, fileDrift(local, remote)...)
	return report
}

// serialDivergence applies the divergence rule: both sides moved on from the
// same parent. When they also landed on the same serial the head history
// entries tell whether they are the same write or two independent ones.
func serialDivergence(local, remote *state.Snapshot) (Conflict, bool) {
	l, r := local.Lineage, remote.Lineage
	if l.ParentSerial != r.ParentSerial {
		return Conflict{}, false
	}

	c := Conflict{
		Kind:     KindSerialDivergence,
		Severity: SeverityHigh,
		Local:    fmt.Sprintf("%d", l.Serial),
		Remote:   fmt.Sprintf("%d", r.Serial),
	}

	if l.Serial != r.Serial {
		c.Message = fmt.Sprintf("state diverged: local serial %d vs remote serial %d (common parent %d)",
			l.Serial, r.Serial, l.ParentSerial)
		return c, true
	}

	lh, lok := local.LatestRecord()
	rh, rok := remote.LatestRecord()
	if lok == rok && (!lok || sameHead(lh, rh)) {
		return Conflict{}, false
	}

	c.Message = fmt.Sprintf("state diverged: both sides wrote serial %d from parent %d (local by %s at %s, remote by %s at %s)",
		l.Serial, l.ParentSerial, headWriter(lh, lok), headTime(lh, lok), headWriter(rh, rok), headTime(rh, rok))
	return c, true
}

func sameHead(a, b state.OperationRecord) bool {
	return a.MachineID == b.MachineID && a.Timestamp.Equal(b.Timestamp)
}

func headWriter(r state.OperationRecord, ok bool) string {
	if !ok {
		return "unknown"
	}
	return r.MachineID
}

func headTime(r state.OperationRecord, ok bool) string {
	if !ok {
		return "unknown"
	}
	return r.Timestamp.UTC().Format(time.RFC3339)
}

func fileDrift(local, remote *state.Snapshot) []Conflict {
	keys := make(map[string]struct{}, len(local.Checksums)+len(remote.Checksums))
	for k := range local.Checksums {
		keys[k] = struct{}{}
	}
	for k := range remote.Checksums {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var out []Conflict
	for _, path := range sorted {
		lsum, lok := local.Checksums[path]
		rsum, rok := remote.Checksums[path]

		c := Conflict{Kind: KindFileDrift, Severity: SeverityLow, Path: path, Local: lsum, Remote: rsum}
		switch {
		case lok && rok && lsum != rsum:
			c.DriftKind = DriftModified
			c.Message = fmt.Sprintf("file '%s' differs between local and remote", path)
		case lok && !rok:
			c.DriftKind = DriftMissing
			c.Message = fmt.Sprintf("file '%s' is tracked locally but missing from remote", path)
		case !lok && rok:
			c.DriftKind = DriftMissing
			c.Message = fmt.Sprintf("file '%s' is tracked remotely but missing locally", path)
		default:
			continue
		}
		out = append(out, c)
	}
	return out
}
