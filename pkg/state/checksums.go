package state

import (
	"os"
	"sort"

	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/internal/hashutil"
	"github.com/limistah/heimdal/pkg/paths"
)

// DriftKind classifies a tracked file compared to its recorded checksum.
type DriftKind string

const (
	DriftNone     DriftKind = "ok"
	DriftModified DriftKind = "modified"
	DriftMissing  DriftKind = "missing"
)

// Drift is the status of one tracked path.
type Drift struct {
	Path     string    `json:"path" yaml:"path" toml:"path"`
	Resolved string    `json:"resolved" yaml:"resolved" toml:"resolved"`
	Kind     DriftKind `json:"kind" yaml:"kind" toml:"kind"`
	Expected string    `json:"expected" yaml:"expected" toml:"expected"`
	Actual   string    `json:"actual,omitempty" yaml:"actual,omitempty" toml:"actual,omitempty"`
}

// ChecksumTracker hashes tracked files. It never writes to disk.
type ChecksumTracker struct {
	// Resolve maps a checksum key to the file it describes.
	Resolve func(tracked string) string
}

// NewChecksumTracker resolves keys against p.
func NewChecksumTracker(p paths.Paths) *ChecksumTracker {
	return &ChecksumTracker{Resolve: p.Resolve}
}

// CheckDrift returns only the tracked paths whose content no longer matches,
// sorted by path. The snapshot is not modified.
func (t *ChecksumTracker) CheckDrift(snap *Snapshot) ([]Drift, error) {
	all, err := t.Status(snap)
	if err != nil {
		return nil, err
	}
	drifted := make([]Drift, 0, len(all))
	for _, d := range all {
		if d.Kind != DriftNone {
			drifted = append(drifted, d)
		}
	}
	return drifted, nil
}

// Status reports every tracked path, matching ones included.
func (t *ChecksumTracker) Status(snap *Snapshot) ([]Drift, error) {
	out := make([]Drift, 0, len(snap.Checksums))
	for _, key := range snap.SortedChecksumKeys() {
		expected := snap.Checksums[key]
		resolved := t.resolve(key)

		d := Drift{Path: key, Resolved: resolved, Expected: expected, Kind: DriftNone}
		actual, err := hashutil.FileChecksumLike(resolved, expected)
		switch {
		case os.IsNotExist(err):
			d.Kind = DriftMissing
		case err != nil:
			return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot hash %s", resolved).
				WithDetail("path", resolved)
		default:
			d.Actual = actual
			if actual != expected {
				d.Kind = DriftModified
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// Record refreshes the checksums of the given tracked paths. Paths whose
// file no longer exists are dropped from the map.
func (t *ChecksumTracker) Record(snap *Snapshot, tracked []string) error {
	if snap.Checksums == nil {
		snap.Checksums = map[string]string{}
	}
	keys := append([]string(nil), tracked...)
	sort.Strings(keys)

	for _, key := range keys {
		if key == "" {
			continue
		}
		resolved := t.resolve(key)
		sum, err := hashutil.CalculateFileChecksum(resolved)
		switch {
		case os.IsNotExist(err):
			delete(snap.Checksums, key)
		case err != nil:
			return errors.Wrapf(err, errors.ErrFileAccess, "cannot hash %s", resolved).
				WithDetail("path", resolved)
		default:
			snap.Checksums[key] = sum
		}
	}
	return nil
}

func (t *ChecksumTracker) resolve(key string) string {
	if t.Resolve == nil {
		return paths.ExpandHome(key)
	}
	return t.Resolve(key)
}
