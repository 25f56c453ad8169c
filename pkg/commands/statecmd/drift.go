package statecmd

import (
	"github.com/limistah/heimdal/pkg/commands/env"
	"github.com/limistah/heimdal/pkg/conflict"
	"github.com/limistah/heimdal/pkg/state"
)

// DriftEntry is one tracked file. Severity is set for drifted files only.
type DriftEntry struct {
	state.Drift `yaml:",inline"`
	Severity    string `json:"severity,omitempty" yaml:"severity,omitempty" toml:"severity,omitempty"`
}

// DriftResult is the outcome of CheckDrift.
type DriftResult struct {
	Entries []DriftEntry `json:"entries" yaml:"entries" toml:"entries"`
	Tracked int          `json:"tracked" yaml:"tracked" toml:"tracked"`
	Drifted int          `json:"drifted" yaml:"drifted" toml:"drifted"`
}

// CheckDrift hashes tracked files against the recorded checksums. With all
// set, matching files are listed too. Nothing is written.
func CheckDrift(e *env.Env, all bool) (*DriftResult, error) {
	snap, err := e.Store.Load()
	if err != nil {
		return nil, err
	}

	status, err := e.Store.Checksums().Status(snap)
	if err != nil {
		return nil, err
	}

	res := &DriftResult{Entries: []DriftEntry{}, Tracked: len(status)}
	for _, d := range status {
		entry := DriftEntry{Drift: d}
		if d.Kind != state.DriftNone {
			entry.Severity = conflict.SeverityLow.String()
			res.Drifted++
		} else if !all {
			continue
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}
