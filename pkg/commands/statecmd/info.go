package statecmd

import (
	"time"

	"github.com/limistah/heimdal/pkg/commands/env"
	"github.com/limistah/heimdal/pkg/logging"
	"github.com/limistah/heimdal/pkg/state"
)

// DefaultHistoryLimit is the number of entries History shows by default.
const DefaultHistoryLimit = 10

// VersionResult describes the state file and the build reading it.
type VersionResult struct {
	Path           string              `json:"path" yaml:"path" toml:"path"`
	SchemaVersion  int                 `json:"schema_version" yaml:"schema_version" toml:"schema_version"`
	CurrentSchema  int                 `json:"current_schema" yaml:"current_schema" toml:"current_schema"`
	NeedsMigration bool                `json:"needs_migration" yaml:"needs_migration" toml:"needs_migration"`
	Compatibility  state.Compatibility `json:"compatibility" yaml:"compatibility" toml:"compatibility"`
	Lineage        state.Lineage       `json:"lineage" yaml:"lineage" toml:"lineage"`
	Machine        state.MachineRecord `json:"machine" yaml:"machine" toml:"machine"`
	ActiveProfile  string              `json:"active_profile" yaml:"active_profile" toml:"active_profile"`
	LastSync       *time.Time          `json:"last_sync,omitempty" yaml:"last_sync,omitempty" toml:"last_sync,omitempty"`
	LastApply      *time.Time          `json:"last_apply,omitempty" yaml:"last_apply,omitempty" toml:"last_apply,omitempty"`
	TrackedFiles   int                 `json:"tracked_files" yaml:"tracked_files" toml:"tracked_files"`
	HistoryEntries int                 `json:"history_entries" yaml:"history_entries" toml:"history_entries"`
}

// Version reports the schema version and lineage of the local state.
func Version(e *env.Env) (*VersionResult, error) {
	log := logging.GetLogger("commands.state")
	log.Debug().Str("command", "version").Msg("Executing command")

	snap, onDisk, err := e.Store.LoadVersioned()
	if err != nil {
		return nil, err
	}

	return &VersionResult{
		Path:           e.Store.Path(),
		SchemaVersion:  onDisk,
		CurrentSchema:  state.CurrentVersion,
		NeedsMigration: onDisk < state.CurrentVersion,
		Compatibility:  state.CheckToolCompatibility(snap.ToolVersion, e.ToolVersion),
		Lineage:        snap.Lineage,
		Machine:        snap.Machine,
		ActiveProfile:  snap.ActiveProfile,
		LastSync:       snap.LastSync,
		LastApply:      snap.LastApply,
		TrackedFiles:   len(snap.Checksums),
		HistoryEntries: len(snap.History),
	}, nil
}

// HistoryResult lists history entries newest first.
type HistoryResult struct {
	Entries []state.OperationRecord `json:"entries" yaml:"entries" toml:"entries"`
	Total   int                     `json:"total" yaml:"total" toml:"total"`
}

// History returns up to limit entries, newest first. A limit of zero or
// less returns everything.
func History(e *env.Env, limit int) (*HistoryResult, error) {
	snap, err := e.Store.Load()
	if err != nil {
		return nil, err
	}

	total := len(snap.History)
	n := total
	if limit > 0 && limit < n {
		n = limit
	}
	entries := make([]state.OperationRecord, 0, n)
	for i := total - 1; i >= total-n; i-- {
		entries = append(entries, snap.History[i])
	}
	return &HistoryResult{Entries: entries, Total: total}, nil
}
