package state

import (
	"sort"
	"time"
)

const (
	// CurrentVersion is the schema version written by this build.
	CurrentVersion = 2
	// HistoryLimit bounds Snapshot.History. Oldest entries go first.
	HistoryLimit = 50
)

// Snapshot is the on-disk state record for one dotfiles repository as seen
// by one machine.
type Snapshot struct {
	Version       int               `json:"version" yaml:"version" toml:"version"`
	ActiveProfile string            `json:"active_profile" yaml:"active_profile" toml:"active_profile"`
	DotfilesPath  string            `json:"dotfiles_path" yaml:"dotfiles_path" toml:"dotfiles_path"`
	RepoURL       string            `json:"repo_url" yaml:"repo_url" toml:"repo_url"`
	LastSync      *time.Time        `json:"last_sync" yaml:"last_sync" toml:"last_sync"`
	LastApply     *time.Time        `json:"last_apply" yaml:"last_apply" toml:"last_apply"`
	Machine       MachineRecord     `json:"machine" yaml:"machine" toml:"machine"`
	ToolVersion   string            `json:"tool_version" yaml:"tool_version" toml:"tool_version"`
	Lineage       Lineage           `json:"lineage" yaml:"lineage" toml:"lineage"`
	History       []OperationRecord `json:"history" yaml:"history" toml:"history"`
	Checksums     map[string]string `json:"checksums" yaml:"checksums" toml:"checksums"`
}

// MachineRecord identifies the machine that last wrote the snapshot.
type MachineRecord struct {
	ID        string     `json:"id" yaml:"id" toml:"id"`
	Hostname  string     `json:"hostname" yaml:"hostname" toml:"hostname"`
	OS        string     `json:"os" yaml:"os" toml:"os"`
	OSVersion string     `json:"os_version,omitempty" yaml:"os_version,omitempty" toml:"os_version,omitempty"`
	Arch      string     `json:"arch" yaml:"arch" toml:"arch"`
	User      string     `json:"user" yaml:"user" toml:"user"`
	FirstSeen *time.Time `json:"first_seen,omitempty" yaml:"first_seen,omitempty" toml:"first_seen,omitempty"`
	LastSeen  *time.Time `json:"last_seen,omitempty" yaml:"last_seen,omitempty" toml:"last_seen,omitempty"`
}

// OperationRecord is one history entry.
type OperationRecord struct {
	Operation   string    `json:"operation" yaml:"operation" toml:"operation"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp" toml:"timestamp"`
	MachineID   string    `json:"machine_id" yaml:"machine_id" toml:"machine_id"`
	User        string    `json:"user" yaml:"user" toml:"user"`
	Serial      uint64    `json:"serial" yaml:"serial" toml:"serial"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
}

// Clone returns a deep copy, so resolvers and callers can mutate freely.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.LastSync = cloneTime(s.LastSync)
	c.LastApply = cloneTime(s.LastApply)
	c.Machine.FirstSeen = cloneTime(s.Machine.FirstSeen)
	c.Machine.LastSeen = cloneTime(s.Machine.LastSeen)
	c.Lineage.Machines = append([]string(nil), s.Lineage.Machines...)
	c.History = append([]OperationRecord(nil), s.History...)
	c.Checksums = make(map[string]string, len(s.Checksums))
	for k, v := range s.Checksums {
		c.Checksums[k] = v
	}
	return &c
}

// LatestRecord returns the newest history entry by timestamp.
func (s *Snapshot) LatestRecord() (OperationRecord, bool) {
	if len(s.History) == 0 {
		return OperationRecord{}, false
	}
	latest := s.History[0]
	for _, r := range s.History[1:] {
		if !r.Timestamp.Before(latest.Timestamp) {
			latest = r
		}
	}
	return latest, true
}

// LastActivity is the most recent history timestamp for machineID.
func (s *Snapshot) LastActivity(machineID string) (time.Time, bool) {
	var last time.Time
	found := false
	for _, r := range s.History {
		if r.MachineID == machineID && (!found || r.Timestamp.After(last)) {
			last = r.Timestamp
			found = true
		}
	}
	return last, found
}

// AppendHistory adds rec and evicts the oldest entries beyond HistoryLimit.
func (s *Snapshot) AppendHistory(rec OperationRecord) {
	s.History = append(s.History, rec)
	s.History = TrimHistory(s.History)
}

// TrimHistory keeps the newest HistoryLimit entries in their current order.
func TrimHistory(h []OperationRecord) []OperationRecord {
	if len(h) <= HistoryLimit {
		return h
	}
	return append([]OperationRecord(nil), h[len(h)-HistoryLimit:]...)
}

// SortedChecksumKeys returns the tracked paths in lexical order.
func (s *Snapshot) SortedChecksumKeys() []string {
	keys := make([]string, 0, len(s.Checksums))
	for k := range s.Checksums {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
