package state

import "slices"

// Lineage ties a snapshot to one logical dotfiles history.
//
// Serial grows by one on every save. ParentSerial is the serial the last
// save started from.
type Lineage struct {
	ID           string   `json:"id" yaml:"id" toml:"id"`
	Serial       uint64   `json:"serial" yaml:"serial" toml:"serial"`
	ParentSerial uint64   `json:"parent_serial" yaml:"parent_serial" toml:"parent_serial"`
	GitCommit    string   `json:"git_commit" yaml:"git_commit" toml:"git_commit"`
	Machines     []string `json:"machines" yaml:"machines" toml:"machines"`
}

// Advance moves the lineage one step forward on behalf of machineID.
func (l *Lineage) Advance(machineID string) {
	l.ParentSerial = l.Serial
	l.Serial++
	l.AddMachine(machineID)
}

// AddMachine records machineID as a participant. The set is append-only.
func (l *Lineage) AddMachine(machineID string) {
	if machineID == "" || l.HasMachine(machineID) {
		return
	}
	l.Machines = append(l.Machines, machineID)
}

// HasMachine reports whether machineID ever wrote this lineage.
func (l *Lineage) HasMachine(machineID string) bool {
	return slices.Contains(l.Machines, machineID)
}

// DivergedFrom reports whether both sides advanced independently from the
// same base serial.
func (l Lineage) DivergedFrom(other Lineage) bool {
	return l.ParentSerial == other.ParentSerial && l.Serial != other.Serial
}

// UnionMachines merges two participant sets, keeping a's order first.
func UnionMachines(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, set := range [][]string{a, b} {
		for _, id := range set {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
