package state

import (
	"fmt"
	"strconv"
	"strings"
)

// CompatLevel grades how well the running build matches the build that last
// wrote a snapshot.
type CompatLevel string

const (
	CompatExact              CompatLevel = "exact"
	CompatCompatible         CompatLevel = "compatible"
	CompatUpgradeRecommended CompatLevel = "upgrade-recommended"
	CompatDowngradeWarning   CompatLevel = "downgrade-warning"
	CompatIncompatible       CompatLevel = "incompatible"
)

// Compatibility is the result of CheckToolCompatibility.
type Compatibility struct {
	Level          CompatLevel `json:"level" yaml:"level" toml:"level"`
	StateVersion   string      `json:"state_version" yaml:"state_version" toml:"state_version"`
	CurrentVersion string      `json:"current_version" yaml:"current_version" toml:"current_version"`
	Reason         string      `json:"reason,omitempty" yaml:"reason,omitempty" toml:"reason,omitempty"`
}

// Safe reports whether operating on the snapshot with this build is fine.
func (c Compatibility) Safe() bool {
	return c.Level != CompatIncompatible && c.Level != CompatDowngradeWarning
}

// CheckToolCompatibility compares the tool version stored in a snapshot with
// the running one. A major version change is incompatible; the state being
// on an older minor recommends an upgrade of the state (it is rewritten on
// the next save); a newer minor warns about a downgrade.
func CheckToolCompatibility(stateVersion, current string) Compatibility {
	c := Compatibility{StateVersion: stateVersion, CurrentVersion: current}

	if stateVersion == current {
		c.Level = CompatExact
		return c
	}
	if isDevBuild(current) {
		c.Level = CompatCompatible
		c.Reason = "development build"
		return c
	}
	if stateVersion == "" {
		c.Level = CompatCompatible
		c.Reason = "state does not record a tool version"
		return c
	}

	sv, err := parseVersion(stateVersion)
	if err != nil {
		c.Level = CompatCompatible
		c.Reason = err.Error()
		return c
	}
	cv, err := parseVersion(current)
	if err != nil {
		c.Level = CompatCompatible
		c.Reason = err.Error()
		return c
	}

	switch {
	case sv[0] != cv[0]:
		c.Level = CompatIncompatible
		c.Reason = "major version mismatch"
	case sv[1] < cv[1]:
		c.Level = CompatUpgradeRecommended
	case sv[1] > cv[1]:
		c.Level = CompatDowngradeWarning
	default:
		c.Level = CompatCompatible
	}
	return c
}

func isDevBuild(v string) bool {
	return v == "" || v == "dev" || strings.HasSuffix(v, "-dev")
}

// parseVersion accepts "1.2.3", "v1.2.3" and pre-release/build suffixes.
func parseVersion(v string) ([3]int, error) {
	var out [3]int
	core := strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return out, fmt.Errorf("invalid version format: %s", v)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return out, fmt.Errorf("invalid version format: %s", v)
		}
		out[i] = n
	}
	return out, nil
}
