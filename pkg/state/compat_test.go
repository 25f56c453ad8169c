// pkg/state/compat_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Verify tool version compatibility grading

package state_test

import (
	"testing"

	"github.com/limistah/heimdal/pkg/state"
	"github.com/stretchr/testify/assert"
)

func TestCheckToolCompatibility(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		current  string
		expected state.CompatLevel
		safe     bool
	}{
		{"identical", "1.4.0", "1.4.0", state.CompatExact, true},
		{"patch difference", "1.4.0", "1.4.3", state.CompatCompatible, true},
		{"state on older minor", "1.2.0", "1.4.0", state.CompatUpgradeRecommended, true},
		{"state on newer minor", "1.6.0", "1.4.0", state.CompatDowngradeWarning, false},
		{"major mismatch", "2.0.0", "1.4.0", state.CompatIncompatible, false},
		{"v prefix and prerelease", "v1.4.0-rc.1", "1.4.2", state.CompatCompatible, true},
		{"development build", "1.4.0", "dev", state.CompatCompatible, true},
		{"unrecorded version", "", "1.4.0", state.CompatCompatible, true},
		{"garbage version", "banana", "1.4.0", state.CompatCompatible, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := state.CheckToolCompatibility(tt.stored, tt.current)
			assert.Equal(t, tt.expected, c.Level)
			assert.Equal(t, tt.safe, c.Safe())
			assert.Equal(t, tt.stored, c.StateVersion)
		})
	}
}
