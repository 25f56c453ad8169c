package lock

import (
	"fmt"
	"time"

	"github.com/limistah/heimdal/pkg/errors"
)

// Type selects the locking mode.
type Type string

const (
	TypeLocal    Type = "local"
	TypeHybrid   Type = "hybrid"
	TypeDisabled Type = "disabled"
)

// ParseType converts a config value to a Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeLocal, TypeHybrid, TypeDisabled:
		return Type(s), nil
	}
	return "", errors.Newf(errors.ErrInvalidInput, "unknown lock type %q (want local, hybrid or disabled)", s)
}

// Owner identifies the process holding a lock.
type Owner struct {
	ID       string `json:"id" yaml:"id" toml:"id"`
	Hostname string `json:"hostname" yaml:"hostname" toml:"hostname"`
	PID      int    `json:"pid" yaml:"pid" toml:"pid"`
	User     string `json:"user" yaml:"user" toml:"user"`
}

// Record is the content of the lock file.
type Record struct {
	ID                      string    `json:"id" yaml:"id" toml:"id"`
	LockType                Type      `json:"lock_type" yaml:"lock_type" toml:"lock_type"`
	Operation               string    `json:"operation" yaml:"operation" toml:"operation"`
	Machine                 Owner     `json:"machine" yaml:"machine" toml:"machine"`
	CreatedAt               time.Time `json:"created_at" yaml:"created_at" toml:"created_at"`
	ExpectedDurationSeconds uint64    `json:"expected_duration_seconds,omitempty" yaml:"expected_duration_seconds,omitempty" toml:"expected_duration_seconds,omitempty"`
	Reason                  string    `json:"reason,omitempty" yaml:"reason,omitempty" toml:"reason,omitempty"`
	StateSerial             uint64    `json:"state_serial" yaml:"state_serial" toml:"state_serial"`
}

// Request describes the operation asking for the lock.
type Request struct {
	Operation        string
	Reason           string
	ExpectedDuration time.Duration
}

// StaleReason explains why a lock may be removed.
type StaleReason string

const (
	StaleNone          StaleReason = ""
	StaleDeadProcess   StaleReason = "dead-process"
	StaleExpired       StaleReason = "expired"
	StaleInactiveOwner StaleReason = "inactive-owner"
	StaleUnreadable    StaleReason = "unreadable"
)

// Info is the read-only view returned by Manager.Info.
type Info struct {
	Record      Record        `json:"record" yaml:"record" toml:"record"`
	Age         time.Duration `json:"age" yaml:"age" toml:"age"`
	Stale       bool          `json:"stale" yaml:"stale" toml:"stale"`
	StaleReason StaleReason   `json:"stale_reason,omitempty" yaml:"stale_reason,omitempty" toml:"stale_reason,omitempty"`
}

// State is a guard's position in the lock lifecycle.
type State string

const (
	StateUnlocked  State = "unlocked"
	StateAcquiring State = "acquiring"
	StateLocked    State = "locked"
	StateFailed    State = "failed"
	StateReleasing State = "releasing"
)

// WarningKind classifies a non-fatal condition reported to the caller.
type WarningKind string

const (
	WarnRemoteUnreachable WarningKind = "remote-unreachable"
	WarnRemoteFailed      WarningKind = "remote-failed"
	WarnStaleRemoved      WarningKind = "stale-lock-removed"
	WarnLockingDisabled   WarningKind = "locking-disabled"
)

// Warning is a non-fatal condition the caller must surface to the user.
type Warning struct {
	Kind    WarningKind `json:"kind" yaml:"kind" toml:"kind"`
	Message string      `json:"message" yaml:"message" toml:"message"`
}

func (w Warning) String() string { return w.Message }

// FormatAge renders a lock age the way users read it.
func FormatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	default:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
}
