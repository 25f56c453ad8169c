package conflict

import (
	"fmt"
	"strings"

	"github.com/limistah/heimdal/pkg/errors"
)

// Kind names a class of conflict.
type Kind string

const (
	KindSerialDivergence Kind = "serial-divergence"
	KindProfileMismatch  Kind = "profile-mismatch"
	KindPathMismatch     Kind = "path-mismatch"
	KindFileDrift        Kind = "file-drift"
)

// Severity ranks conflicts. The zero value means no conflict.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "none"
	}
}

// MarshalText renders the severity by name in json, yaml and toml output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "none", "":
		*s = SeverityNone
	case "low":
		*s = SeverityLow
	case "medium":
		*s = SeverityMedium
	case "high":
		*s = SeverityHigh
	default:
		return errors.Newf(errors.ErrInvalidInput, "unknown severity %q", text)
	}
	return nil
}

// DriftKind tells a changed checksum from one tracked on a single side.
type DriftKind string

const (
	DriftModified DriftKind = "modified"
	DriftMissing  DriftKind = "missing"
)

// Conflict is one entry of a Report. Path and DriftKind are set for file
// drift only; Local and Remote carry the two differing values.
type Conflict struct {
	Kind      Kind      `json:"kind" yaml:"kind" toml:"kind"`
	Severity  Severity  `json:"severity" yaml:"severity" toml:"severity"`
	Message   string    `json:"message" yaml:"message" toml:"message"`
	Path      string    `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
	DriftKind DriftKind `json:"drift_kind,omitempty" yaml:"drift_kind,omitempty" toml:"drift_kind,omitempty"`
	Local     string    `json:"local,omitempty" yaml:"local,omitempty" toml:"local,omitempty"`
	Remote    string    `json:"remote,omitempty" yaml:"remote,omitempty" toml:"remote,omitempty"`
}

// Report is the ordered result of Detect. It is never persisted.
type Report struct {
	Conflicts []Conflict `json:"conflicts" yaml:"conflicts" toml:"conflicts"`
}

// HasConflicts reports whether anything differs.
func (r Report) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// Highest is the worst severity in the report.
func (r Report) Highest() Severity {
	highest := SeverityNone
	for _, c := range r.Conflicts {
		if c.Severity > highest {
			highest = c.Severity
		}
	}
	return highest
}

// AutoMergeable is true when no entry is High, so automated flows may merge
// without asking.
func (r Report) AutoMergeable() bool {
	return r.Highest() < SeverityHigh
}

// Count returns the number of conflicts of the given kind.
func (r Report) Count(kind Kind) int {
	n := 0
	for _, c := range r.Conflicts {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Summary is a one-line description for logs and error messages.
func (r Report) Summary() string {
	if !r.HasConflicts() {
		return "no conflicts"
	}
	parts := make([]string, 0, 4)
	for _, k := range []Kind{KindSerialDivergence, KindProfileMismatch, KindPathMismatch, KindFileDrift} {
		if n := r.Count(k); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, k))
		}
	}
	return fmt.Sprintf("%d conflict(s), highest severity %s: %s",
		len(r.Conflicts), r.Highest(), strings.Join(parts, ", "))
}

// UnresolvedError wraps a report into the error that blocks a mutating
// command until a strategy is chosen.
func UnresolvedError(r Report) error {
	return errors.Newf(errors.ErrConflictUnresolved,
		"local and remote state conflict (%s); run 'heimdal state check-conflicts' and then 'heimdal state resolve'",
		r.Summary()).
		WithDetail("report", r)
}

// ReportFrom extracts the report attached by UnresolvedError.
func ReportFrom(err error) (Report, bool) {
	details := errors.GetErrorDetails(err)
	if details == nil {
		return Report{}, false
	}
	r, ok := details["report"].(Report)
	return r, ok
}
