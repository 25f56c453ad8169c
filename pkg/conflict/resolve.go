package conflict

import (
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/state"
)

// Strategy selects how Resolve settles a conflict. There is no default.
type Strategy string

const (
	UseLocal  Strategy = "use-local"
	UseRemote Strategy = "use-remote"
	Merged    Strategy = "merge"
	Manual    Strategy = "manual"
)

// Strategies lists every strategy in the order the CLI presents them.
func Strategies() []Strategy {
	return []Strategy{UseLocal, UseRemote, Merged, Manual}
}

// ParseStrategy converts a flag value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errors.Newf(errors.ErrInvalidInput,
		"unknown resolution strategy %q (want use-local, use-remote, merge or manual)", s)
}

// Resolution is the outcome of Resolve. Snapshot is nil and Applied false
// for Manual.
type Resolution struct {
	Strategy Strategy        `json:"strategy" yaml:"strategy" toml:"strategy"`
	Snapshot *state.Snapshot `json:"-" yaml:"-" toml:"-"`
	Report   Report          `json:"report" yaml:"report" toml:"report"`
	Applied  bool            `json:"applied" yaml:"applied" toml:"applied"`
}

// Resolve applies strategy to local and remote. The inputs are never
// modified; the result already carries its final serial and must be written
// as-is.
func Resolve(local, remote *state.Snapshot, strategy Strategy) (*Resolution, error) {
	if local == nil {
		return nil, errors.New(errors.ErrInvalidInput, "no local state to resolve")
	}
	if remote == nil {
		return nil, errors.New(errors.ErrInvalidInput, "no remote state to resolve against")
	}

	res := &Resolution{Strategy: strategy, Report: Detect(local, remote)}

	switch strategy {
	case UseLocal:
		out := local.Clone()
		advance(out, local, remote)
		res.Snapshot = out
	case UseRemote:
		out := remote.Clone()
		out.Lineage.ID = local.Lineage.ID
		// the file stays this host's
		out.Machine = local.Machine
		advance(out, local, remote)
		res.Snapshot = out
	case Merged:
		res.Snapshot = Merge(local, remote)
	case Manual:
		return res, nil
	default:
		_, err := ParseStrategy(string(strategy))
		return nil, err
	}

	res.Applied = true
	return res, nil
}

// advance moves the winner past both sides so the discarded one can never
// look newer, and keeps the participant set append-only.
func advance(out, local, remote *state.Snapshot) {
	out.Lineage.Serial = max(local.Lineage.Serial, remote.Lineage.Serial) + 1
	out.Lineage.ParentSerial = out.Lineage.Serial - 1
	out.Lineage.Machines = state.UnionMachines(local.Lineage.Machines, remote.Lineage.Machines)
}
