package state

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/machine"
)

// LegacyVersion is the lineage-less schema heimdal used before version 2.
const LegacyVersion = 1

// legacySnapshot is the version 1 layout.
type legacySnapshot struct {
	ActiveProfile string  `json:"active_profile"`
	DotfilesPath  string  `json:"dotfiles_path"`
	RepoURL       string  `json:"repo_url"`
	LastSync      *string `json:"last_sync"`
	LastApply     *string `json:"last_apply"`
}

// decoder turns raw state bytes into a current snapshot.
type decoder struct {
	machine machine.Info
	now     time.Time
}

// detectVersion returns the declared schema version. A missing version key
// means version 1.
func detectVersion(data []byte) (int, map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return 0, nil, errors.Wrap(err, errors.ErrStateCorrupt, "state is not valid JSON")
	}
	if fields == nil {
		return 0, nil, errors.New(errors.ErrStateCorrupt, "state is not a JSON object")
	}

	raw, ok := fields["version"]
	if !ok || bytes.Equal(raw, []byte("null")) {
		return LegacyVersion, fields, nil
	}
	var version int
	if err := json.Unmarshal(raw, &version); err != nil {
		return 0, nil, errors.Wrap(err, errors.ErrStateCorrupt, "state version is not an integer")
	}
	return version, fields, nil
}

// decode parses data, migrating legacy content in memory. It reports the
// version found on disk.
func (d decoder) decode(data []byte) (*Snapshot, int, error) {
	version, fields, err := detectVersion(data)
	if err != nil {
		return nil, 0, err
	}

	switch {
	case version > CurrentVersion:
		return nil, version, errors.Newf(errors.ErrUnsupportedVersion,
			"state version %d is newer than this build supports (%d); upgrade heimdal", version, CurrentVersion).
			WithDetail("version", version)
	case version < LegacyVersion:
		return nil, version, errors.Newf(errors.ErrStateCorrupt, "invalid state version %d", version).
			WithDetail("version", version)
	case version == LegacyVersion:
		snap, err := d.decodeLegacy(data, fields)
		return snap, version, err
	}

	for _, key := range []string{"lineage", "machine"} {
		if _, ok := fields[key]; !ok {
			return nil, version, errors.Newf(errors.ErrStateCorrupt, "state is missing required field %q", key).
				WithDetail("field", key)
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, version, errors.Wrap(err, errors.ErrStateCorrupt, "cannot decode state")
	}

	switch {
	case snap.Lineage.ID == "":
		return nil, version, missingField("lineage.id")
	case snap.Lineage.Serial < 1:
		return nil, version, missingField("lineage.serial")
	case snap.Machine.ID == "":
		return nil, version, missingField("machine.id")
	}

	normalize(&snap)
	return &snap, version, nil
}

func (d decoder) decodeLegacy(data []byte, fields map[string]json.RawMessage) (*Snapshot, error) {
	for _, key := range []string{"active_profile", "dotfiles_path", "repo_url"} {
		if _, ok := fields[key]; !ok {
			return nil, errors.Newf(errors.ErrStateCorrupt, "legacy state is missing required field %q", key).
				WithDetail("field", key).
				WithDetail("version", LegacyVersion)
		}
	}

	var legacy legacySnapshot
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, errors.Wrap(err, errors.ErrStateCorrupt, "cannot decode legacy state").
			WithDetail("version", LegacyVersion)
	}

	snap := newSnapshot(d.machine, d.now, uuid.NewString())
	snap.ActiveProfile = legacy.ActiveProfile
	snap.DotfilesPath = legacy.DotfilesPath
	snap.RepoURL = legacy.RepoURL
	snap.LastSync = parseLegacyTime(legacy.LastSync)
	snap.LastApply = parseLegacyTime(legacy.LastApply)
	return snap, nil
}

// newSnapshot builds a first-generation snapshot owned by m.
func newSnapshot(m machine.Info, now time.Time, lineageID string) *Snapshot {
	now = now.UTC()
	return &Snapshot{
		Version: CurrentVersion,
		Machine: machineRecord(m, nil, now),
		Lineage: Lineage{
			ID:       lineageID,
			Serial:   1,
			Machines: []string{m.ID},
		},
		History:   []OperationRecord{},
		Checksums: map[string]string{},
	}
}

func machineRecord(m machine.Info, firstSeen *time.Time, now time.Time) MachineRecord {
	if firstSeen == nil {
		firstSeen = &now
	}
	return MachineRecord{
		ID:        m.ID,
		Hostname:  m.Hostname,
		OS:        m.OS,
		OSVersion: m.OSVersion,
		Arch:      m.Arch,
		User:      m.User,
		FirstSeen: cloneTime(firstSeen),
		LastSeen:  &now,
	}
}

func parseLegacyTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func missingField(field string) error {
	return errors.Newf(errors.ErrStateCorrupt, "state is missing required field %q", field).
		WithDetail("field", field)
}

// normalize replaces nil collections so the file always carries [] and {}.
func normalize(s *Snapshot) {
	if s.History == nil {
		s.History = []OperationRecord{}
	}
	if s.Checksums == nil {
		s.Checksums = map[string]string{}
	}
	if s.Lineage.Machines == nil {
		s.Lineage.Machines = []string{}
	}
}

// encode renders a snapshot the way it is stored on disk.
func encode(s *Snapshot) ([]byte, error) {
	normalize(s)
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot encode state")
	}
	return append(data, '\n'), nil
}

// ActivityIn returns machineID's most recent history timestamp found in raw
// state bytes. Unreadable input yields false.
func ActivityIn(data []byte, machineID string) (time.Time, bool) {
	var partial struct {
		History []OperationRecord `json:"history"`
	}
	if len(data) == 0 || json.Unmarshal(data, &partial) != nil {
		return time.Time{}, false
	}
	s := Snapshot{History: partial.History}
	return s.LastActivity(machineID)
}
