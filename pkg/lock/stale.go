package lock

import "time"

// classify decides whether rec may be removed. remote is the state fetched
// by a hybrid probe, if any.
func (m *Manager) classify(rec Record, remote []byte) (bool, StaleReason) {
	now := m.clock()

	if m.cfg.DetectStale && rec.Machine.ID == m.machine.ID {
		alive, err := m.liveness.Alive(rec.Machine.PID)
		if err == nil && !alive {
			return true, StaleDeadProcess
		}
		if err != nil && err != ErrLivenessUnsupported {
			m.logger.Debug().Err(err).Int("pid", rec.Machine.PID).Msg("Process liveness probe failed")
		}
	}

	if m.expired(rec, now) {
		return true, StaleExpired
	}

	if m.cfg.DetectStale && rec.LockType == TypeHybrid && rec.Machine.ID != m.machine.ID && m.cfg.ParticipantWindow > 0 {
		// An owner with no recorded activity is left to the timeout.
		if last, ok := m.lastActivity(rec, remote); ok && now.Sub(last) > m.cfg.ParticipantWindow {
			return true, StaleInactiveOwner
		}
	}

	return false, StaleNone
}

// expired reports whether the lock is older than the configured timeout.
// A created_at in the future (clock skew) never expires.
func (m *Manager) expired(rec Record, now time.Time) bool {
	if m.cfg.Timeout <= 0 {
		return false
	}
	return now.Sub(rec.CreatedAt) > m.cfg.Timeout
}

// lastActivity is the latest participant activity recorded for the lock
// owner's machine, locally or in the fetched remote state.
func (m *Manager) lastActivity(rec Record, remote []byte) (time.Time, bool) {
	var last time.Time
	found := false
	if m.activity != nil {
		if t, ok := m.activity.LastActivity(rec.Machine.ID); ok {
			last, found = t, true
		}
	}
	if m.remoteActivity != nil && len(remote) > 0 {
		if t, ok := m.remoteActivity(remote, rec.Machine.ID); ok && (!found || t.After(last)) {
			last, found = t, true
		}
	}
	return last, found
}
