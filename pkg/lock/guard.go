package lock

import "sync"

// Guard proves its holder owns the state lock. It is the capability the
// state store demands before writing.
type Guard struct {
	mgr *Manager

	mu            sync.Mutex
	state         State
	record        Record
	warnings      []Warning
	remote        []byte
	remoteFetched bool
	disabled      bool
	released      bool
	releaseErr    error
}

// Held reports whether the guard still owns the lock.
func (g *Guard) Held() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == StateLocked
}

// State is the guard's lifecycle position.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Record is the lock record this guard wrote.
func (g *Guard) Record() Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.record
}

// Warnings lists non-fatal conditions met while acquiring.
func (g *Guard) Warnings() []Warning {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Warning(nil), g.warnings...)
}

// RemoteState returns the remote state fetched by the hybrid probe. ok is
// false when no probe succeeded; data may be nil when the remote has no
// state file.
func (g *Guard) RemoteState() (data []byte, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remote, g.remoteFetched
}

// Disabled reports whether locking was turned off for this guard.
func (g *Guard) Disabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disabled
}

// Release gives the lock back. Calling it again returns the first result.
func (g *Guard) Release() error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	if g.released || g.state != StateLocked {
		err := g.releaseErr
		g.mu.Unlock()
		return err
	}
	g.state = StateReleasing
	rec, disabled := g.record, g.disabled
	g.mu.Unlock()

	var err error
	if !disabled {
		err = g.mgr.release(rec)
	}

	g.mu.Lock()
	g.released = true
	g.releaseErr = err
	g.state = StateUnlocked
	g.mu.Unlock()

	if err == nil {
		g.mgr.logger.Debug().Str("lock_id", rec.ID).Msg("Lock released")
	}
	return err
}

func (g *Guard) setState(s State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = s
}

func (g *Guard) warn(kind WarningKind, msg string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.warnings = append(g.warnings, Warning{Kind: kind, Message: msg})
}
