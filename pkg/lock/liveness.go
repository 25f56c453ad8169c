package lock

import (
	"sync"

	"github.com/limistah/heimdal/pkg/errors"
)

// Liveness answers whether a process id is running on this machine.
// Platforms without a probe return ErrLivenessUnsupported, in which case
// dead-process staleness is never claimed.
type Liveness interface {
	Alive(pid int) (bool, error)
}

// ErrLivenessUnsupported is returned where no process probe exists.
var ErrLivenessUnsupported = errors.New(errors.ErrNotImplemented, "process liveness cannot be checked on this platform")

// FakeLiveness is an in-memory Liveness for tests. Unknown pids are dead.
type FakeLiveness struct {
	mu    sync.Mutex
	alive map[int]bool
	Err   error
}

// NewFakeLiveness returns a FakeLiveness reporting pids as alive.
func NewFakeLiveness(pids ...int) *FakeLiveness {
	f := &FakeLiveness{alive: map[int]bool{}}
	for _, pid := range pids {
		f.alive[pid] = true
	}
	return f
}

// SetAlive marks pid alive or dead.
func (f *FakeLiveness) SetAlive(pid int, alive bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive[pid] = alive
}

func (f *FakeLiveness) Alive(pid int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	return f.alive[pid], nil
}
