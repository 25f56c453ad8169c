//go:build unix

package lock

import (
	stderrors "errors"

	"golang.org/x/sys/unix"
)

type processLiveness struct{}

// ProcessLiveness probes pids with signal 0.
func ProcessLiveness() Liveness { return processLiveness{} }

func (processLiveness) Alive(pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	err := unix.Kill(pid, 0)
	switch {
	case err == nil:
		return true, nil
	case stderrors.Is(err, unix.EPERM):
		// exists but belongs to another user
		return true, nil
	case stderrors.Is(err, unix.ESRCH):
		return false, nil
	default:
		return false, err
	}
}
