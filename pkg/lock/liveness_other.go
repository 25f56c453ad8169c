//go:build !unix

package lock

type processLiveness struct{}

// ProcessLiveness has no probe on this platform.
func ProcessLiveness() Liveness { return processLiveness{} }

func (processLiveness) Alive(int) (bool, error) {
	return false, ErrLivenessUnsupported
}
