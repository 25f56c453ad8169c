package remote

import (
	"context"
	stderrors "errors"
	"net"
	"strings"
	"syscall"

	"github.com/limistah/heimdal/pkg/errors"
)

// Remote is the Git collaborator used by the coordinator.
type Remote interface {
	// FetchRemoteState fetches and returns the state file from the remote
	// branch. It returns nil bytes when the branch or the file does not
	// exist yet.
	FetchRemoteState(ctx context.Context) ([]byte, error)
	// Commit stages paths and commits them. Nothing to commit is not an
	// error.
	Commit(ctx context.Context, paths []string, message string) error
	Push(ctx context.Context) error
	// Pull integrates the remote branch. Only fast-forwards are performed.
	Pull(ctx context.Context, rebase bool) error
	HeadCommit() (string, error)
}

var unreachableMarkers = []string{
	"connection refused",
	"no such host",
	"i/o timeout",
	"network is unreachable",
	"no route to host",
	"connection reset",
	"remote hung up",
	"temporary failure in name resolution",
	"tls handshake timeout",
}

// IsUnreachable reports whether err means the remote could not be reached,
// as opposed to reached and refusing.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	if errors.IsErrorCode(err, errors.ErrRemoteUnreachable) {
		return true
	}
	if stderrors.Is(err, context.DeadlineExceeded) ||
		stderrors.Is(err, syscall.ECONNREFUSED) ||
		stderrors.Is(err, syscall.EHOSTUNREACH) ||
		stderrors.Is(err, syscall.ENETUNREACH) ||
		stderrors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var nerr net.Error
	if stderrors.As(err, &nerr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range unreachableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Classify turns a raw Git error into a coded heimdal error.
func Classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var hErr *errors.HeimdalError
	if stderrors.As(err, &hErr) && (hErr.Code == errors.ErrRemoteUnreachable || hErr.Code == errors.ErrRemoteFailed) {
		return err
	}

	if IsUnreachable(err) {
		return errors.Wrapf(err, errors.ErrRemoteUnreachable, "git %s: remote repository unreachable", op).
			WithDetail("op", op)
	}

	out := errors.Wrapf(err, errors.ErrRemoteFailed, "git %s failed", op).WithDetail("op", op)
	if msg := strings.ToLower(err.Error()); strings.Contains(msg, "non-fast-forward") || strings.Contains(msg, "diverged") {
		out = out.WithDetail("diverged", true)
	}
	return out
}

// IsDiverged reports whether err is a rejected non-fast-forward update.
func IsDiverged(err error) bool {
	d, _ := errors.GetErrorDetails(err)["diverged"].(bool)
	return d
}
