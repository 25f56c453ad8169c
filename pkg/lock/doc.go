// Package lock serialises state-mutating heimdal operations.
//
// A lock is a small JSON record written next to the state file. Three lock
// types exist:
//
//   - local: mutual exclusion between processes on this machine
//   - hybrid: local, plus a best-effort look at the remote state before
//     granting. When the remote cannot be reached the call degrades to local
//     and carries a RemoteUnreachable warning.
//   - disabled: nothing is written. Unsafe and opt-in only.
//
// Reading the existing record, judging staleness and writing the new record
// happen inside a flock-guarded critical section so two local processes can
// never both win. Across machines coordination is advisory: the remote check
// and the local write are not atomic with respect to another machine.
//
// A lock is stale when its owner process is gone (same machine only, via the
// Liveness seam), when it is older than the timeout, or, for hybrid locks,
// when its owning machine's last recorded activity is older than the
// participant window. An owner with no recorded activity is judged by the
// timeout alone. Stale locks are removed with a warning. A live lock makes Acquire
// retry with exponential backoff and finally fail with LOCK_HELD.
//
// Acquire returns a *Guard. The state store only writes when handed a held
// guard. WithLock wraps acquire, run and release, including release on
// panic and on SIGINT/SIGTERM.
package lock
