// Package remote talks to the Git repository that carries the dotfiles and
// the shared copy of the state file.
//
// heimdal never writes the remote state file directly. It reads the copy on
// the remote-tracking branch after a fetch, and publishes its own copy by
// committing the local file and pushing. Every call is fallible and network
// bound; errors are classified as REMOTE_UNREACHABLE (the network or host
// could not be reached, callers degrade gracefully) or REMOTE_FAILED
// (anything else).
package remote
