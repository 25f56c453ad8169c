// Package coordinator runs mutating heimdal commands under the state lock.
//
// Every mutating command follows the same sequence: take the lock, load the
// local state, compare it with the remote copy, stop on conflicts that need
// a decision, run the command, save the new state and release the lock.
// Coordinator owns that sequence so commands only supply the work in the
// middle.
package coordinator
