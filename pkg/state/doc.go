// Package state owns heimdal's persisted state snapshot.
//
// A snapshot records which profile is active, where the dotfiles live, which
// machine last wrote it and, most importantly, its lineage: a stable id plus
// a serial that grows by exactly one on every successful save. Two machines
// that start from the same serial and both save have diverged, which the
// conflict package detects by comparing serial and parent serial.
//
// Store is the only writer of the state file. Its mutating methods take a
// *lock.Guard, so a caller cannot persist state without holding the lock.
// Writes are atomic: the new content goes to a temp file in the same
// directory, is fsynced, and is renamed over the old file.
//
// Older snapshots (schema version 1, which had no lineage) are migrated in
// memory on Load and on disk by Migrate, which first copies the original
// bytes to a timestamped backup.
package state
