// Package conflict compares the local state snapshot with the copy pushed by
// other machines and resolves the differences.
//
// Detect is pure: it never touches the filesystem and returns the same
// Report for the same inputs. Conflicts are listed in a fixed order with a
// severity each; a report without High entries may be merged automatically,
// anything else needs an explicit Strategy.
//
// Merge follows a per-field policy table, MergePolicies, so every field's
// rule can be listed and tested on its own.
package conflict
