// Package cli holds what every heimdal command shares: the global flags,
// building the command environment, picking an output renderer and asking
// for confirmation on a terminal.
package cli
