// Package statecmd implements the "heimdal state" subcommands. Each function
// returns a result struct for the display layer; none of them prints.
package statecmd
