// Package output renders command results.
//
// Text output is a two-phase pipeline: a Go template from templates/ turns
// the result into markup such as "[error]held[/error]", then the markup is
// expanded with the lipgloss styles of pkg/style, or stripped when colors are
// off. The json, yaml and toml formats encode the result value directly and
// never go through templates.
package output
