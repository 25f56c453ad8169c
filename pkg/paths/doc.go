// Package paths provides centralized path handling for heimdal.
//
// Every component receives an explicit Paths value instead of consulting a
// global location, so tests can point the whole system at a temp directory.
//
// # Environment Variables
//
//   - HEIMDAL_HOME: heimdal's private directory (default: ~/.heimdal)
//   - HEIMDAL_DOTFILES: dotfiles repository (default: ~/.dotfiles)
//   - HEIMDAL_CONFIG: config file (default: $XDG_CONFIG_HOME/heimdal/config.toml)
//
// # Layout
//
// The state file and its lock live inside the dotfiles repository so that
// they travel with it through Git:
//
//	<dotfiles>/heimdal.state.json
//	<dotfiles>/heimdal.state.lock
//
// Backups written by migrations go to <heimdal home>/backups unless a
// different directory is configured.
package paths
