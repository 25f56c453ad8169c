package heimdal

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Coordinate dotfiles state across machines"
	MsgInitShort       = "Create the state file for a dotfiles repository"
	MsgSyncShort       = "Merge remote state and publish the result"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"

	// Flag descriptions
	MsgFlagVerbose  = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig   = "Config file (default $XDG_CONFIG_HOME/heimdal/config.toml)"
	MsgFlagDotfiles = "Dotfiles repository (overrides dotfiles_path)"
	MsgFlagOutput   = "Output format: text, json, yaml or toml"
	MsgFlagNoColor  = "Disable colors"
	MsgFlagProfile  = "Active profile recorded in the new state"
	MsgFlagRepo     = "Repository URL (default: the git remote)"
	MsgFlagForce    = "Replace an existing state file"
	MsgFlagNoPull   = "Do not pull the dotfiles repository first"
	MsgFlagNoPush   = "Keep the result local"

	// Error messages
	MsgErrNoCommand = "no command specified"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/init-long.txt
	msgInitLongRaw string
	MsgInitLong    = strings.TrimSpace(msgInitLongRaw)

	//go:embed msgs/init-example.txt
	msgInitExampleRaw string
	MsgInitExample    = strings.TrimSpace(msgInitExampleRaw)

	//go:embed msgs/sync-long.txt
	msgSyncLongRaw string
	MsgSyncLong    = strings.TrimSpace(msgSyncLongRaw)

	//go:embed msgs/sync-example.txt
	msgSyncExampleRaw string
	MsgSyncExample    = strings.TrimSpace(msgSyncExampleRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)
)
