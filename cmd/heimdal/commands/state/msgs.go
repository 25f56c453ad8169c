package state

import (
	_ "embed"
	"strings"
)

// Message constants
const (
	MsgShort               = "Inspect and repair heimdal state"
	MsgVersionShort        = "Show state schema, lineage and tool compatibility"
	MsgHistoryShort        = "Show recent operations recorded in the state"
	MsgLockInfoShort       = "Show who holds the state lock"
	MsgUnlockShort         = "Remove a stale or abandoned lock"
	MsgCheckConflictsShort = "Compare local and remote state"
	MsgResolveShort        = "Settle a conflict with the remote state"
	MsgCheckDriftShort     = "Compare tracked files with their recorded checksums"
	MsgMigrateShort        = "Rewrite a legacy state file in the current schema"

	MsgFlagLimit     = "Number of entries to show (0 shows all)"
	MsgFlagForce     = "Remove the lock without asking"
	MsgFlagUseLocal  = "Keep the local state"
	MsgFlagUseRemote = "Replace the local state with the remote one"
	MsgFlagMerge     = "Merge both states"
	MsgFlagManual    = "Only show the differences"
	MsgFlagStrategy  = "Strategy by name (local, remote, merge, manual)"
	MsgFlagYes       = "Apply the resolution without asking"
	MsgFlagAll       = "Also list files that match"
	MsgFlagNoBackup  = "Do not keep a copy of the legacy file"

	MsgErrOneStrategy = "choose only one strategy"
	MsgConflictsFound = "conflicts with the remote state"
)

// Embedded message files
var (
	//go:embed state-long.txt
	msgLongRaw string
	MsgLong    = strings.TrimSpace(msgLongRaw)

	//go:embed unlock-long.txt
	msgUnlockLongRaw string
	MsgUnlockLong    = strings.TrimSpace(msgUnlockLongRaw)

	//go:embed resolve-long.txt
	msgResolveLongRaw string
	MsgResolveLong    = strings.TrimSpace(msgResolveLongRaw)

	//go:embed resolve-example.txt
	msgResolveExampleRaw string
	MsgResolveExample    = strings.TrimSpace(msgResolveExampleRaw)

	//go:embed check-drift-long.txt
	msgCheckDriftLongRaw string
	MsgCheckDriftLong    = strings.TrimSpace(msgCheckDriftLongRaw)
)
