package heimdal

import (
	"github.com/spf13/cobra"

	"github.com/limistah/heimdal/internal/cli"
	"github.com/limistah/heimdal/pkg/commands/statesync"
)

func newSyncCmd(rt *cli.Runtime) *cobra.Command {
	var opts statesync.Options
	cmd := &cobra.Command{
		Use:     "sync",
		Short:   MsgSyncShort,
		Long:    MsgSyncLong,
		Example: MsgSyncExample,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rt.Env()
			if err != nil {
				return err
			}
			outcome, err := statesync.Sync(cmd.Context(), e, opts)
			if err != nil {
				return err
			}
			return rt.Render(cmd, "sync", outcome)
		},
	}
	cmd.Flags().BoolVar(&opts.NoPull, "no-pull", false, MsgFlagNoPull)
	cmd.Flags().BoolVar(&opts.NoPush, "no-push", false, MsgFlagNoPush)
	return cmd
}
