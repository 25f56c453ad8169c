package heimdal

import (
	"github.com/spf13/cobra"

	"github.com/limistah/heimdal/internal/cli"
	"github.com/limistah/heimdal/pkg/commands/initialize"
)

func newInitCmd(rt *cli.Runtime) *cobra.Command {
	var opts initialize.Options
	cmd := &cobra.Command{
		Use:     "init",
		Short:   MsgInitShort,
		Long:    MsgInitLong,
		Example: MsgInitExample,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rt.Env()
			if err != nil {
				return err
			}
			result, err := initialize.Init(cmd.Context(), e, opts)
			if err != nil {
				return err
			}
			return rt.Render(cmd, "init", result)
		},
	}
	cmd.Flags().StringVarP(&opts.Profile, "profile", "p", initialize.DefaultProfile, MsgFlagProfile)
	cmd.Flags().StringVar(&opts.RepoURL, "repo", "", MsgFlagRepo)
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, MsgFlagForce)
	return cmd
}
