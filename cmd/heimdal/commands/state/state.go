package state

import (
	"github.com/spf13/cobra"

	"github.com/limistah/heimdal/internal/cli"
	"github.com/limistah/heimdal/pkg/commands/statecmd"
	"github.com/limistah/heimdal/pkg/conflict"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/logging"
)

// NewCommand creates the state command tree.
func NewCommand(rt *cli.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "state",
		Short:   MsgShort,
		Long:    MsgLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
	}

	cmd.AddCommand(
		newVersionCmd(rt),
		newHistoryCmd(rt),
		newLockInfoCmd(rt),
		newUnlockCmd(rt),
		newCheckConflictsCmd(rt),
		newResolveCmd(rt),
		newCheckDriftCmd(rt),
		newMigrateCmd(rt),
	)
	return cmd
}

func newVersionCmd(rt *cli.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: MsgVersionShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rt.Env()
			if err != nil {
				return err
			}
			result, err := statecmd.Version(e)
			if err != nil {
				return err
			}
			return rt.Render(cmd, "version", result)
		},
	}
}

func newHistoryCmd(rt *cli.Runtime) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: MsgHistoryShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rt.Env()
			if err != nil {
				return err
			}
			result, err := statecmd.History(e, limit)
			if err != nil {
				return err
			}
			return rt.Render(cmd, "history", result)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", statecmd.DefaultHistoryLimit, MsgFlagLimit)
	return cmd
}

func newLockInfoCmd(rt *cli.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "lock-info",
		Short: MsgLockInfoShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rt.Env()
			if err != nil {
				return err
			}
			result, err := statecmd.LockInfo(e)
			if err != nil {
				return err
			}
			return rt.Render(cmd, "lock-info", result)
		},
	}
}

func newUnlockCmd(rt *cli.Runtime) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: MsgUnlockShort,
		Long:  MsgUnlockLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rt.Env()
			if err != nil {
				return err
			}
			opts := statecmd.UnlockOptions{Force: force}
			if !force {
				opts.Confirm = rt.Confirm(cmd)
			}
			result, err := statecmd.Unlock(cmd.Context(), e, opts)
			if err != nil {
				return err
			}
			return rt.Render(cmd, "unlock", result)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, MsgFlagForce)
	return cmd
}

func newCheckConflictsCmd(rt *cli.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "check-conflicts",
		Short: MsgCheckConflictsShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rt.Env()
			if err != nil {
				return err
			}
			check, err := statecmd.CheckConflicts(cmd.Context(), e)
			if err != nil {
				return err
			}
			if err := rt.Render(cmd, "check-conflicts", check); err != nil {
				return err
			}
			if check.Report.HasConflicts() {
				return &cli.ExitError{Code: errors.ExitConflict, Reason: MsgConflictsFound}
			}
			return nil
		},
	}
}

func newResolveCmd(rt *cli.Runtime) *cobra.Command {
	var (
		useLocal, useRemote, merge, manual bool
		named                              string
		yes                                bool
	)
	cmd := &cobra.Command{
		Use:     "resolve",
		Short:   MsgResolveShort,
		Long:    MsgResolveLong,
		Example: MsgResolveExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := pickStrategy(named, map[conflict.Strategy]bool{
				conflict.UseLocal:  useLocal,
				conflict.UseRemote: useRemote,
				conflict.Merged:    merge,
				conflict.Manual:    manual,
			})
			if err != nil {
				return err
			}

			e, err := rt.Env()
			if err != nil {
				return err
			}
			opts := statecmd.ResolveOptions{Strategy: strategy, Yes: yes}
			if !yes {
				opts.Confirm = rt.Confirm(cmd)
			}
			result, err := statecmd.Resolve(cmd.Context(), e, opts)
			if err != nil {
				return err
			}
			return rt.Render(cmd, "resolve", result)
		},
	}
	cmd.Flags().BoolVar(&useLocal, "use-local", false, MsgFlagUseLocal)
	cmd.Flags().BoolVar(&useRemote, "use-remote", false, MsgFlagUseRemote)
	cmd.Flags().BoolVar(&merge, "merge", false, MsgFlagMerge)
	cmd.Flags().BoolVar(&manual, "manual", false, MsgFlagManual)
	cmd.Flags().StringVarP(&named, "strategy", "s", "", MsgFlagStrategy)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, MsgFlagYes)
	cmd.MarkFlagsMutuallyExclusive("use-local", "use-remote", "merge", "manual", "strategy")
	_ = cmd.RegisterFlagCompletionFunc("strategy", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"local", "remote", "merge", "manual"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

// pickStrategy returns the single strategy chosen on the command line. An
// empty result is left for statecmd.Resolve to reject.
func pickStrategy(named string, flags map[conflict.Strategy]bool) (conflict.Strategy, error) {
	var chosen conflict.Strategy
	if named != "" {
		s, err := statecmd.StrategyAlias(named)
		if err != nil {
			return "", err
		}
		chosen = s
	}
	for _, s := range conflict.Strategies() {
		if !flags[s] {
			continue
		}
		if chosen != "" && chosen != s {
			return "", errors.New(errors.ErrInvalidInput, MsgErrOneStrategy)
		}
		chosen = s
	}
	logging.GetLogger("cmd.state").Debug().Str("strategy", string(chosen)).Msg("Strategy selected")
	return chosen, nil
}

func newCheckDriftCmd(rt *cli.Runtime) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "check-drift",
		Short: MsgCheckDriftShort,
		Long:  MsgCheckDriftLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rt.Env()
			if err != nil {
				return err
			}
			result, err := statecmd.CheckDrift(e, all)
			if err != nil {
				return err
			}
			return rt.Render(cmd, "check-drift", result)
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, MsgFlagAll)
	return cmd
}

func newMigrateCmd(rt *cli.Runtime) *cobra.Command {
	var noBackup bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: MsgMigrateShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rt.Env()
			if err != nil {
				return err
			}
			result, err := statecmd.Migrate(cmd.Context(), e, noBackup)
			if err != nil {
				return err
			}
			return rt.Render(cmd, "migrate", result)
		},
	}
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, MsgFlagNoBackup)
	return cmd
}
