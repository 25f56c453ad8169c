package heimdal

import (
	"context"
	"embed"
	stderrors "errors"
	"io"
	"io/fs"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/limistah/heimdal/internal/cli"
	"github.com/limistah/heimdal/internal/version"
	statecli "github.com/limistah/heimdal/cmd/heimdal/commands/state"
	"github.com/limistah/heimdal/pkg/cobrax/topics"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/logging"
	"github.com/limistah/heimdal/pkg/output"
)

//go:embed topics/*.md
var topicsFS embed.FS

// NewRootCmd creates and returns the root command. Options replace the
// environment or the confirmation prompt.
func NewRootCmd(opts ...cli.Option) *cobra.Command {
	return newRootCmd(cli.New(opts...))
}

func newRootCmd(rt *cli.Runtime) *cobra.Command {
	// Initialize custom template formatting functions
	initTemplateFormatting()

	rootCmd := &cobra.Command{
		Use:     "heimdal",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(rt.Flags.Verbosity)
			log.Debug().Str("command", cmd.CommandPath()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errors.New(errors.ErrInvalidInput, MsgErrNoCommand)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		DisableAutoGenTag: true,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&rt.Flags.Verbosity, "verbose", "v", MsgFlagVerbose)
	flags.StringVar(&rt.Flags.ConfigFile, "config", "", MsgFlagConfig)
	flags.StringVar(&rt.Flags.Dotfiles, "dotfiles", "", MsgFlagDotfiles)
	flags.StringVarP(&rt.Flags.Output, "output", "o", "text", MsgFlagOutput)
	flags.BoolVar(&rt.Flags.NoColor, "no-color", false, MsgFlagNoColor)
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml", "toml"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Disable automatic help command (replaced by the topics one below)
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "COMMANDS:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "misc",
		Title: "MISC:",
	})

	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(newInitCmd(rt))
	rootCmd.AddCommand(newSyncCmd(rt))
	rootCmd.AddCommand(statecli.NewCommand(rt))
	rootCmd.AddCommand(newVersionCmd(rt))
	rootCmd.AddCommand(newCompletionCmd())

	helpTopics, err := fs.Sub(topicsFS, "topics")
	if err == nil {
		_, err = topics.InitializeWithOptions(rootCmd, helpTopics, topics.Options{
			Extensions: []string{".md"},
			Renderer:   topics.NewGlamourRenderer(!stdoutStyled()),
		})
	}
	if err != nil {
		log.Debug().Err(err).Msg("Help topics unavailable")
	}

	return rootCmd
}

// Run executes heimdal with args and returns the process exit status.
// Errors are written in the --output format: text goes to stderr, the
// structured formats to stdout so scripts can parse them.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...cli.Option) int {
	rt := cli.New(opts...)
	rootCmd := newRootCmd(rt)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return errors.ExitOK
	}

	var exit *cli.ExitError
	if stderrors.As(err, &exit) {
		return exit.Code
	}

	format, ferr := output.ParseFormat(rt.Flags.Output)
	if ferr != nil {
		format = output.FormatText
	}
	w := stderr
	if format.Structured() {
		w = stdout
	}
	renderer, rerr := output.NewRenderer(w, format, rt.Flags.NoColor)
	if rerr == nil {
		rerr = renderer.RenderError(err)
	}
	if rerr != nil {
		log.Error().Err(rerr).Msg("Failed to render error")
		_, _ = io.WriteString(stderr, "Error: "+err.Error()+"\n")
	}
	return errors.ExitCode(err)
}
