package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/limistah/heimdal/pkg/commands/env"
	"github.com/limistah/heimdal/pkg/commands/statecmd"
	"github.com/limistah/heimdal/pkg/logging"
	"github.com/limistah/heimdal/pkg/output"
)

// Flags are the persistent flags of the root command.
type Flags struct {
	Verbosity  int
	ConfigFile string
	Dotfiles   string
	Output     string
	NoColor    bool
}

// EnvFactory builds the environment a command runs in.
type EnvFactory func(flags Flags) (*env.Env, error)

// Option customizes a Runtime.
type Option func(*Runtime)

// WithEnv replaces how the environment is built.
func WithEnv(f EnvFactory) Option {
	return func(r *Runtime) { r.newEnv = f }
}

// WithConfirm answers confirmation prompts with fn instead of the terminal.
func WithConfirm(fn statecmd.Confirm) Option {
	return func(r *Runtime) { r.confirm = fn }
}

// WithStdin sets where terminal answers are read from.
func WithStdin(in io.Reader) Option {
	return func(r *Runtime) { r.stdin = in }
}

// Runtime is shared by all commands of one process.
type Runtime struct {
	Flags Flags

	newEnv  EnvFactory
	confirm statecmd.Confirm
	stdin   io.Reader
	env     *env.Env
}

// New creates a runtime that builds real environments unless told otherwise.
func New(opts ...Option) *Runtime {
	r := &Runtime{newEnv: defaultEnv, stdin: os.Stdin}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultEnv(flags Flags) (*env.Env, error) {
	return env.New(env.Options{
		DotfilesPath: flags.Dotfiles,
		ConfigFile:   flags.ConfigFile,
	})
}

// Env builds the environment once per process.
func (r *Runtime) Env() (*env.Env, error) {
	if r.env != nil {
		return r.env, nil
	}
	e, err := r.newEnv(r.Flags)
	if err != nil {
		return nil, err
	}
	r.env = e
	return e, nil
}

// Renderer writes to the command's output in the --output format.
func (r *Runtime) Renderer(cmd *cobra.Command) (*output.Renderer, error) {
	format, err := output.ParseFormat(r.Flags.Output)
	if err != nil {
		return nil, err
	}
	return output.NewRenderer(cmd.OutOrStdout(), format, r.Flags.NoColor)
}

// Render is Renderer followed by Render.
func (r *Runtime) Render(cmd *cobra.Command, template string, data interface{}) error {
	out, err := r.Renderer(cmd)
	if err != nil {
		return err
	}
	return out.Render(template, data)
}

// Confirm returns the prompt used before destructive steps. It is nil when
// nobody can answer, which makes those steps refuse instead of guessing.
func (r *Runtime) Confirm(cmd *cobra.Command) statecmd.Confirm {
	if r.confirm != nil {
		return r.confirm
	}
	f, ok := r.stdin.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		logging.GetLogger("cli").Debug().Msg("stdin is not a terminal; confirmation unavailable")
		return nil
	}
	return Prompt(r.stdin, cmd.ErrOrStderr())
}
