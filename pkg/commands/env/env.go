// Package env assembles the components a heimdal command works with from
// configuration: paths, machine identity, state store, lock manager, Git
// remote and coordinator.
package env

import (
	"time"

	"github.com/limistah/heimdal/internal/version"
	"github.com/limistah/heimdal/pkg/config"
	"github.com/limistah/heimdal/pkg/coordinator"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/lock"
	"github.com/limistah/heimdal/pkg/logging"
	"github.com/limistah/heimdal/pkg/machine"
	"github.com/limistah/heimdal/pkg/paths"
	"github.com/limistah/heimdal/pkg/remote"
	"github.com/limistah/heimdal/pkg/state"
)

// Options controls how New builds an Env. Zero values use the real system.
type Options struct {
	// DotfilesPath overrides the configured dotfiles directory.
	DotfilesPath string
	// ConfigFile overrides the user config location.
	ConfigFile string
	Overrides  map[string]interface{}

	// Config skips loading when set.
	Config *config.Config
	// HomeDir overrides heimdal's private directory.
	HomeDir string

	Machine  machine.Provider
	Liveness lock.Liveness
	Clock    func() time.Time
	// Remote replaces the Git remote opened from the dotfiles directory.
	Remote      remote.Remote
	ToolVersion string
}

// Env is everything a command needs.
type Env struct {
	Config      *config.Config
	Paths       paths.Paths
	Machine     machine.Info
	Store       *state.Store
	Locks       *lock.Manager
	Remote      remote.Remote
	Coordinator *coordinator.Coordinator
	ToolVersion string
	Clock       func() time.Time
}

// New loads configuration and wires the components.
func New(opts Options) (*Env, error) {
	logger := logging.GetLogger("env")

	cfg := opts.Config
	if cfg == nil {
		configFile := opts.ConfigFile
		if configFile == "" {
			configFile = paths.ConfigFilePath()
		}
		var err error
		if cfg, err = config.Load(config.LoadOptions{ConfigFile: configFile, Overrides: opts.Overrides}); err != nil {
			return nil, err
		}
	}

	dotfiles := opts.DotfilesPath
	if dotfiles == "" {
		dotfiles = cfg.DotfilesPath
	}
	p, err := paths.New(dotfiles,
		paths.WithHomeDir(opts.HomeDir),
		paths.WithStateFileName(cfg.Remote.StateFile),
		paths.WithBackupDir(cfg.State.BackupDir),
	)
	if err != nil {
		return nil, err
	}

	provider := opts.Machine
	if provider == nil {
		provider = machine.Current
	}
	m, err := provider()
	if err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	toolVersion := opts.ToolVersion
	if toolVersion == "" {
		toolVersion = version.Version
	}

	rem := opts.Remote
	var head state.HeadReader
	if rem == nil {
		g, err := remote.OpenGit(remote.GitOptions{
			Dir:         p.DotfilesDir(),
			RemoteName:  cfg.Remote.Name,
			Branch:      cfg.Remote.Branch,
			StateFile:   p.StateFilePath(),
			AuthorName:  cfg.Remote.AuthorName,
			AuthorEmail: cfg.Remote.AuthorEmail,
			Clock:       clock,
		})
		switch {
		case err == nil:
			rem, head = g, g
		case errors.IsErrorCode(err, errors.ErrNotFound):
			logger.Debug().Err(err).Msg("No git remote; running without remote coordination")
		default:
			return nil, err
		}
	} else {
		head = rem
	}

	store := state.NewStore(state.StoreOptions{
		Paths:       p,
		Machine:     m,
		ToolVersion: toolVersion,
		Clock:       clock,
		Head:        head,
	})

	lockCfg, err := LockConfig(cfg)
	if err != nil {
		return nil, err
	}
	if lockCfg.Type == lock.TypeHybrid && rem == nil {
		logger.Debug().Msg("Hybrid locking without a remote; using a local lock")
		lockCfg.Type = lock.TypeLocal
	}

	lockOpts := lock.Options{
		Config:         lockCfg,
		Path:           p.LockFilePath(),
		Machine:        m,
		Liveness:       opts.Liveness,
		Serials:        store,
		Activity:       store,
		RemoteActivity: state.ActivityIn,
		Clock:          clock,
	}
	if rem != nil {
		lockOpts.Remote = rem
	}
	locks := lock.NewManager(lockOpts)

	coord := coordinator.New(coordinator.Options{
		Store:        store,
		Locks:        locks,
		Remote:       rem,
		FetchTimeout: cfg.Remote.FetchTimeout,
	})

	logger.Debug().
		Str("dotfiles", p.DotfilesDir()).
		Str("machine", m.ID).
		Str("lock_type", string(lockCfg.Type)).
		Bool("remote", rem != nil).
		Msg("Environment ready")

	return &Env{
		Config:      cfg,
		Paths:       p,
		Machine:     m,
		Store:       store,
		Locks:       locks,
		Remote:      rem,
		Coordinator: coord,
		ToolVersion: toolVersion,
		Clock:       clock,
	}, nil
}

// LockConfig converts the lock section of cfg.
func LockConfig(cfg *config.Config) (lock.Config, error) {
	typ, err := lock.ParseType(cfg.Lock.Type)
	if err != nil {
		return lock.Config{}, err
	}
	return lock.Config{
		Type:              typ,
		Timeout:           cfg.Lock.Timeout,
		DetectStale:       cfg.Lock.DetectStale,
		ParticipantWindow: cfg.Lock.ParticipantWindow,
		MaxRetries:        cfg.Lock.MaxRetries,
		RetryInitialDelay: cfg.Lock.RetryInitialDelay,
		RetryMaxDelay:     cfg.Lock.RetryMaxDelay,
		RemoteTimeout:     cfg.Remote.FetchTimeout,
	}, nil
}
