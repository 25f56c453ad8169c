package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/logging"
)

// Environment variable names
const (
	EnvHeimdalHome = "HEIMDAL_HOME"
	EnvDotfiles    = "HEIMDAL_DOTFILES"
	EnvConfigFile  = "HEIMDAL_CONFIG"
	EnvHome        = "HOME"
)

// Fixed names. These are shared by every machine operating on the same
// dotfiles repository and are not user-configurable, with the exception of
// the state file name which the remote config may override.
const (
	HomeDirName        = ".heimdal"
	DefaultDotfilesDir = ".dotfiles"
	AppDirName         = "heimdal"
	StateFileName      = "heimdal.state.json"
	LockFileName       = "heimdal.state.lock"
	BackupDirName      = "backups"
	ConfigFileName     = "config.toml"
)

// Paths resolves every filesystem location heimdal touches.
type Paths interface {
	HomeDir() string
	DotfilesDir() string
	StateFilePath() string
	LockFilePath() string
	BackupDir() string
	ConfigFilePath() string
	LogFilePath() string
	Resolve(tracked string) string
	Relative(path string) string
}

// Option customises a Paths value.
type Option func(*paths)

// WithHomeDir overrides heimdal's private directory.
func WithHomeDir(dir string) Option {
	return func(p *paths) {
		if dir != "" {
			p.home = ExpandHome(dir)
		}
	}
}

// WithStateFileName overrides the state file name inside the dotfiles dir.
func WithStateFileName(name string) Option {
	return func(p *paths) {
		if name != "" {
			p.stateFile = name
		}
	}
}

// WithBackupDir overrides the migration backup directory.
func WithBackupDir(dir string) Option {
	return func(p *paths) {
		if dir != "" {
			p.backupDir = ExpandHome(dir)
		}
	}
}

type paths struct {
	home      string
	dotfiles  string
	stateFile string
	backupDir string
}

// New creates a Paths value rooted at dotfilesRoot. An empty root falls back
// to HEIMDAL_DOTFILES and then ~/.dotfiles.
func New(dotfilesRoot string, opts ...Option) (Paths, error) {
	if dotfilesRoot == "" {
		dotfilesRoot = os.Getenv(EnvDotfiles)
	}
	if dotfilesRoot == "" {
		dotfilesRoot = filepath.Join("~", DefaultDotfilesDir)
	}

	abs, err := filepath.Abs(ExpandHome(dotfilesRoot))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path for dotfiles dir %s", dotfilesRoot)
	}

	p := &paths{
		dotfiles:  abs,
		stateFile: StateFileName,
	}

	if env := os.Getenv(EnvHeimdalHome); env != "" {
		p.home = ExpandHome(env)
	} else {
		p.home = ExpandHome(filepath.Join("~", HomeDirName))
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *paths) HomeDir() string     { return p.home }
func (p *paths) DotfilesDir() string { return p.dotfiles }

func (p *paths) StateFilePath() string {
	return filepath.Join(p.dotfiles, p.stateFile)
}

func (p *paths) LockFilePath() string {
	return filepath.Join(p.dotfiles, LockFileName)
}

func (p *paths) BackupDir() string {
	if p.backupDir != "" {
		return p.backupDir
	}
	return filepath.Join(p.home, BackupDirName)
}

// ConfigFilePath honours HEIMDAL_CONFIG, then the XDG config home.
func (p *paths) ConfigFilePath() string {
	return ConfigFilePath()
}

func (p *paths) LogFilePath() string {
	return logging.LogFilePath()
}

// Resolve maps a tracked checksum key to a filesystem path. Absolute keys are
// used as-is, "~/" expands to the user home, and anything else is relative
// to the dotfiles dir.
func (p *paths) Resolve(tracked string) string {
	if tracked == "" {
		return ""
	}
	expanded := ExpandHome(tracked)
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded)
	}
	return filepath.Join(p.dotfiles, expanded)
}

// Relative returns path relative to the dotfiles dir when it lies inside it,
// otherwise the cleaned absolute path.
func (p *paths) Relative(path string) string {
	abs := p.Resolve(path)
	rel, err := filepath.Rel(p.dotfiles, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return filepath.ToSlash(rel)
}

// ConfigFilePath is the user config location without needing a Paths value.
// The config layer loads before the dotfiles dir is known.
func ConfigFilePath() string {
	if env := os.Getenv(EnvConfigFile); env != "" {
		return ExpandHome(env)
	}
	return filepath.Join(xdg.ConfigHome, AppDirName, ConfigFileName)
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv(EnvHome)
		if homeDir == "" {
			return path
		}
	}

	if len(path) == 1 {
		return homeDir
	}
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:])
	}
	// ~otheruser is left alone
	return path
}
