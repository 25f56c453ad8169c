package config

import (
	"time"

	"github.com/limistah/heimdal/pkg/errors"
)

// Lock types accepted in configuration.
const (
	LockLocal    = "local"
	LockHybrid   = "hybrid"
	LockDisabled = "disabled"
)

// Config is the fully merged heimdal configuration.
type Config struct {
	DotfilesPath string       `koanf:"dotfiles_path"`
	Lock         LockConfig   `koanf:"lock"`
	Remote       RemoteConfig `koanf:"remote"`
	State        StateConfig  `koanf:"state"`
}

// LockConfig controls the lock manager.
type LockConfig struct {
	Type              string        `koanf:"type"`
	Timeout           time.Duration `koanf:"timeout"`
	DetectStale       bool          `koanf:"detect_stale"`
	ParticipantWindow time.Duration `koanf:"participant_window"`
	MaxRetries        int           `koanf:"max_retries"`
	RetryInitialDelay time.Duration `koanf:"retry_initial_delay"`
	RetryMaxDelay     time.Duration `koanf:"retry_max_delay"`
}

// RemoteConfig describes the Git remote the dotfiles repo syncs with.
type RemoteConfig struct {
	Name         string        `koanf:"name"`
	Branch       string        `koanf:"branch"`
	StateFile    string        `koanf:"state_file"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	AuthorName   string        `koanf:"author_name"`
	AuthorEmail  string        `koanf:"author_email"`
}

// StateConfig holds state store settings.
type StateConfig struct {
	// BackupDir defaults to <heimdal home>/backups when empty.
	BackupDir string `koanf:"backup_dir"`
}

// Validate rejects configurations the rest of heimdal cannot act on.
func (c *Config) Validate() error {
	switch c.Lock.Type {
	case LockLocal, LockHybrid, LockDisabled:
	default:
		return errors.Newf(errors.ErrConfigValid, "unknown lock type %q", c.Lock.Type).
			WithDetail("key", "lock.type")
	}

	durations := map[string]time.Duration{
		"lock.timeout":             c.Lock.Timeout,
		"lock.participant_window":  c.Lock.ParticipantWindow,
		"lock.retry_initial_delay": c.Lock.RetryInitialDelay,
		"lock.retry_max_delay":     c.Lock.RetryMaxDelay,
		"remote.fetch_timeout":     c.Remote.FetchTimeout,
	}
	for key, d := range durations {
		if d < 0 {
			return errors.Newf(errors.ErrConfigValid, "%s must not be negative", key).
				WithDetail("key", key)
		}
	}

	if c.Lock.MaxRetries < 0 {
		return errors.New(errors.ErrConfigValid, "lock.max_retries must not be negative").
			WithDetail("key", "lock.max_retries")
	}
	if c.Remote.StateFile == "" {
		return errors.New(errors.ErrConfigValid, "remote.state_file must not be empty").
			WithDetail("key", "remote.state_file")
	}
	return nil
}
