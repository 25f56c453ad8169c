// pkg/config/config_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: temp dirs, environment
// PURPOSE: Verify layered loading (defaults, file, env, overrides) and validation

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/limistah/heimdal/pkg/config"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "~/.dotfiles", cfg.DotfilesPath)
	assert.Equal(t, config.LockHybrid, cfg.Lock.Type)
	assert.Equal(t, 300*time.Second, cfg.Lock.Timeout)
	assert.True(t, cfg.Lock.DetectStale)
	assert.Equal(t, 24*time.Hour, cfg.Lock.ParticipantWindow)
	assert.Equal(t, 3, cfg.Lock.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Lock.RetryInitialDelay)
	assert.Equal(t, 4*time.Second, cfg.Lock.RetryMaxDelay)
	assert.Equal(t, "origin", cfg.Remote.Name)
	assert.Equal(t, "main", cfg.Remote.Branch)
	assert.Equal(t, "heimdal.state.json", cfg.Remote.StateFile)
	assert.Equal(t, 15*time.Second, cfg.Remote.FetchTimeout)
	assert.Empty(t, cfg.State.BackupDir)
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
dotfiles_path = "/srv/dots"

[lock]
type = "local"
timeout = "10m"

[remote]
branch = "trunk"
`), 0644))

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
		require.NoError(t, err)

		assert.Equal(t, "/srv/dots", cfg.DotfilesPath)
		assert.Equal(t, config.LockLocal, cfg.Lock.Type)
		assert.Equal(t, 10*time.Minute, cfg.Lock.Timeout)
		assert.Equal(t, "trunk", cfg.Remote.Branch)
		// untouched keys keep their defaults
		assert.Equal(t, 3, cfg.Lock.MaxRetries)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("HEIMDAL_LOCK__TYPE", "disabled")
		t.Setenv("HEIMDAL_LOCK__MAX_RETRIES", "7")
		t.Setenv("HEIMDAL_HOME", "/not/a/config/key")

		cfg, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
		require.NoError(t, err)

		assert.Equal(t, config.LockDisabled, cfg.Lock.Type)
		assert.Equal(t, 7, cfg.Lock.MaxRetries)
		assert.Equal(t, "/srv/dots", cfg.DotfilesPath)
	})

	t.Run("overrides win", func(t *testing.T) {
		t.Setenv("HEIMDAL_LOCK__TYPE", "disabled")

		cfg, err := config.Load(config.LoadOptions{
			ConfigFile: cfgFile,
			Overrides:  map[string]interface{}{"lock.type": "hybrid", "dotfiles_path": "/x"},
		})
		require.NoError(t, err)

		assert.Equal(t, config.LockHybrid, cfg.Lock.Type)
		assert.Equal(t, "/x", cfg.DotfilesPath)
	})

	t.Run("missing file is fine", func(t *testing.T) {
		cfg, err := config.Load(config.LoadOptions{ConfigFile: filepath.Join(dir, "nope.toml")})
		require.NoError(t, err)
		assert.Equal(t, config.LockHybrid, cfg.Lock.Type)
	})
}

func TestLoadInvalidFile(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("[lock\ntype="), 0644))

	_, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantKey string
	}{
		{"defaults are valid", func(c *config.Config) {}, ""},
		{"unknown lock type", func(c *config.Config) { c.Lock.Type = "global" }, "lock.type"},
		{"negative timeout", func(c *config.Config) { c.Lock.Timeout = -time.Second }, "lock.timeout"},
		{"negative retries", func(c *config.Config) { c.Lock.MaxRetries = -1 }, "lock.max_retries"},
		{"negative fetch timeout", func(c *config.Config) { c.Remote.FetchTimeout = -1 }, "remote.fetch_timeout"},
		{"empty state file", func(c *config.Config) { c.Remote.StateFile = "" }, "remote.state_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantKey == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
			assert.Equal(t, tt.wantKey, errors.GetErrorDetails(err)["key"])
		})
	}
}

func TestDefaultsContent(t *testing.T) {
	assert.Contains(t, config.DefaultsContent(), `type = "hybrid"`)
}
