// Package config resolves the environment the vault runs in: the master
// secret and the data directory holding the store, session and audit files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// ErrMissingSecret is returned when no master secret is configured. The same
// value authenticates the user and feeds key derivation, so nothing works
// without it.
var ErrMissingSecret = errors.New("config: AUTH_SECRET is not set")

type Config struct {
	AuthSecret string `env:"AUTH_SECRET"`
	DataDir    string `env:"PASSWORD_HOME"`
}

func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if err := c.setDefaults(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) setDefaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("config: resolve home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, ".password")
	}
	return nil
}

// MasterSecret returns the configured secret or ErrMissingSecret.
func (c Config) MasterSecret() ([]byte, error) {
	if c.AuthSecret == "" {
		return nil, ErrMissingSecret
	}
	return []byte(c.AuthSecret), nil
}

func (c Config) DBPath() string      { return filepath.Join(c.DataDir, "vault.db") }
func (c Config) SessionPath() string { return filepath.Join(c.DataDir, "session") }
func (c Config) AuditPath() string   { return filepath.Join(c.DataDir, "audit.log") }

func (c Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}
