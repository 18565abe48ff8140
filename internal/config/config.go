// Package config resolves client settings from a profile file and the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the profile file nor the environment sets a value.
const (
	DefaultLoginTimeout   = 10 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

// Config holds everything the client needs to reach the API.
// Precedence: environment over profile file over defaults.
type Config struct {
	// APIURL is the base URL of the remote REST API. Required.
	// The overwrite option makes a set variable win over a profile value,
	// which envconfig otherwise leaves alone once it is non-zero.
	APIURL string `yaml:"api_url" env:"ADMINCTL_API_URL, overwrite"`

	// LoginTimeout bounds a single login/register attempt.
	LoginTimeout time.Duration `yaml:"login_timeout" env:"ADMINCTL_LOGIN_TIMEOUT, overwrite"`

	// RequestTimeout bounds any other authenticated request.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"ADMINCTL_REQUEST_TIMEOUT, overwrite"`

	// LogLevel is the minimum zap level: debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"ADMINCTL_LOG_LEVEL, overwrite"`
}

// Dir returns the per-user config directory for the client.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "adminctl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "adminctl")
}

// ProfilePath returns the location of the optional YAML profile.
func ProfilePath() string { return filepath.Join(Dir(), "config.yaml") }

// Load reads the profile file (if present), overlays environment variables,
// and fills remaining gaps with defaults. A missing APIURL is an error.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config

	if b, err := os.ReadFile(ProfilePath()); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", ProfilePath(), err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = DefaultLoginTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.APIURL == "" {
		return nil, errors.New("api url not set (ADMINCTL_API_URL or api_url in profile)")
	}
	return &cfg, nil
}
