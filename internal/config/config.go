// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/olegiv/relay/internal/util"
)

// Session backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreSQLite = "sqlite"
	SessionStoreRedis  = "redis"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Root       string `env:"RELAY_ROOT" envDefault:"."`
	ServerHost string `env:"RELAY_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"RELAY_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"RELAY_ENV" envDefault:"development"`
	LogLevel   string `env:"RELAY_LOG_LEVEL" envDefault:"info"`

	// Session configuration
	SessionStore  string `env:"RELAY_SESSION_STORE" envDefault:"memory"`           // memory, sqlite or redis
	SessionDB     string `env:"RELAY_SESSION_DB" envDefault:"data/sessions.db"`    // SQLite file, relative to Root
	RedisURL      string `env:"RELAY_REDIS_URL"`                                   // Required for the redis store
	SessionPrefix string `env:"RELAY_SESSION_PREFIX" envDefault:"relay:session:"`  // Redis key prefix
	SecurityLog   string `env:"RELAY_SECURITY_LOG" envDefault:"data/security.log"` // WARN+ event log, relative to Root

	ContentSafeMode bool `env:"RELAY_CONTENT_SAFE_MODE" envDefault:"false"`

	// URL prefix for subdirectory deployments, e.g. "/relay". Empty serves
	// from the domain root. Load normalizes it to "/a/b" form.
	BasePath string `env:"RELAY_BASE_PATH"`

	// Public base URL for sitemap.xml and robots.txt; derived from the
	// request when empty.
	SiteURL           string `env:"RELAY_SITE_URL"`
	RobotsDisallowAll bool   `env:"RELAY_ROBOTS_DISALLOW_ALL" envDefault:"false"` // Staging sites

	// Per-IP login throttle, disabled when LoginIPRate is 0
	LoginIPRate  float64 `env:"RELAY_LOGIN_IP_RATE" envDefault:"0"`  // Requests per second
	LoginIPBurst int     `env:"RELAY_LOGIN_IP_BURST" envDefault:"5"` // Burst size

	// WatchThemes defaults to IsDevelopment when unset.
	WatchThemes *bool `env:"RELAY_WATCH_THEMES"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// ShouldWatchThemes reports whether theme files are watched for changes.
func (c Config) ShouldWatchThemes() bool {
	if c.WatchThemes != nil {
		return *c.WatchThemes
	}
	return c.IsDevelopment()
}

// LoginThrottleEnabled returns true if the per-IP login throttle is on.
func (c Config) LoginThrottleEnabled() bool {
	return c.LoginIPRate > 0
}

// ContentDir returns the directory of Markdown pages.
func (c Config) ContentDir() string { return filepath.Join(c.Root, "content") }

// ConfigDir returns the directory of JSON data files.
func (c Config) ConfigDir() string { return filepath.Join(c.Root, "config") }

// ThemesDir returns the themes directory.
func (c Config) ThemesDir() string { return filepath.Join(c.Root, "themes") }

// AssetsDir returns the public assets directory.
func (c Config) AssetsDir() string { return filepath.Join(c.Root, "assets") }

// SessionDBPath returns the SQLite session file path.
func (c Config) SessionDBPath() string { return c.underRoot(c.SessionDB) }

// SecurityLogPath returns the event log path.
func (c Config) SecurityLogPath() string { return c.underRoot(c.SecurityLog) }

func (c Config) underRoot(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads an optional .env file and parses environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	base, err := util.NormalizeBasePath(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("RELAY_BASE_PATH: %w", err)
	}
	cfg.BasePath = base

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that env tags cannot express.
func (c Config) Validate() error {
	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreSQLite:
	case SessionStoreRedis:
		if c.RedisURL == "" {
			return errors.New("RELAY_REDIS_URL is required when RELAY_SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("RELAY_SESSION_STORE must be one of memory, sqlite, redis; got %q", c.SessionStore)
	}

	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("RELAY_SERVER_PORT out of range: %d", c.ServerPort)
	}
	if c.SiteURL != "" && !strings.HasPrefix(c.SiteURL, "http://") && !strings.HasPrefix(c.SiteURL, "https://") {
		return fmt.Errorf("RELAY_SITE_URL must be an http(s) URL; got %q", c.SiteURL)
	}
	if c.LoginIPRate < 0 || c.LoginIPBurst < 1 {
		return errors.New("RELAY_LOGIN_IP_RATE must be >= 0 and RELAY_LOGIN_IP_BURST >= 1")
	}

	if !c.IsDevelopment() && c.SessionStore == SessionStoreMemory {
		slog.Warn("in-memory sessions are lost on restart; consider RELAY_SESSION_STORE=sqlite")
	}
	return nil
}
