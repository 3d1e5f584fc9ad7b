// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Root != "." {
		t.Errorf("Root = %q, want %q", cfg.Root, ".")
	}
	if cfg.ServerHost != "localhost" {
		t.Errorf("ServerHost = %q, want %q", cfg.ServerHost, "localhost")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.SessionStore != SessionStoreMemory {
		t.Errorf("SessionStore = %q, want %q", cfg.SessionStore, SessionStoreMemory)
	}
	if cfg.SessionPrefix != "relay:session:" {
		t.Errorf("SessionPrefix = %q", cfg.SessionPrefix)
	}
	if cfg.ContentSafeMode {
		t.Error("ContentSafeMode should default to false")
	}
	if cfg.LoginThrottleEnabled() {
		t.Error("login throttle should be off by default")
	}
	if !cfg.ShouldWatchThemes() {
		t.Error("themes should be watched in development by default")
	}
	if cfg.BasePath != "" {
		t.Errorf("BasePath = %q, want empty", cfg.BasePath)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	t.Chdir(t.TempDir())
	t.Setenv("RELAY_ROOT", "/srv/site")
	t.Setenv("RELAY_SERVER_HOST", "0.0.0.0")
	t.Setenv("RELAY_SERVER_PORT", "3000")
	t.Setenv("RELAY_ENV", "production")
	t.Setenv("RELAY_LOG_LEVEL", "debug")
	t.Setenv("RELAY_SESSION_STORE", "sqlite")
	t.Setenv("RELAY_SESSION_DB", "/var/lib/relay/sessions.db")
	t.Setenv("RELAY_CONTENT_SAFE_MODE", "true")
	t.Setenv("RELAY_LOGIN_IP_RATE", "0.5")
	t.Setenv("RELAY_LOGIN_IP_BURST", "3")
	t.Setenv("RELAY_WATCH_THEMES", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q", cfg.ServerAddr())
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() should be false")
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v", cfg.SlogLevel())
	}
	if cfg.SessionDBPath() != "/var/lib/relay/sessions.db" {
		t.Errorf("SessionDBPath() = %q", cfg.SessionDBPath())
	}
	if cfg.SecurityLogPath() != filepath.Join("/srv/site", "data", "security.log") {
		t.Errorf("SecurityLogPath() = %q", cfg.SecurityLogPath())
	}
	if cfg.ContentDir() != filepath.Join("/srv/site", "content") {
		t.Errorf("ContentDir() = %q", cfg.ContentDir())
	}
	if !cfg.ContentSafeMode {
		t.Error("ContentSafeMode should be true")
	}
	if !cfg.LoginThrottleEnabled() || cfg.LoginIPBurst != 3 {
		t.Errorf("throttle = %v/%d", cfg.LoginIPRate, cfg.LoginIPBurst)
	}
	if !cfg.ShouldWatchThemes() {
		t.Error("explicit RELAY_WATCH_THEMES=true ignored")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	os.Clearenv()
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("RELAY_SERVER_PORT=9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want 9090", cfg.ServerPort)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown session store", map[string]string{"RELAY_SESSION_STORE": "memcached"}},
		{"redis without url", map[string]string{"RELAY_SESSION_STORE": "redis"}},
		{"port out of range", map[string]string{"RELAY_SERVER_PORT": "70000"}},
		{"port not a number", map[string]string{"RELAY_SERVER_PORT": "http"}},
		{"negative rate", map[string]string{"RELAY_LOGIN_IP_RATE": "-1"}},
		{"zero burst", map[string]string{"RELAY_LOGIN_IP_BURST": "0"}},
		{"site url without scheme", map[string]string{"RELAY_SITE_URL": "example.com"}},
		{"base path traversal", map[string]string{"RELAY_BASE_PATH": "/a/../b"}},
		{"base path with query", map[string]string{"RELAY_BASE_PATH": "/relay?x=1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestLoad_BasePath(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"/", ""},
		{"relay", "/relay"},
		{"/relay/", "/relay"},
		{"/sites/docs", "/sites/docs"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			os.Clearenv()
			t.Chdir(t.TempDir())
			t.Setenv("RELAY_BASE_PATH", tt.raw)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.BasePath != tt.want {
				t.Errorf("BasePath = %q, want %q", cfg.BasePath, tt.want)
			}
		})
	}
}

func TestShouldWatchThemes(t *testing.T) {
	off := false
	cfg := Config{Env: "development", WatchThemes: &off}
	if cfg.ShouldWatchThemes() {
		t.Error("explicit false ignored")
	}
	if (Config{Env: "production"}).ShouldWatchThemes() {
		t.Error("production should not watch by default")
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := (Config{LogLevel: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
