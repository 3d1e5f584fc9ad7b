// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the Relay project.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/olegiv/relay/internal/auth"
	"github.com/olegiv/relay/internal/menu"
	"github.com/olegiv/relay/internal/store"
	"github.com/olegiv/relay/internal/themes"
)

// Fixture credentials created by NewSite.
const (
	AdminUser     = "admin"
	AdminPassword = "admin-password"
	EditorUser    = "editor"
	EditorPass    = "editor-password"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a completely silent test logger (error level only).
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// Site is a temporary site directory laid out like relay-admin init.
type Site struct {
	Root string
}

// ContentDir returns the content directory.
func (s Site) ContentDir() string { return filepath.Join(s.Root, "content") }

// ConfigDir returns the config directory.
func (s Site) ConfigDir() string { return filepath.Join(s.Root, "config") }

// ThemesDir returns the themes directory.
func (s Site) ThemesDir() string { return filepath.Join(s.Root, "themes") }

// AssetsDir returns the assets directory.
func (s Site) AssetsDir() string { return filepath.Join(s.Root, "assets") }

// WriteContent writes a content file relative to the content directory.
func (s Site) WriteContent(t *testing.T, rel, body string) {
	t.Helper()
	WriteFile(t, filepath.Join(s.ContentDir(), rel), body)
}

// NewSite creates a site with both bundled themes, an index and an about
// page, a header menu, and one admin and one editor account.
func NewSite(t *testing.T) Site {
	t.Helper()

	site := Site{Root: t.TempDir()}
	for _, dir := range []string{site.ContentDir(), site.ConfigDir(), site.ThemesDir(), site.AssetsDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("creating %s: %v", dir, err)
		}
	}

	for _, name := range themes.Names() {
		if err := themes.Install(site.ThemesDir(), name); err != nil {
			t.Fatalf("installing theme %s: %v", name, err)
		}
	}

	site.WriteContent(t, "index.md", "---\ntitle: Welcome\n---\n# Hello Relay\n\nFront page.\n")
	site.WriteContent(t, "about.md", "---\ntitle: About Us\ndescription: Who we are\n---\nAbout **us**.\n")

	menus := store.NewMenuStore(site.ConfigDir())
	header := []menu.Item{
		{Label: "Home", URL: "/"},
		{Label: "About", URL: "/about"},
	}
	if err := menus.Save(store.HeaderMenu, header); err != nil {
		t.Fatalf("saving header menu: %v", err)
	}
	for _, name := range []string{store.LeftMenu, store.RightMenu} {
		if err := menus.Save(name, []menu.Item{}); err != nil {
			t.Fatalf("saving %s: %v", name, err)
		}
	}

	settings := store.NewSettingsStore(site.ConfigDir())
	if err := settings.Save(store.DefaultSettings()); err != nil {
		t.Fatalf("saving settings: %v", err)
	}

	users := store.NewUserStore(site.ConfigDir())
	if err := auth.CreateUser(users, AdminUser, AdminPassword, store.RoleAdmin); err != nil {
		t.Fatalf("creating admin: %v", err)
	}
	if err := auth.CreateUser(users, EditorUser, EditorPass, store.RoleEditor); err != nil {
		t.Fatalf("creating editor: %v", err)
	}

	return site
}

// WriteFile writes body to path, creating parent directories.
func WriteFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("creating directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
