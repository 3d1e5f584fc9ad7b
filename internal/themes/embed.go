// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package themes embeds the bundled themes so that relay-admin init can
// install them into a fresh site.
package themes

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FS contains the bundled themes (default, uswds).
//
//go:embed all:default all:uswds
var FS embed.FS

// Names returns the bundled theme directory names.
func Names() []string {
	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

// Install copies the bundled theme name into dir/name. Existing files are
// left untouched so local edits survive a repeated init.
func Install(dir, name string) error {
	sub, err := fs.Sub(FS, name)
	if err != nil {
		return fmt.Errorf("theme %s: %w", name, err)
	}
	if _, err := fs.Stat(sub, "theme.json"); err != nil {
		return fmt.Errorf("theme %s is not bundled: %w", name, err)
	}

	dest := filepath.Join(dir, name)
	return fs.WalkDir(sub, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dest, filepath.FromSlash(p))
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		if _, err := os.Stat(target); err == nil {
			return nil
		}
		data, err := fs.ReadFile(sub, p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644) // #nosec G306 -- theme files are public
	})
}
