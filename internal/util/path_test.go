// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeContentPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty is index", input: "", want: "index"},
		{name: "root slash is index", input: "/", want: "index"},
		{name: "simple", input: "about", want: "about"},
		{name: "leading and trailing slashes", input: "/docs/intro/", want: "docs/intro"},
		{name: "dashes and underscores", input: "my-page_2", want: "my-page_2"},
		{name: "nul bytes stripped", input: "ab\x00out", want: "about"},
		{name: "parent traversal", input: "../etc/passwd", wantErr: true},
		{name: "embedded parent", input: "docs/../../secret", wantErr: true},
		{name: "current dir segment", input: "docs/./intro", wantErr: true},
		{name: "double slash", input: "docs//intro", wantErr: true},
		{name: "dot in name", input: "page.md", wantErr: true},
		{name: "space", input: "my page", wantErr: true},
		{name: "backslash", input: `docs\intro`, wantErr: true},
		{name: "unicode", input: "café", wantErr: true},
		{name: "encoded traversal stays literal", input: "%2e%2e", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeContentPath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeContentPath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("error = %v, want ErrInvalidPath", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("SanitizeContentPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"header-menu", false},
		{"default", false},
		{"uswds_2", false},
		{"", true},
		{"a/b", true},
		{"..", true},
		{"main.html", true},
		{"my theme", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := SanitizeName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("SanitizeName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestResolveWithin(t *testing.T) {
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "content")
	outside := filepath.Join(tmpDir, "outside")
	for _, dir := range []string{filepath.Join(root, "docs"), outside} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "docs", "intro.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outside, "secret.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "escape")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "docs"), filepath.Join(root, "alias")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		rel     string
		wantErr bool
	}{
		{name: "regular file", rel: "docs/intro.md"},
		{name: "internal symlink", rel: "alias/intro.md"},
		{name: "root itself", rel: ""},
		{name: "symlink escaping root", rel: "escape/secret.md", wantErr: true},
		{name: "lexical traversal", rel: "../outside/secret.md", wantErr: true},
		{name: "missing file", rel: "docs/missing.md", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveWithin(root, tt.rel)
			if (err != nil) != tt.wantErr {
				t.Errorf("ResolveWithin(%q) error = %v, wantErr %v", tt.rel, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPath) {
				t.Errorf("error = %v, want ErrInvalidPath", err)
			}
		})
	}
}

func TestValidatePathWithinBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "config")

	tests := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{name: "same directory", target: base},
		{name: "child", target: filepath.Join(base, "users.json")},
		{name: "parent", target: filepath.Join(base, ".."), wantErr: true},
		{name: "sibling with shared prefix", target: base + "-evil", wantErr: true},
		{name: "absolute elsewhere", target: "/etc/passwd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinBase(base, tt.target)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePathWithinBase() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSafeJoinPath(t *testing.T) {
	base := t.TempDir()

	if _, err := SafeJoinPath(base, "config", "header-menu.json"); err != nil {
		t.Errorf("SafeJoinPath() unexpected error: %v", err)
	}
	if _, err := SafeJoinPath(base, "..", "secret.json"); err == nil {
		t.Error("SafeJoinPath() expected error for traversal")
	}
}
