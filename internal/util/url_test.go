// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"errors"
	"testing"
)

func TestNormalizeBasePath(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "", want: ""},
		{raw: "/", want: ""},
		{raw: "relay", want: "/relay"},
		{raw: "/relay/", want: "/relay"},
		{raw: " /sites/my-cms ", want: "/sites/my-cms"},
		{raw: "/a/../b", wantErr: true},
		{raw: "/a//b", wantErr: true},
		{raw: "/a b", wantErr: true},
		{raw: "https://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeBasePath(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("NormalizeBasePath(%q) error = %v, want ErrInvalidPath", tt.raw, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("NormalizeBasePath(%q) = %q, %v; want %q", tt.raw, got, err, tt.want)
			}
		})
	}
}

func TestURLWithBase(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"", "/", "/"},
		{"", "", "/"},
		{"", "/assets/site.css", "/assets/site.css"},
		{"/relay", "/", "/relay/"},
		{"/relay", "", "/relay/"},
		{"/relay", "/about", "/relay/about"},
		{"/relay", "/admin/menus/save", "/relay/admin/menus/save"},
		{"/relay", "https://example.com/x", "https://example.com/x"},
		{"/relay", "//cdn.example.com/x.js", "//cdn.example.com/x.js"},
		{"/relay", "#top", "#top"},
		{"/relay", "mailto:a@example.com", "mailto:a@example.com"},
	}

	for _, tt := range tests {
		if got := URLWithBase(tt.base, tt.path); got != tt.want {
			t.Errorf("URLWithBase(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}
