// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package theme provides theme discovery, validation, switching and
// rendering of content pages through theme templates.
package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
)

// DefaultTheme is used when the configured theme is unusable.
const DefaultTheme = "default"

// MainTemplate is the fallback template every theme must provide.
const MainTemplate = "main"

var (
	ErrThemeNotFound    = errors.New("theme not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidMetadata  = errors.New("invalid theme metadata")
)

// Metadata is the content of theme.json.
type Metadata struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	Description     string   `json:"description,omitempty"`
	Author          string   `json:"author,omitempty"`
	Templates       []string `json:"templates"`
	DefaultTemplate string   `json:"default_template,omitempty"`
	MenuRenderer    string   `json:"menu_renderer,omitempty"`
}

// LoadMetadata reads and checks a theme.json file. The keys name, version
// and templates must be present.
func LoadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- theme name validated by caller
	if err != nil {
		return Metadata{}, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	for _, key := range []string{"name", "version", "templates"} {
		if _, ok := raw[key]; !ok {
			return Metadata{}, fmt.Errorf("%w: missing %q", ErrInvalidMetadata, key)
		}
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return meta, nil
}

// Info is a theme listed on the dashboard.
type Info struct {
	Name     string
	Metadata Metadata
	IsActive bool
}

// PageData is the data passed to theme templates.
type PageData struct {
	SiteName    string
	Title       string
	Metadata    map[string]string
	Content     template.HTML
	HeaderMenu  template.HTML
	LeftMenu    template.HTML
	RightMenu   template.HTML
	CurrentPath string
	Year        int
	ThemeName   string
}

// Meta returns a frontmatter value, or "" when absent.
func (d PageData) Meta(key string) string {
	return d.Metadata[key]
}
