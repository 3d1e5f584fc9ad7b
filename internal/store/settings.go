// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/olegiv/relay/internal/util"
)

// ErrInvalidSettings is returned when settings fail validation on save.
var ErrInvalidSettings = errors.New("invalid settings")

// Known settings keys.
const (
	KeyActiveTheme = "active_theme"
	KeySiteName    = "site_name"
	KeyTimezone    = "timezone"
)

// Settings is the site configuration. Keys other than the known ones are
// kept in Extra and written back unchanged.
type Settings struct {
	ActiveTheme string
	SiteName    string
	Timezone    string
	Extra       map[string]json.RawMessage
}

// DefaultSettings returns the values used for missing keys.
func DefaultSettings() Settings {
	return Settings{
		ActiveTheme: "default",
		SiteName:    "Relay CMS",
		Timezone:    "America/New_York",
	}
}

// MarshalJSON writes known keys alongside the preserved extras.
func (s Settings) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+3)
	for k, v := range s.Extra {
		out[k] = v
	}
	out[KeyActiveTheme] = s.ActiveTheme
	out[KeySiteName] = s.SiteName
	out[KeyTimezone] = s.Timezone
	return json.Marshal(out)
}

// UnmarshalJSON overrides fields present in data, leaving the others as
// they are. Known keys holding non-string values are ignored.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		var target *string
		switch k {
		case KeyActiveTheme:
			target = &s.ActiveTheme
		case KeySiteName:
			target = &s.SiteName
		case KeyTimezone:
			target = &s.Timezone
		default:
			if s.Extra == nil {
				s.Extra = map[string]json.RawMessage{}
			}
			s.Extra[k] = v
			continue
		}
		var str string
		if err := json.Unmarshal(v, &str); err == nil && str != "" {
			*target = str
		}
	}
	return nil
}

// Validate checks required fields and the theme identifier.
func (s Settings) Validate() error {
	switch {
	case s.ActiveTheme == "":
		return fmt.Errorf("%w: %s is required", ErrInvalidSettings, KeyActiveTheme)
	case s.SiteName == "":
		return fmt.Errorf("%w: %s is required", ErrInvalidSettings, KeySiteName)
	case s.Timezone == "":
		return fmt.Errorf("%w: %s is required", ErrInvalidSettings, KeyTimezone)
	case !util.IsValidName(s.ActiveTheme):
		return fmt.Errorf("%w: invalid theme name %q", ErrInvalidSettings, s.ActiveTheme)
	}
	return nil
}

// SettingsFile is the settings file in the config directory.
const SettingsFile = "settings.json"

// SettingsStore reads and writes settings.json.
type SettingsStore struct {
	path string
}

// NewSettingsStore returns a store for settings.json inside configDir.
func NewSettingsStore(configDir string) *SettingsStore {
	return &SettingsStore{path: filepath.Join(configDir, SettingsFile)}
}

// Load merges the settings file over the defaults. A missing or corrupt
// file yields the defaults; corruption is logged.
func (s *SettingsStore) Load() Settings {
	settings := DefaultSettings()
	if err := ReadJSONFile(s.path, &settings); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("settings file unreadable, using defaults", "path", s.path, "error", err)
		}
		return DefaultSettings()
	}
	return settings
}

// Save validates and writes settings.
func (s *SettingsStore) Save(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return WriteJSONFile(s.path, settings)
}

// Get returns a string setting or fallback when it is absent.
func (s *SettingsStore) Get(key, fallback string) string {
	settings := s.Load()
	switch key {
	case KeyActiveTheme:
		return settings.ActiveTheme
	case KeySiteName:
		return settings.SiteName
	case KeyTimezone:
		return settings.Timezone
	}
	raw, ok := settings.Extra[key]
	if !ok {
		return fallback
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return fallback
	}
	return str
}

// Set stores a single string setting and saves the result.
func (s *SettingsStore) Set(key, value string) error {
	return UpdateJSONFile(s.path, func(settings *Settings) error {
		merged := DefaultSettings()
		if settings.Extra != nil {
			merged.Extra = settings.Extra
		}
		if settings.ActiveTheme != "" {
			merged.ActiveTheme = settings.ActiveTheme
		}
		if settings.SiteName != "" {
			merged.SiteName = settings.SiteName
		}
		if settings.Timezone != "" {
			merged.Timezone = settings.Timezone
		}

		switch key {
		case KeyActiveTheme:
			merged.ActiveTheme = value
		case KeySiteName:
			merged.SiteName = value
		case KeyTimezone:
			merged.Timezone = value
		default:
			raw, err := json.Marshal(value)
			if err != nil {
				return err
			}
			if merged.Extra == nil {
				merged.Extra = map[string]json.RawMessage{}
			}
			merged.Extra[key] = raw
		}

		if err := merged.Validate(); err != nil {
			return err
		}
		*settings = merged
		return nil
	})
}
