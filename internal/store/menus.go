// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/olegiv/relay/internal/menu"
	"github.com/olegiv/relay/internal/util"
)

// Standard menus created by a fresh install.
const (
	HeaderMenu = "header-menu"
	LeftMenu   = "left-menu"
	RightMenu  = "right-menu"
)

// reservedNames are the other JSON files in the config directory. They are
// matched case-insensitively for filesystems that fold case.
var reservedNames = []string{
	strings.TrimSuffix(UsersFile, ".json"),
	strings.TrimSuffix(SettingsFile, ".json"),
}

// IsReservedMenuName reports whether name belongs to a config file that is
// not a menu.
func IsReservedMenuName(name string) bool {
	for _, r := range reservedNames {
		if strings.EqualFold(name, r) {
			return true
		}
	}
	return false
}

// MenuStore keeps one JSON array per menu in the config directory.
type MenuStore struct {
	dir string
}

// NewMenuStore returns a store for menus in configDir.
func NewMenuStore(configDir string) *MenuStore {
	return &MenuStore{dir: configDir}
}

// path maps a menu name to its file. Reserved names are refused so the
// users and settings files can never be read or replaced as menus.
func (s *MenuStore) path(name string) (string, error) {
	safe, err := util.SanitizeName(name)
	if err != nil || IsReservedMenuName(safe) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	p, err := util.SafeJoinPath(s.dir, safe+".json")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return p, nil
}

// Load returns the named menu. A missing menu is empty.
func (s *MenuStore) Load(name string) ([]menu.Item, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	var items []menu.Item
	if err := ReadJSONFile(p, &items); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading menu %s: %w", name, err)
	}
	return items, nil
}

// Save validates items and replaces the named menu.
func (s *MenuStore) Save(name string, items []menu.Item) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := menu.ValidateItems(items); err != nil {
		return err
	}
	if items == nil {
		items = []menu.Item{}
	}
	return WriteJSONFile(p, items)
}

// List returns the names of menu files, sorted: every JSON file with a
// valid, unreserved name.
func (s *MenuStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing menus: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		if util.IsValidName(name) && !IsReservedMenuName(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
