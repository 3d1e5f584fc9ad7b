// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store persists users, menus and site settings as JSON files.
//
// Every write takes an exclusive advisory lock on a sidecar "<file>.lock"
// and replaces the target through a temp file and rename, so readers never
// observe a partially written document. Reads are unlocked.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// ErrInvalidName is returned when a store key such as a menu name is not a
// valid identifier.
var ErrInvalidName = errors.New("invalid name")

// ReadJSONFile decodes the JSON document at path into v. A missing file is
// reported with an error satisfying errors.Is(err, fs.ErrNotExist).
func ReadJSONFile(path string, v any) error {
	data, err := os.ReadFile(path) // #nosec G304 -- callers build paths from validated names
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteJSONFile encodes v as indented JSON and atomically replaces path
// while holding the file's exclusive lock.
func WriteJSONFile(path string, v any) error {
	data, err := encodeJSON(path, v)
	if err != nil {
		return err
	}

	unlock, err := lockFile(path)
	if err != nil {
		return fmt.Errorf("locking %s: %w", filepath.Base(path), err)
	}
	defer unlock()

	return replaceFile(path, data)
}

// UpdateJSONFile runs a read-modify-write cycle on path under the file's
// exclusive lock. A missing file leaves v at its zero value before fn runs.
// Nothing is written when fn returns an error.
func UpdateJSONFile[T any](path string, fn func(v *T) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating directory for %s: %w", filepath.Base(path), err)
	}

	unlock, err := lockFile(path)
	if err != nil {
		return fmt.Errorf("locking %s: %w", filepath.Base(path), err)
	}
	defer unlock()

	var v T
	if err := ReadJSONFile(path, &v); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := fn(&v); err != nil {
		return err
	}

	data, err := encodeJSON(path, v)
	if err != nil {
		return err
	}
	return replaceFile(path, data)
}

func encodeJSON(path string, v any) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", filepath.Base(path), err)
	}
	return &buf, nil
}

func replaceFile(path string, data *bytes.Buffer) error {
	if err := atomic.WriteFile(path, data); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
