// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util holds small helpers shared by the stores and HTTP handlers.
package util

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrInvalidPath is returned for any rejected path or name. Callers map it to
// a not-found outcome so that malicious and absent inputs look the same.
var ErrInvalidPath = errors.New("invalid path")

// IndexPage is the content path used for the site root.
const IndexPage = "index"

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IsValidName reports whether s is a flat identifier usable as a file stem.
func IsValidName(s string) bool {
	return segmentPattern.MatchString(s)
}

// SanitizeContentPath normalizes a request path into a slash-separated
// content path made only of identifier segments. The empty path maps to
// IndexPage.
func SanitizeContentPath(raw string) (string, error) {
	p := strings.ReplaceAll(raw, "\x00", "")
	p = strings.Trim(p, "/")
	if p == "" {
		return IndexPage, nil
	}

	segments := strings.Split(p, "/")
	for _, seg := range segments {
		switch {
		case seg == "", seg == ".", seg == "..":
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, raw)
		case !segmentPattern.MatchString(seg):
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, raw)
		}
	}

	return strings.Join(segments, "/"), nil
}

// SanitizeName validates a single flat name such as a template, theme or
// menu name. Slashes are never accepted.
func SanitizeName(raw string) (string, error) {
	name := strings.ReplaceAll(raw, "\x00", "")
	if !segmentPattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, raw)
	}
	return name, nil
}

// ResolveWithin joins rel onto root and checks, after resolving symlinks on
// both sides, that the result stays inside root. The target must exist; a
// missing target also satisfies errors.Is(err, fs.ErrNotExist). Returns the
// real (symlink-free) path.
func ResolveWithin(root, rel string) (string, error) {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("%w: root: %v", ErrInvalidPath, err)
	}

	realTarget, err := filepath.EvalSymlinks(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}

	if err := ValidatePathWithinBase(realRoot, realTarget); err != nil {
		return "", err
	}
	return realTarget, nil
}

// ValidatePathWithinBase ensures that a resolved path is within the expected
// base directory. It cleans both paths and checks that the target equals the
// base or starts with the base plus a separator.
func ValidatePathWithinBase(basePath, targetPath string) error {
	absBase, err := filepath.Abs(filepath.Clean(basePath))
	if err != nil {
		return fmt.Errorf("%w: base: %v", ErrInvalidPath, err)
	}

	absTarget, err := filepath.Abs(filepath.Clean(targetPath))
	if err != nil {
		return fmt.Errorf("%w: target: %v", ErrInvalidPath, err)
	}

	// Trailing separator so /content-evil never matches /content.
	if absTarget != absBase && !strings.HasPrefix(absTarget, absBase+string(filepath.Separator)) {
		return fmt.Errorf("%w: path escapes base directory", ErrInvalidPath)
	}

	return nil
}

// SafeJoinPath joins path components and validates the lexical result is
// within the base directory. Unlike ResolveWithin it does not require the
// target to exist, which makes it suitable for files about to be created.
func SafeJoinPath(basePath string, components ...string) (string, error) {
	fullPath := filepath.Join(append([]string{basePath}, components...)...)

	if err := ValidatePathWithinBase(basePath, fullPath); err != nil {
		return "", err
	}

	return fullPath, nil
}
