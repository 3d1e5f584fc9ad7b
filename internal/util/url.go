// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"fmt"
	"strings"
)

// NormalizeBasePath cleans the URL prefix a site is served under. The empty
// string and "/" mean the domain root; anything else becomes "/a/b" with no
// trailing slash. Segments follow the same rules as content paths.
func NormalizeBasePath(raw string) (string, error) {
	p := strings.Trim(strings.TrimSpace(raw), "/")
	if p == "" {
		return "", nil
	}
	for _, seg := range strings.Split(p, "/") {
		if !segmentPattern.MatchString(seg) {
			return "", fmt.Errorf("%w: base path %q", ErrInvalidPath, raw)
		}
	}
	return "/" + p, nil
}

// URLWithBase puts base in front of a root-relative path. Absolute,
// scheme-relative and relative URLs are returned unchanged.
func URLWithBase(base, p string) string {
	if p == "" || p == "/" {
		return base + "/"
	}
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return p
	}
	return base + p
}
