// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version provides build-time version information.
package version

import "fmt"

// Set via -ldflags "-X github.com/olegiv/relay/internal/version.version=...".
var (
	version   = "dev"
	gitCommit = ""
	buildTime = ""
)

// Info contains build-time version information injected via ldflags.
type Info struct {
	Version   string // Semantic version from git tags (e.g., "v1.2.3")
	GitCommit string // Short git commit hash (e.g., "abc1234")
	BuildTime string // Build timestamp in RFC3339 format
}

// Current returns the version compiled into the binary.
func Current() Info {
	return Info{Version: version, GitCommit: gitCommit, BuildTime: buildTime}
}

// String formats the version for --version output and logs.
func (i Info) String() string {
	v := i.Version
	if v == "" {
		v = "dev"
	}
	if i.GitCommit != "" {
		v = fmt.Sprintf("%s (%s)", v, i.GitCommit)
	}
	if i.BuildTime != "" {
		v += " built " + i.BuildTime
	}
	return v
}
