// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build unix

package handler

import "golang.org/x/sys/unix"

// minFreeSpace is the free space below which the site reports degraded.
const minFreeSpace = 100 * 1024 * 1024

// checkDiskSpace checks available disk space for the site directory.
func checkDiskSpace(dir string) Check {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return Check{Status: statusUnhealthy, Message: "Failed to check disk space: " + err.Error()}
	}

	availableBytes := uint64(stat.Bavail) * uint64(stat.Bsize) //nolint:unconvert,gosec
	available := formatBytes(availableBytes)
	if availableBytes < minFreeSpace {
		return Check{Status: statusDegraded, Message: "Low disk space: " + available + " available"}
	}
	return Check{Status: statusHealthy, Message: available + " available"}
}
