// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build unix

package store

import (
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes an exclusive flock on path+".lock", blocking until it is
// available. The returned func releases it.
func lockFile(path string) (func(), error) {
	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o600) // #nosec G304
	if err != nil {
		return nil, err
	}

	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return func() {
		if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
			slog.Warn("failed to release file lock", "path", path, "error", err)
		}
		_ = f.Close()
	}, nil
}
