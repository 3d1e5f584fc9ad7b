// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !unix

package store

import (
	"path/filepath"
	"sync"
)

// Without flock only writers inside this process are serialized.
var fileLocks sync.Map

func lockFile(path string) (func(), error) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}
	v, _ := fileLocks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock, nil
}
