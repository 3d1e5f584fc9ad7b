// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !unix

package handler

func checkDiskSpace(string) Check {
	return Check{Status: statusHealthy, Message: "Not checked on this platform"}
}
