// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/relay/internal/auth"
	"github.com/olegiv/relay/internal/session"
	"github.com/olegiv/relay/internal/version"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// ThemeValidator checks that the active theme can be rendered.
type ThemeValidator interface {
	Active() string
	Validate(name string) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	sm         *scs.SessionManager
	guard      *auth.Guard
	themes     ThemeValidator
	contentDir string
	configDir  string
	startTime  time.Time
}

// HealthConfig groups the collaborators of HealthHandler.
type HealthConfig struct {
	SessionManager *scs.SessionManager
	Guard          *auth.Guard
	Themes         ThemeValidator
	ContentDir     string
	ConfigDir      string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(cfg HealthConfig) *HealthHandler {
	return &HealthHandler{
		sm:         cfg.SessionManager,
		guard:      cfg.Guard,
		themes:     cfg.Themes,
		contentDir: cfg.ContentDir,
		configDir:  cfg.ConfigDir,
		startTime:  time.Now(),
	}
}

// StartTime returns when the handler (and application) was started.
func (h *HealthHandler) StartTime() time.Time {
	return h.startTime
}

// HealthStatusPublic is the minimal health response for unauthenticated callers.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus represents the overall health status (authenticated callers only).
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks,omitempty"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemInfo contains system-level information.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutines"`
	NumCPU       int    `json:"num_cpus"`
	MemAlloc     string `json:"mem_alloc"`
	MemSys       string `json:"mem_sys"`
}

// Health handles GET /health requests.
// Returns minimal status for unauthenticated callers, full details for admins.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := h.runChecks()

	overallStatus := statusHealthy
	for _, c := range checks {
		if c.Status == statusUnhealthy {
			overallStatus = statusUnhealthy
			break
		}
		if c.Status == statusDegraded {
			overallStatus = statusDegraded
		}
	}

	code := http.StatusOK
	if overallStatus == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	user := h.sessionUser(r)
	if user == nil {
		writeHealthJSON(w, code, HealthStatusPublic{Status: overallStatus})
		return
	}

	status := HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   version.Current().String(),
	}
	if user.IsAdmin() {
		status.Checks = checks
		if r.URL.Query().Get("verbose") == "true" {
			status.System = systemInfo()
		}
	}
	writeHealthJSON(w, code, status)
}

// Liveness handles GET /health/live - simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeHealthJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready. The site is ready once its content
// directory and active theme can serve pages.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	for _, c := range []Check{h.checkContent(), h.checkTheme()} {
		if c.Status == statusUnhealthy {
			resp := map[string]string{"status": "not_ready"}
			if h.sessionUser(r) != nil {
				resp["message"] = c.Message
			}
			writeHealthJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeHealthJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeHealthJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *HealthHandler) runChecks() map[string]Check {
	return map[string]Check{
		"content": h.checkContent(),
		"config":  h.checkConfig(),
		"theme":   h.checkTheme(),
		"disk":    checkDiskSpace(h.contentDir),
	}
}

// sessionUser returns the logged-in user, or nil. Health routes may be
// mounted outside the session middleware, in which case scs panics.
func (h *HealthHandler) sessionUser(r *http.Request) (user *auth.SessionUser) {
	if h.sm == nil || h.guard == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			user = nil
		}
	}()
	u, ok := h.guard.Check(session.FromRequest(h.sm, r))
	if !ok {
		return nil
	}
	return u
}

func (h *HealthHandler) checkContent() Check {
	info, err := os.Stat(h.contentDir)
	if err != nil {
		return Check{Status: statusUnhealthy, Message: "Content directory unavailable"}
	}
	if !info.IsDir() {
		return Check{Status: statusUnhealthy, Message: "Content path is not a directory"}
	}
	return Check{Status: statusHealthy}
}

func (h *HealthHandler) checkConfig() Check {
	entries, err := os.ReadDir(h.configDir)
	if err != nil {
		return Check{Status: statusUnhealthy, Message: "Config directory unavailable"}
	}
	return Check{Status: statusHealthy, Message: fmt.Sprintf("%d files", len(entries))}
}

func (h *HealthHandler) checkTheme() Check {
	name := h.themes.Active()
	if err := h.themes.Validate(name); err != nil {
		return Check{Status: statusUnhealthy, Message: "Theme " + name + " is invalid: " + err.Error()}
	}
	return Check{Status: statusHealthy, Message: name}
}

// systemInfo returns system-level metrics.
func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     formatBytes(m.Alloc),
		MemSys:       formatBytes(m.Sys),
	}
}

// formatBytes converts bytes to a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
