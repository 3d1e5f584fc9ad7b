// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/relay/internal/util"
)

// StaticDirs resolves theme names to their static directories.
type StaticDirs interface {
	StaticDir(themeName string) (string, error)
}

// StaticHandler serves site assets and theme static files. Directory
// listings are never produced and symlinks leading out of the served
// directory are refused.
type StaticHandler struct {
	assetsDir string
	themes    StaticDirs
	notFound  http.HandlerFunc
}

// NewStaticHandler creates a new StaticHandler.
func NewStaticHandler(assetsDir string, themes StaticDirs, notFound http.HandlerFunc) *StaticHandler {
	if notFound == nil {
		notFound = http.NotFound
	}
	return &StaticHandler{assetsDir: assetsDir, themes: themes, notFound: notFound}
}

// Assets handles GET /assets/*.
func (h *StaticHandler) Assets(w http.ResponseWriter, r *http.Request) {
	h.serveWithin(w, r, h.assetsDir, chi.URLParam(r, "*"))
}

// ThemeStatic handles GET /themes/{theme}/static/*.
func (h *StaticHandler) ThemeStatic(w http.ResponseWriter, r *http.Request) {
	dir, err := h.themes.StaticDir(chi.URLParam(r, "theme"))
	if err != nil {
		h.notFound(w, r)
		return
	}
	h.serveWithin(w, r, dir, chi.URLParam(r, "*"))
}

func (h *StaticHandler) serveWithin(w http.ResponseWriter, r *http.Request, root, rel string) {
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	if rel == "" || strings.Contains(rel, "\x00") {
		h.notFound(w, r)
		return
	}

	file, err := util.ResolveWithin(root, rel)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("rejected static path", "category", "security", "path", rel)
		}
		h.notFound(w, r)
		return
	}

	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		h.notFound(w, r)
		return
	}
	http.ServeFile(w, r, file)
}
