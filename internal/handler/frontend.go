// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides HTTP handlers for the application.
package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/relay/internal/content"
	"github.com/olegiv/relay/internal/menu"
	"github.com/olegiv/relay/internal/render"
	"github.com/olegiv/relay/internal/store"
	"github.com/olegiv/relay/internal/theme"
	"github.com/olegiv/relay/internal/util"
)

// MenuLoader loads a menu by name.
type MenuLoader interface {
	Load(name string) ([]menu.Item, error)
}

// SiteSettings supplies site-wide settings.
type SiteSettings interface {
	Load() store.Settings
}

// FrontendHandler renders content pages through the active theme.
type FrontendHandler struct {
	content  *content.Store
	themes   *theme.Manager
	menus    MenuLoader
	settings SiteSettings
	renderer *render.Renderer
}

// NewFrontendHandler creates a new FrontendHandler. renderer provides the
// 404 and 500 pages.
func NewFrontendHandler(cs *content.Store, tm *theme.Manager, menus MenuLoader, settings SiteSettings, renderer *render.Renderer) *FrontendHandler {
	return &FrontendHandler{
		content:  cs,
		themes:   tm,
		menus:    menus,
		settings: settings,
		renderer: renderer,
	}
}

// Page renders the content file addressed by the request path.
func (h *FrontendHandler) Page(w http.ResponseWriter, r *http.Request) {
	// Under a router the wildcard is relative to any mount point; the root
	// route has none and resolves to the index page.
	requestPath := chi.URLParam(r, "*")
	if chi.RouteContext(r.Context()) == nil {
		requestPath = strings.TrimPrefix(r.URL.Path, "/")
	}

	page, err := h.content.Load(requestPath)
	if err != nil {
		if !errors.Is(err, content.ErrNotFound) {
			slog.Error("failed to load page", "path", requestPath, "error", err)
		}
		h.NotFound(w, r)
		return
	}

	settings := h.settings.Load()
	activeTheme := h.themes.Active()
	currentPath := "/" + page.Path
	if page.Path == util.IndexPage {
		currentPath = "/"
	}

	renderer := h.themes.MenuRenderer(activeTheme)
	loc := menu.Location{Path: currentPath, Base: h.themes.BasePath()}
	data := theme.PageData{
		SiteName:    settings.SiteName,
		Title:       page.Title(settings.SiteName),
		Metadata:    page.Metadata,
		Content:     page.HTML,
		HeaderMenu:  renderer.RenderHeader(h.loadMenu(store.HeaderMenu), loc),
		LeftMenu:    renderer.Render(h.loadMenu(store.LeftMenu), loc),
		RightMenu:   renderer.Render(h.loadMenu(store.RightMenu), loc),
		CurrentPath: currentPath,
		Year:        time.Now().Year(),
		ThemeName:   activeTheme,
	}

	var buf bytes.Buffer
	if err := h.themes.Render(&buf, h.templateFor(activeTheme, page.Metadata), data); err != nil {
		slog.Error("failed to render page", "path", page.Path, "theme", activeTheme, "error", err)
		h.ServerError(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// templateFor picks the page template: frontmatter first, then the theme's
// default, then main.
func (h *FrontendHandler) templateFor(themeName string, metadata map[string]string) string {
	if t := metadata["template"]; t != "" {
		return t
	}
	if meta, err := h.themes.Metadata(themeName); err == nil && meta.DefaultTemplate != "" {
		return meta.DefaultTemplate
	}
	return theme.MainTemplate
}

// loadMenu returns the named menu, or nothing when it cannot be read.
func (h *FrontendHandler) loadMenu(name string) []menu.Item {
	items, err := h.menus.Load(name)
	if err != nil {
		slog.Warn("failed to load menu", "menu", name, "error", err)
		return nil
	}
	return items
}

// NotFound renders the 404 page.
func (h *FrontendHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, "errors/404", "Page Not Found")
}

// ServerError renders the 500 page.
func (h *FrontendHandler) ServerError(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusInternalServerError, "errors/500", "Server Error")
}

func (h *FrontendHandler) renderError(w http.ResponseWriter, r *http.Request, status int, name, title string) {
	err := h.renderer.RenderStatus(w, r, status, name, render.TemplateData{
		Title:    title,
		SiteName: h.settings.Load().SiteName,
	})
	if err != nil {
		slog.Error("failed to render error page", "template", name, "error", err)
		http.Error(w, http.StatusText(status), status)
	}
}
