// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/relay/internal/auth"
	"github.com/olegiv/relay/internal/menu"
	"github.com/olegiv/relay/internal/middleware"
	"github.com/olegiv/relay/internal/render"
	"github.com/olegiv/relay/internal/session"
	"github.com/olegiv/relay/internal/store"
	"github.com/olegiv/relay/internal/util"
)

// MenuStore loads and replaces menus.
type MenuStore interface {
	Load(name string) ([]menu.Item, error)
	Save(name string, items []menu.Item) error
}

// MenusHandler handles the menu editor.
type MenusHandler struct {
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	csrf           *auth.CSRF
	menus          MenuStore
	frontend       *FrontendHandler
}

// NewMenusHandler creates a new MenusHandler. frontend renders 404 pages.
func NewMenusHandler(renderer *render.Renderer, sm *scs.SessionManager, csrf *auth.CSRF, menus MenuStore, frontend *FrontendHandler) *MenusHandler {
	return &MenusHandler{
		renderer:       renderer,
		sessionManager: sm,
		csrf:           csrf,
		menus:          menus,
		frontend:       frontend,
	}
}

// MenuEditData holds data for the menu editor template.
type MenuEditData struct {
	Name  string
	Items []menu.FlatItem
}

// Edit renders the editor for one menu in its flat form.
func (h *MenusHandler) Edit(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	items, err := h.menus.Load(name)
	if err != nil {
		if errors.Is(err, store.ErrInvalidName) {
			slog.Warn("rejected menu name", "category", "security", "menu", name)
			h.frontend.NotFound(w, r)
			return
		}
		logAndInternalError(w, "failed to load menu", "menu", name, "error", err)
		return
	}

	token, err := h.csrf.Token(session.FromRequest(h.sessionManager, r))
	if err != nil {
		logAndInternalError(w, "failed to issue csrf token", "error", err)
		return
	}

	renderPage(w, r, h.renderer, "admin/menu_edit", render.TemplateData{
		Title:     "Edit Menu: " + name,
		Data:      MenuEditData{Name: name, Items: menu.Flatten(items)},
		CSRFToken: token,
		User:      middleware.GetUser(r),
	})
}

// Save handles POST /admin/menus/save. The menu arrives either nested in
// menu_data or as editor rows with indents in menu_flat.
func (h *MenusHandler) Save(w http.ResponseWriter, r *http.Request) {
	name := r.PostFormValue(fieldMenuName)
	if _, err := util.SanitizeName(name); err != nil {
		slog.Warn("rejected menu name", "category", "security", "menu", name)
		writeJSONErrorType(w, http.StatusBadRequest, "Invalid menu name", errorTypeValidation)
		return
	}

	items, err := decodeMenu(r.PostFormValue(fieldMenuData), r.PostFormValue(fieldMenuFlat))
	if err != nil {
		slog.Warn("invalid menu data", "category", "menu", "menu", name, "error", err)
		writeJSONErrorType(w, http.StatusBadRequest, "Invalid menu data", errorTypeValidation)
		return
	}

	if err := h.menus.Save(name, items); err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidName):
			slog.Warn("rejected menu name", "category", "security", "menu", name)
			writeJSONErrorType(w, http.StatusBadRequest, "Invalid menu name", errorTypeValidation)
		case errors.Is(err, menu.ErrInvalidMenu):
			writeJSONErrorType(w, http.StatusBadRequest, "Invalid menu data", errorTypeValidation)
		default:
			slog.Error("failed to save menu", "menu", name, "error", err)
			writeJSONErrorType(w, http.StatusInternalServerError, "Failed to save menu", errorTypeServer)
		}
		return
	}

	user := middleware.GetUser(r)
	slog.Info("menu saved", "category", "menu", "menu", name, "items", len(items), "username", user.Username)
	writeJSONSuccess(w, map[string]any{"message": "Menu saved successfully"})
}

// decodeMenu turns the submitted form values into a validated tree.
func decodeMenu(nested, flat string) ([]menu.Item, error) {
	switch {
	case nested != "":
		return menu.Validate([]byte(nested))
	case flat != "":
		var rows []menu.FlatItem
		if err := json.Unmarshal([]byte(flat), &rows); err != nil {
			return nil, errors.Join(menu.ErrInvalidMenu, err)
		}
		items := menu.Nest(rows)
		if err := menu.ValidateItems(items); err != nil {
			return nil, err
		}
		return items, nil
	default:
		return nil, menu.ErrInvalidMenu
	}
}
