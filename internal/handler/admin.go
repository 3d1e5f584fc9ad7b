// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/relay/internal/auth"
	"github.com/olegiv/relay/internal/middleware"
	"github.com/olegiv/relay/internal/render"
	"github.com/olegiv/relay/internal/session"
	"github.com/olegiv/relay/internal/store"
	"github.com/olegiv/relay/internal/theme"
)

// MenuLister lists the menus shown on the dashboard.
type MenuLister interface {
	List() ([]string, error)
}

// UserLister lists accounts for admins.
type UserLister interface {
	List() ([]store.User, error)
}

// ContentLister lists content pages.
type ContentLister interface {
	ListFiles(dir string) ([]string, error)
}

// AdminHandler serves the dashboard and account settings.
type AdminHandler struct {
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	guard          *auth.Guard
	csrf           *auth.CSRF
	menus          MenuLister
	users          UserLister
	content        ContentLister
	themes         *theme.Manager
}

// AdminDeps groups the collaborators of AdminHandler.
type AdminDeps struct {
	Renderer       *render.Renderer
	SessionManager *scs.SessionManager
	Guard          *auth.Guard
	CSRF           *auth.CSRF
	Menus          MenuLister
	Users          UserLister
	Content        ContentLister
	Themes         *theme.Manager
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(deps AdminDeps) *AdminHandler {
	return &AdminHandler{
		renderer:       deps.Renderer,
		sessionManager: deps.SessionManager,
		guard:          deps.Guard,
		csrf:           deps.CSRF,
		menus:          deps.Menus,
		users:          deps.Users,
		content:        deps.Content,
		themes:         deps.Themes,
	}
}

// DashboardData holds data for the dashboard template.
type DashboardData struct {
	Menus        []string
	Themes       []theme.Info
	ActiveTheme  string
	ContentFiles []string
	Users        []store.User
	IsAdmin      bool
}

// Dashboard renders the admin dashboard.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	token, err := h.csrf.Token(session.FromRequest(h.sessionManager, r))
	if err != nil {
		logAndInternalError(w, "failed to issue csrf token", "error", err)
		return
	}

	data := DashboardData{
		Themes:      h.themes.List(),
		ActiveTheme: h.themes.Active(),
		IsAdmin:     user.IsAdmin(),
	}

	if data.Menus, err = h.menus.List(); err != nil {
		slog.Error("failed to list menus", "error", err)
	}
	if data.ContentFiles, err = h.content.ListFiles(""); err != nil {
		slog.Error("failed to list content files", "error", err)
	}
	if data.IsAdmin {
		if data.Users, err = h.users.List(); err != nil {
			slog.Error("failed to list users", "error", err)
		}
	}

	renderPage(w, r, h.renderer, "admin/dashboard", render.TemplateData{
		Title:     "Dashboard",
		Data:      data,
		CSRFToken: token,
		User:      user,
	})
}

// ChangePassword handles POST /admin/password.
func (h *AdminHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectAdmin) {
		return
	}
	user := middleware.GetUser(r)

	oldPassword := r.FormValue(fieldOldPassword)
	newPassword := r.FormValue(fieldNewPassword)
	confirm := r.FormValue(fieldConfirmPassword)

	if newPassword != confirm {
		flashError(w, r, h.renderer, redirectAdmin, "New passwords do not match.")
		return
	}
	if len(newPassword) < auth.MinPasswordLength {
		flashError(w, r, h.renderer, redirectAdmin, "Password must be at least 8 characters.")
		return
	}

	if err := h.guard.ChangePassword(user.Username, oldPassword, newPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Warn("password change rejected", "category", "auth", "username", user.Username)
		} else {
			slog.Error("failed to change password", "username", user.Username, "error", err)
		}
		flashError(w, r, h.renderer, redirectAdmin, "Failed to change password. Check your current password.")
		return
	}

	slog.Info("password changed", "category", "auth", "username", user.Username)
	flashSuccess(w, r, h.renderer, redirectAdmin, "Password changed successfully.")
}

// ChangeTheme handles POST /admin/theme. Admin only.
func (h *AdminHandler) ChangeTheme(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectAdmin) {
		return
	}
	user := middleware.GetUser(r)
	name := r.FormValue(fieldTheme)

	if err := h.themes.SetActive(name); err != nil {
		switch {
		case errors.Is(err, theme.ErrThemeNotFound),
			errors.Is(err, theme.ErrTemplateNotFound),
			errors.Is(err, theme.ErrInvalidMetadata):
			slog.Warn("invalid theme selected", "category", "theme", "theme", name, "error", err)
			flashError(w, r, h.renderer, redirectAdmin, "Invalid theme selected.")
		default:
			slog.Error("failed to save theme setting", "theme", name, "error", err)
			flashError(w, r, h.renderer, redirectAdmin, "Failed to save theme setting.")
		}
		return
	}

	slog.Info("theme changed", "category", "theme", "theme", name, "username", user.Username)
	flashSuccess(w, r, h.renderer, redirectAdmin, "Theme changed successfully to "+name+".")
}

// CSRFToken returns the session's current token so that scripts can
// recover from an expired one without reloading the page.
func (h *AdminHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrf.Token(session.FromRequest(h.sessionManager, r))
	if err != nil {
		slog.Error("failed to issue csrf token", "error", err)
		writeJSONErrorType(w, http.StatusInternalServerError, "Internal Server Error", errorTypeServer)
		return
	}
	writeJSONSuccess(w, map[string]any{"token": token})
}
