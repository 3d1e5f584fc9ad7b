// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/relay/internal/auth"
	"github.com/olegiv/relay/internal/render"
	"github.com/olegiv/relay/internal/session"
)

// AuthHandler handles authentication routes.
type AuthHandler struct {
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	guard          *auth.Guard
	csrf           *auth.CSRF
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(renderer *render.Renderer, sm *scs.SessionManager, guard *auth.Guard, csrf *auth.CSRF) *AuthHandler {
	return &AuthHandler{
		renderer:       renderer,
		sessionManager: sm,
		guard:          guard,
		csrf:           csrf,
	}
}

// LoginForm renders the login page. Authenticated users go to the dashboard.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	s := session.FromRequest(h.sessionManager, r)
	if _, ok := h.guard.Check(s); ok {
		http.Redirect(w, r, h.renderer.URL(redirectAdmin), http.StatusSeeOther)
		return
	}

	token, err := h.csrf.Token(s)
	if err != nil {
		logAndInternalError(w, "failed to issue csrf token", "error", err)
		return
	}

	renderPage(w, r, h.renderer, "auth/login", render.TemplateData{
		Title:     "Log In",
		CSRFToken: token,
	})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectLogin) {
		return
	}

	username := r.FormValue(fieldUsername)
	password := r.FormValue(fieldPassword)
	if username == "" || password == "" {
		flashError(w, r, h.renderer, redirectLogin, "Username and password are required.")
		return
	}

	s := session.FromRequest(h.sessionManager, r)
	err := h.guard.Login(s, username, password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrLocked), errors.Is(err, auth.ErrInvalidCredentials):
		if remaining := h.guard.LockoutRemaining(s); remaining > 0 {
			slog.Warn("login rejected, session locked", "category", "security",
				"username", username, "remaining", remaining.String())
			flashError(w, r, h.renderer, redirectLogin, lockoutMessage(remaining))
			return
		}
		slog.Warn("login failed", "category", "auth", "username", username)
		flashError(w, r, h.renderer, redirectLogin, "Invalid username or password.")
		return
	default:
		slog.Error("login error", "username", username, "error", err)
		flashError(w, r, h.renderer, redirectLogin, "Login failed. Please try again.")
		return
	}

	// New privileges get a new anti-forgery token.
	h.csrf.Reset(s)

	// The stored target is the request URI, which already carries the base path.
	target := localRedirect(s.PopString(auth.KeyRedirectAfter), h.renderer.URL(redirectAdmin))
	slog.Info("user logged in", "category", "auth", "username", username)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Logout handles POST /admin/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := session.FromRequest(h.sessionManager, r)
	if user, ok := h.guard.Check(s); ok {
		slog.Info("user logged out", "category", "auth", "username", user.Username)
	}
	h.guard.Logout(s)

	flashSuccess(w, r, h.renderer, redirectLogin, "You have been logged out.")
}

// lockoutMessage tells a locked-out user how many whole minutes to wait.
func lockoutMessage(remaining time.Duration) string {
	minutes := int(math.Ceil(remaining.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("Too many failed attempts. Please try again in %d %s.", minutes, unit)
}
