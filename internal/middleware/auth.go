// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, CSRF protection and request throttling.
package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/relay/internal/auth"
	"github.com/olegiv/relay/internal/session"
	"github.com/olegiv/relay/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyUser holds the *auth.SessionUser of an authenticated request.
const ContextKeyUser ContextKey = "user"

// Error types reported to JSON clients.
const (
	ErrorTypeSessionExpired = "session_expired"
	ErrorTypeForbidden      = "forbidden"
)

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *auth.SessionUser) context.Context {
	return context.WithValue(ctx, ContextKeyUser, user)
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *auth.SessionUser {
	user, _ := r.Context().Value(ContextKeyUser).(*auth.SessionUser)
	return user
}

// WantsJSON reports whether the client expects a JSON answer: AJAX calls
// and requests that send or accept JSON.
func WantsJSON(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// jsonError is the failure body shared with the handlers.
type jsonError struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, msg, errorType string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(jsonError{Error: msg, ErrorType: errorType}); err != nil {
		slog.Error("failed to encode JSON error", "error", err)
	}
}

// RequireAuth creates middleware that requires an authenticated session.
// The session's activity time is refreshed on every request. Browsers are
// redirected to loginURL with the requested URL remembered; JSON clients
// get 401 with error_type session_expired.
func RequireAuth(sm *scs.SessionManager, guard *auth.Guard, loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromRequest(sm, r)
			user, ok := guard.Check(sess)
			if !ok {
				if WantsJSON(r) {
					writeJSONError(w, http.StatusUnauthorized,
						"Your session has expired. Please log in again.", ErrorTypeSessionExpired)
					return
				}
				if r.Method == http.MethodGet {
					sess.Put(auth.KeyRedirectAfter, r.URL.RequestURI())
				}
				http.Redirect(w, r, loginURL, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireRole creates middleware that requires a minimum user role.
// Roles are hierarchical: admin > editor. It must run after RequireAuth.
func RequireRole(minRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				if WantsJSON(r) {
					writeJSONError(w, http.StatusUnauthorized, "Authentication required.", ErrorTypeSessionExpired)
					return
				}
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !auth.HasRole(user.Role, minRole) {
				slog.Warn("access denied",
					"category", "security",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"username", user.Username,
					"user_role", user.Role,
					"required_role", minRole,
					"remote_addr", r.RemoteAddr,
				)
				if WantsJSON(r) {
					writeJSONError(w, http.StatusForbidden, "Insufficient permissions.", ErrorTypeForbidden)
					return
				}
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin creates middleware that requires admin role.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(store.RoleAdmin)
}
