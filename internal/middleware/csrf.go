// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"filippo.io/csrf/gorilla"
	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/relay/internal/auth"
	"github.com/olegiv/relay/internal/session"
)

// CSRFHeaderName is the request header carrying the session CSRF token.
const CSRFHeaderName = "X-CSRF-Token"

// CSRFFieldName is the form field carrying the session CSRF token.
const CSRFFieldName = "csrf_token"

// Error types reported to JSON clients on CSRF failure.
const (
	ErrorTypeCSRFMissing = "csrf_missing"
	ErrorTypeCSRFExpired = "csrf_expired"
	ErrorTypeCSRFInvalid = "csrf_invalid"
)

// CrossOriginConfig holds configuration for the cross-origin guard.
// filippo.io/csrf/gorilla checks Fetch metadata headers instead of cookies,
// so it needs no per-session state.
type CrossOriginConfig struct {
	// AuthKey is a 32-byte key required by the gorilla-compatible API.
	AuthKey []byte

	// ErrorHandler is called when a cross-origin request is rejected.
	ErrorHandler http.Handler

	// TrustedOrigins is a list of host:port origins allowed to make
	// cross-origin requests.
	TrustedOrigins []string
}

// DefaultCrossOriginConfig returns a CrossOriginConfig with sensible defaults.
func DefaultCrossOriginConfig(authKey []byte, isDev bool) CrossOriginConfig {
	cfg := CrossOriginConfig{
		AuthKey: authKey,
	}

	// The csrf library expects host-only values, not full URLs.
	if isDev {
		cfg.TrustedOrigins = []string{
			"localhost:8080",
			"127.0.0.1:8080",
		}
	}

	return cfg
}

// CrossOrigin returns a middleware rejecting state-changing requests that
// browsers mark as cross-site. It runs before RequireCSRF.
func CrossOrigin(cfg CrossOriginConfig) func(http.Handler) http.Handler {
	var opts []csrf.Option

	if cfg.ErrorHandler != nil {
		opts = append(opts, csrf.ErrorHandler(cfg.ErrorHandler))
	} else {
		opts = append(opts, csrf.ErrorHandler(http.HandlerFunc(crossOriginErrorHandler)))
	}

	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}

	return csrf.Protect(cfg.AuthKey, opts...)
}

// crossOriginErrorHandler handles rejected cross-origin requests.
func crossOriginErrorHandler(w http.ResponseWriter, r *http.Request) {
	reason := csrf.FailureReason(r)
	reasonStr := "unknown"
	if reason != nil {
		reasonStr = reason.Error()
	}
	slog.Warn("cross-origin request rejected",
		"category", "security",
		"reason", reasonStr,
		"method", r.Method,
		"path", r.URL.Path,
		"origin", r.Header.Get("Origin"),
		"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
	)
	if WantsJSON(r) {
		writeJSONError(w, http.StatusForbidden, "Cross-origin request rejected.", ErrorTypeCSRFInvalid)
		return
	}
	http.Error(w, "Forbidden - cross-origin request rejected", http.StatusForbidden)
}

// isSafeMethod reports methods that never change state.
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// RequireCSRF creates middleware validating the session-bound CSRF token on
// state-changing requests. The token is read from the X-CSRF-Token header
// or the csrf_token form field.
func RequireCSRF(sm *scs.SessionManager, guard *auth.CSRF) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get(CSRFHeaderName)
			if token == "" {
				token = r.PostFormValue(CSRFFieldName)
			}

			err := guard.Validate(session.FromRequest(sm, r), token)
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			errorType, msg := csrfFailure(err)
			slog.Warn("csrf validation failed",
				"category", "security",
				"reason", err.Error(),
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			if WantsJSON(r) {
				writeJSONError(w, http.StatusForbidden, msg, errorType)
				return
			}
			http.Error(w, msg, http.StatusForbidden)
		})
	}
}

func csrfFailure(err error) (errorType, msg string) {
	switch {
	case errors.Is(err, auth.ErrCSRFMissing):
		return ErrorTypeCSRFMissing, "Security token missing. Please reload the page and try again."
	case errors.Is(err, auth.ErrCSRFExpired):
		return ErrorTypeCSRFExpired, "Security token expired. Please reload the page and try again."
	default:
		return ErrorTypeCSRFInvalid, "Security token invalid. Please reload the page and try again."
	}
}
