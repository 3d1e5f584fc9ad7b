// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/relay/internal/testutil"
)

type staticDirsStub map[string]string

func (s staticDirsStub) StaticDir(name string) (string, error) {
	dir, ok := s[name]
	if !ok {
		return "", errors.New("theme not found")
	}
	return dir, nil
}

func newStaticRouter(t *testing.T) (http.Handler, string, string) {
	t.Helper()

	root := t.TempDir()
	assets := filepath.Join(root, "assets")
	themeStatic := filepath.Join(root, "themes", "plain", "static")
	testutil.WriteFile(t, filepath.Join(assets, "img", "logo.svg"), "<svg/>")
	testutil.WriteFile(t, filepath.Join(themeStatic, "css", "site.css"), "body{}")
	testutil.WriteFile(t, filepath.Join(root, "config", "users.json"), `{"admin":{}}`)

	h := NewStaticHandler(assets, staticDirsStub{"plain": themeStatic}, nil)
	r := chi.NewRouter()
	r.Get("/assets/*", h.Assets)
	r.Get("/themes/{theme}/static/*", h.ThemeStatic)
	return r, root, assets
}

func TestStaticHandlerServesFiles(t *testing.T) {
	r, _, _ := newStaticRouter(t)

	for path, want := range map[string]string{
		"/assets/img/logo.svg":             "<svg/>",
		"/themes/plain/static/css/site.css": "body{}",
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, want, w.Body.String(), path)
	}
}

func TestStaticHandlerRefusesEscapes(t *testing.T) {
	r, root, assets := newStaticRouter(t)
	require.NoError(t, os.Symlink(filepath.Join(root, "config"), filepath.Join(assets, "linked")))

	for _, path := range []string{
		"/assets/",
		"/assets/img",
		"/assets/missing.png",
		"/assets/../config/users.json",
		"/assets/linked/users.json",
		"/themes/plain/static/../../../config/users.json",
		"/themes/other/static/css/site.css",
	} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.NotContains(t, w.Body.String(), "admin")
		})
	}
}
