// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageIndexStub struct {
	paths []string
	err   error
}

func (s pageIndexStub) ListFiles(string) ([]string, error) { return s.paths, s.err }

func (s pageIndexStub) ModTime(path string) (time.Time, error) {
	if path == "index" {
		return time.Time{}, errors.New("gone")
	}
	return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), nil
}

func TestSEOHandlerSitemapUsesConfiguredURL(t *testing.T) {
	h := NewSEOHandler(pageIndexStub{paths: []string{"about", "index"}}, SEOConfig{SiteURL: "https://relay.example"})

	rr := httptest.NewRecorder()
	h.Sitemap(rr, httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<loc>https://relay.example/about</loc>")
	assert.Contains(t, body, "<lastmod>2025-05-01T00:00:00Z</lastmod>")
	assert.Contains(t, body, "<loc>https://relay.example/</loc>")
}

func TestSEOHandlerSitemapListError(t *testing.T) {
	h := NewSEOHandler(pageIndexStub{err: errors.New("disk")}, SEOConfig{})

	rr := httptest.NewRecorder()
	h.Sitemap(rr, httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestSEOHandlerRobots(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/robots.txt", nil)
	req.Host = "site.test"
	NewSEOHandler(pageIndexStub{}, SEOConfig{}).Robots(rr, req)

	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "Disallow: /admin")
	assert.Contains(t, rr.Body.String(), "Sitemap: http://site.test/sitemap.xml")

	rr = httptest.NewRecorder()
	NewSEOHandler(pageIndexStub{}, SEOConfig{SiteURL: "https://relay.example", DisallowAll: true}).Robots(rr, req)
	assert.Contains(t, rr.Body.String(), "Disallow: /\n")
	assert.NotContains(t, rr.Body.String(), "Sitemap:")
}

func TestSEOHandlerBasePath(t *testing.T) {
	h := NewSEOHandler(pageIndexStub{paths: []string{"index", "docs/index", "about"}}, SEOConfig{
		SiteURL:  "https://example.com/",
		BasePath: "/relay",
	})

	rr := httptest.NewRecorder()
	h.Sitemap(rr, httptest.NewRequest(http.MethodGet, "/relay/sitemap.xml", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<loc>https://example.com/relay/</loc>")
	assert.Contains(t, body, "<loc>https://example.com/relay/docs/</loc>")
	assert.Contains(t, body, "<loc>https://example.com/relay/about</loc>")

	rr = httptest.NewRecorder()
	h.Robots(rr, httptest.NewRequest(http.MethodGet, "/relay/robots.txt", nil))
	assert.Contains(t, rr.Body.String(), "Disallow: /relay/admin\n")
	assert.Contains(t, rr.Body.String(), "Sitemap: https://example.com/relay/sitemap.xml\n")
}
