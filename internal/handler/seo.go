// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/relay/internal/seo"
)

// PageIndex lists content pages and their modification times.
type PageIndex interface {
	ListFiles(dir string) ([]string, error)
	ModTime(path string) (time.Time, error)
}

// SEOConfig configures an SEOHandler.
type SEOConfig struct {
	// SiteURL is the public origin; derived from each request when empty.
	SiteURL string
	// BasePath is the normalized prefix the site is served under.
	BasePath string
	// DisallowAll blocks all crawlers.
	DisallowAll bool
}

// SEOHandler serves robots.txt and sitemap.xml.
type SEOHandler struct {
	pages PageIndex
	cfg   SEOConfig
}

// NewSEOHandler creates a new SEOHandler.
func NewSEOHandler(pages PageIndex, cfg SEOConfig) *SEOHandler {
	return &SEOHandler{pages: pages, cfg: cfg}
}

// Robots handles GET /robots.txt.
func (h *SEOHandler) Robots(w http.ResponseWriter, r *http.Request) {
	robots := seo.Robots{
		SiteURL:     h.origin(r),
		BasePath:    h.cfg.BasePath,
		DisallowAll: h.cfg.DisallowAll,
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(robots.String()))
}

// Sitemap handles GET /sitemap.xml.
func (h *SEOHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	paths, err := h.pages.ListFiles("")
	if err != nil {
		logAndInternalError(w, "failed to list content for sitemap", "error", err)
		return
	}

	pages := make([]seo.SitemapPage, 0, len(paths))
	for _, p := range paths {
		page := seo.SitemapPage{Path: p}
		if mod, err := h.pages.ModTime(p); err == nil {
			page.UpdatedAt = mod
		} else {
			slog.Debug("sitemap page without modtime", "path", p, "error", err)
		}
		pages = append(pages, page)
	}

	data, err := seo.GenerateSitemap(strings.TrimSuffix(h.origin(r), "/")+h.cfg.BasePath, pages)
	if err != nil {
		logAndInternalError(w, "failed to build sitemap", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(data)
}

func (h *SEOHandler) origin(r *http.Request) string {
	if h.cfg.SiteURL != "" {
		return h.cfg.SiteURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
