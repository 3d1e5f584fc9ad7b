// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"fmt"
	"strings"

	"github.com/olegiv/relay/internal/util"
)

// privatePaths are site routes crawlers should skip, relative to the base path.
var privatePaths = []string{"/admin", "/health"}

// Robots describes the robots.txt of a Relay site.
type Robots struct {
	// SiteURL is the public origin, e.g. "https://example.com". The Sitemap
	// line is left out when it is empty.
	SiteURL string
	// BasePath is the normalized prefix the site is served under.
	BasePath string
	// DisallowAll blocks every crawler from the whole site.
	DisallowAll bool
}

// String renders the robots.txt body.
func (r Robots) String() string {
	var sb strings.Builder
	sb.WriteString("User-agent: *\n")

	if r.DisallowAll {
		fmt.Fprintf(&sb, "Disallow: %s\n", util.URLWithBase(r.BasePath, "/"))
		return sb.String()
	}

	for _, p := range privatePaths {
		fmt.Fprintf(&sb, "Disallow: %s\n", util.URLWithBase(r.BasePath, p))
	}
	fmt.Fprintf(&sb, "Allow: %s\n", util.URLWithBase(r.BasePath, "/"))

	if loc := r.SitemapURL(); loc != "" {
		fmt.Fprintf(&sb, "\nSitemap: %s\n", loc)
	}
	return sb.String()
}

// SitemapURL returns the absolute sitemap.xml address, or "" without a SiteURL.
func (r Robots) SitemapURL() string {
	if r.SiteURL == "" {
		return ""
	}
	return strings.TrimSuffix(r.SiteURL, "/") + util.URLWithBase(r.BasePath, "/sitemap.xml")
}
