// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRobotsString(t *testing.T) {
	tests := []struct {
		name   string
		robots Robots
		want   string
	}{
		{
			name:   "domain root",
			robots: Robots{SiteURL: "https://example.com/"},
			want: "User-agent: *\n" +
				"Disallow: /admin\n" +
				"Disallow: /health\n" +
				"Allow: /\n" +
				"\nSitemap: https://example.com/sitemap.xml\n",
		},
		{
			name:   "subdirectory",
			robots: Robots{SiteURL: "https://example.com", BasePath: "/docs/relay"},
			want: "User-agent: *\n" +
				"Disallow: /docs/relay/admin\n" +
				"Disallow: /docs/relay/health\n" +
				"Allow: /docs/relay/\n" +
				"\nSitemap: https://example.com/docs/relay/sitemap.xml\n",
		},
		{
			name:   "no site url",
			robots: Robots{BasePath: "/relay"},
			want:   "User-agent: *\nDisallow: /relay/admin\nDisallow: /relay/health\nAllow: /relay/\n",
		},
		{
			name:   "staging",
			robots: Robots{SiteURL: "https://staging.example.com", DisallowAll: true},
			want:   "User-agent: *\nDisallow: /\n",
		},
		{
			name:   "staging in subdirectory",
			robots: Robots{SiteURL: "https://example.com", BasePath: "/relay", DisallowAll: true},
			want:   "User-agent: *\nDisallow: /relay/\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.robots.String())
		})
	}
}

func TestRobotsSitemapURL(t *testing.T) {
	assert.Empty(t, Robots{BasePath: "/relay"}.SitemapURL())
	assert.Equal(t, "http://site.test/sitemap.xml", Robots{SiteURL: "http://site.test"}.SitemapURL())
	assert.Equal(t, "http://site.test/relay/sitemap.xml",
		Robots{SiteURL: "http://site.test/", BasePath: "/relay"}.SitemapURL())
}
