// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package seo builds robots.txt and sitemap.xml for the content pages.
package seo

import (
	"encoding/xml"
	"strings"
	"time"
)

// XMLNamespace is the sitemap XML namespace.
const XMLNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// ChangeFreq represents the change frequency of a URL.
type ChangeFreq string

// Change frequency values used for content pages.
const (
	ChangeFreqDaily  ChangeFreq = "daily"
	ChangeFreqWeekly ChangeFreq = "weekly"
)

// SitemapURL represents a single URL entry in the sitemap.
type SitemapURL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
}

// Sitemap represents the complete sitemap document.
type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapPage is a content page listed in the sitemap. Path is the content
// path without extension; "index" is the homepage.
type SitemapPage struct {
	Path      string
	UpdatedAt time.Time
}

// SitemapBuilder builds sitemap XML from content pages.
type SitemapBuilder struct {
	siteURL string
	urls    []SitemapURL
}

// NewSitemapBuilder creates a new sitemap builder. A trailing slash on
// siteURL is ignored.
func NewSitemapBuilder(siteURL string) *SitemapBuilder {
	return &SitemapBuilder{
		siteURL: strings.TrimSuffix(siteURL, "/"),
		urls:    make([]SitemapURL, 0),
	}
}

// AddPage adds a page to the sitemap. Index pages map to their directory
// URL, with the site index at "/".
func (b *SitemapBuilder) AddPage(page SitemapPage) {
	url := SitemapURL{
		Loc:        b.siteURL + "/" + page.Path,
		ChangeFreq: ChangeFreqWeekly,
		Priority:   "0.8",
	}
	switch {
	case page.Path == "index":
		url.Loc = b.siteURL + "/"
		url.ChangeFreq = ChangeFreqDaily
		url.Priority = "1.0"
	case strings.HasSuffix(page.Path, "/index"):
		url.Loc = b.siteURL + "/" + strings.TrimSuffix(page.Path, "index")
	}
	if !page.UpdatedAt.IsZero() {
		url.LastMod = page.UpdatedAt.UTC().Format(time.RFC3339)
	}
	b.urls = append(b.urls, url)
}

// AddPages adds multiple pages to the sitemap.
func (b *SitemapBuilder) AddPages(pages []SitemapPage) {
	for _, p := range pages {
		b.AddPage(p)
	}
}

// Build generates the sitemap XML.
func (b *SitemapBuilder) Build() ([]byte, error) {
	sitemap := Sitemap{
		XMLNS: XMLNamespace,
		URLs:  b.urls,
	}

	output := []byte(xml.Header)
	xmlBytes, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(output, xmlBytes...), nil
}

// GenerateSitemap is a convenience function to generate a sitemap from pages.
func GenerateSitemap(siteURL string, pages []SitemapPage) ([]byte, error) {
	builder := NewSitemapBuilder(siteURL)
	builder.AddPages(pages)
	return builder.Build()
}
