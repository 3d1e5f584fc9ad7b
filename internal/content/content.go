// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package content loads Markdown pages with frontmatter from the content
// directory and renders them to HTML.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/olegiv/relay/internal/util"
)

// ErrNotFound is returned for pages that are missing or whose path was
// rejected.
var ErrNotFound = errors.New("content not found")

// Extension is the file extension of content files.
const Extension = ".md"

// Page is a rendered content file.
type Page struct {
	Path     string
	Metadata map[string]string
	HTML     template.HTML
}

// Title returns the page title from its metadata or fallback.
func (p *Page) Title(fallback string) string {
	return Title(p.Metadata, fallback)
}

// Options configures a Store.
type Options struct {
	// SafeMode sanitizes rendered HTML. When off, raw HTML in Markdown is
	// passed through, which is only acceptable while content files are
	// edited by trusted people with filesystem access.
	SafeMode bool
}

// Store reads pages from a content root.
type Store struct {
	root   string
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewStore returns a store for the content directory root.
func NewStore(root string, opts Options) *Store {
	s := &Store{
		root: root,
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Footnote,
				extension.DefinitionList,
			),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
	if opts.SafeMode {
		s.policy = bluemonday.UGCPolicy()
	}
	return s
}

// Root returns the content directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) resolve(path string) (string, string, error) {
	clean, err := util.SanitizeContentPath(path)
	if err != nil {
		slog.Warn("rejected content path", "category", "security", "path", path)
		return "", "", err
	}
	file, err := util.ResolveWithin(s.root, clean+Extension)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("content path escapes root", "category", "security", "path", clean)
		}
		return "", "", err
	}
	return clean, file, nil
}

// Exists reports whether path names a loadable page.
func (s *Store) Exists(path string) bool {
	_, _, err := s.resolve(path)
	return err == nil
}

// ModTime returns the last modification time of the page at path.
func (s *Store) ModTime(path string) (time.Time, error) {
	_, file, err := s.resolve(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	info, err := os.Stat(file)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return info.ModTime(), nil
}

// Load reads, parses and renders the page at path.
func (s *Store) Load(path string) (*Page, error) {
	clean, file, err := s.resolve(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	data, err := os.ReadFile(file) // #nosec G304 -- resolved within content root
	if err != nil {
		slog.Error("failed to read content file", "path", file, "error", err)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	meta, body := ParseFrontmatter(string(data))
	rendered, err := s.Render(body)
	if err != nil {
		slog.Error("failed to render content", "path", file, "error", err)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	return &Page{Path: clean, Metadata: meta, HTML: rendered}, nil
}

// Render converts Markdown to HTML.
func (s *Store) Render(markdown string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	if s.policy != nil {
		return template.HTML(s.policy.SanitizeBytes(buf.Bytes())), nil // #nosec G203 -- sanitized
	}
	return template.HTML(buf.String()), nil //nolint:gosec // trusted local markdown files
}

// ListFiles returns the content paths of all pages below dir (relative to
// the content root, "" for everything), without extension and sorted.
// Files whose names are not valid content paths are skipped, as are
// symlinks leading outside the root.
func (s *Store) ListFiles(dir string) ([]string, error) {
	start := s.root
	if dir != "" && strings.Trim(dir, "/") != "" {
		clean, err := util.SanitizeContentPath(dir)
		if err != nil {
			return nil, err
		}
		start = filepath.Join(s.root, filepath.FromSlash(clean))
	}

	info, err := os.Stat(start)
	if err != nil || !info.IsDir() {
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(d.Name()) != Extension {
			return nil
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return nil
		}
		rel = strings.TrimSuffix(filepath.ToSlash(rel), Extension)

		if _, err := util.SanitizeContentPath(rel); err != nil {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if _, err := util.ResolveWithin(s.root, rel+Extension); err != nil {
				slog.Warn("skipping content symlink outside root", "category", "security", "path", rel)
				return nil
			}
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing content: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// ParseFrontmatter splits a document into metadata and body. Frontmatter is
// a block of "key: value" lines between two lines of exactly "---" at the
// start of the document. Without a closing line the whole document is body.
// The returned body is trimmed.
func ParseFrontmatter(doc string) (map[string]string, string) {
	meta := map[string]string{}

	lines := strings.SplitAfter(doc, "\n")
	if len(lines) == 0 || trimEOL(lines[0]) != "---" || !strings.HasSuffix(lines[0], "\n") {
		return meta, strings.TrimSpace(doc)
	}

	closing := -1
	for i := 1; i < len(lines); i++ {
		if trimEOL(lines[i]) == "---" {
			closing = i
			break
		}
	}
	if closing < 0 {
		return meta, strings.TrimSpace(doc)
	}

	for _, line := range lines[1:closing] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		meta[key] = strings.Trim(strings.TrimSpace(value), `"'`)
	}

	body := strings.Join(lines[closing+1:], "")
	return meta, strings.TrimSpace(body)
}

func trimEOL(s string) string {
	return strings.TrimSuffix(strings.TrimSuffix(s, "\n"), "\r")
}

// Title returns metadata["title"] or fallback.
func Title(metadata map[string]string, fallback string) string {
	if t, ok := metadata["title"]; ok && t != "" {
		return t
	}
	return fallback
}
