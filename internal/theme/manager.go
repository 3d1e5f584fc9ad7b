// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package theme

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/olegiv/relay/internal/menu"
	"github.com/olegiv/relay/internal/store"
	"github.com/olegiv/relay/internal/util"
)

// Settings is the settings access the manager needs to read and switch
// the active theme.
type Settings interface {
	Load() store.Settings
	Set(key, value string) error
}

// Manager resolves themes and renders their templates. A parsed template
// is reused until one of its files changes size or modification time.
type Manager struct {
	themesDir string
	settings  Settings
	logger    *slog.Logger

	mu       sync.RWMutex
	cache    map[string]cachedTemplate
	basePath string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewManager creates a manager for themes in themesDir.
func NewManager(themesDir string, settings Settings, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		themesDir: themesDir,
		settings:  settings,
		logger:    logger,
		cache:     make(map[string]cachedTemplate),
	}
}

type cachedTemplate struct {
	tmpl  *template.Template
	stamp string
}

// SetBasePath sets the prefix the url template func puts in front of
// root-relative paths.
func (m *Manager) SetBasePath(base string) {
	m.mu.Lock()
	m.basePath = base
	m.mu.Unlock()
}

// BasePath returns the prefix set by SetBasePath.
func (m *Manager) BasePath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.basePath
}

// ThemesDir returns the themes directory path.
func (m *Manager) ThemesDir() string {
	return m.themesDir
}

func (m *Manager) themePath(name string) (string, error) {
	safe, err := util.SanitizeName(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrThemeNotFound, name)
	}
	return filepath.Join(m.themesDir, safe), nil
}

// List returns all directories containing a theme.json, sorted by name.
func (m *Manager) List() []Info {
	entries, err := os.ReadDir(m.themesDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("failed to read themes directory", "path", m.themesDir, "error", err)
		}
		return nil
	}

	active := m.Active()
	var infos []Info
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !util.IsValidName(name) {
			continue
		}
		meta, err := m.Metadata(name)
		if err != nil {
			if !errors.Is(err, ErrThemeNotFound) {
				m.logger.Warn("skipping theme with invalid metadata", "theme", name, "error", err)
			}
			continue
		}
		infos = append(infos, Info{Name: name, Metadata: meta, IsActive: name == active})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Metadata loads theme.json of the named theme.
func (m *Manager) Metadata(name string) (Metadata, error) {
	dir, err := m.themePath(name)
	if err != nil {
		return Metadata{}, err
	}
	meta, err := LoadMetadata(filepath.Join(dir, "theme.json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Metadata{}, fmt.Errorf("%w: %s", ErrThemeNotFound, name)
		}
		return Metadata{}, err
	}
	return meta, nil
}

// Validate checks that a theme has theme.json with the required keys, a
// templates directory and a main template.
func (m *Manager) Validate(name string) error {
	dir, err := m.themePath(name)
	if err != nil {
		return err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrThemeNotFound, name)
	}
	if info, err := os.Stat(filepath.Join(dir, "templates")); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s has no templates directory", ErrInvalidMetadata, name)
	}
	if _, err := os.Stat(filepath.Join(dir, "templates", MainTemplate+".html")); err != nil {
		return fmt.Errorf("%w: %s has no %s template", ErrTemplateNotFound, name, MainTemplate)
	}
	_, err = m.Metadata(name)
	return err
}

// Active returns the configured theme when its directory exists, otherwise
// DefaultTheme.
func (m *Manager) Active() string {
	name := m.settings.Load().ActiveTheme
	dir, err := m.themePath(name)
	if err == nil {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			return name
		}
	}
	m.logger.Warn("active theme unavailable, using default", "theme", name)
	return DefaultTheme
}

// SetActive validates and activates a theme.
func (m *Manager) SetActive(name string) error {
	if err := m.Validate(name); err != nil {
		return err
	}
	if err := m.settings.Set(store.KeyActiveTheme, name); err != nil {
		return err
	}
	m.logger.Info("active theme set", "theme", name)
	return nil
}

// MenuRenderer returns the menu renderer requested by the theme.
func (m *Manager) MenuRenderer(themeName string) menu.Renderer {
	meta, err := m.Metadata(themeName)
	if err != nil {
		return menu.RendererFor("")
	}
	return menu.RendererFor(meta.MenuRenderer)
}

// TemplatePath resolves a template of a theme to a real file path inside
// that theme's templates directory.
func (m *Manager) TemplatePath(themeName, templateName string) (string, error) {
	if templateName == "" {
		templateName = MainTemplate
	}
	dir, err := m.themePath(themeName)
	if err != nil {
		return "", err
	}
	safe, err := util.SanitizeName(templateName)
	if err != nil {
		m.logger.Warn("rejected template name", "category", "security", "template", templateName)
		return "", fmt.Errorf("%w: %q", ErrTemplateNotFound, templateName)
	}
	path, err := util.ResolveWithin(filepath.Join(dir, "templates"), safe+".html")
	if err != nil {
		return "", fmt.Errorf("%w: %s/%s", ErrTemplateNotFound, themeName, safe)
	}
	return path, nil
}

// StaticDir returns the static files directory of a theme.
func (m *Manager) StaticDir(themeName string) (string, error) {
	dir, err := m.themePath(themeName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "static"), nil
}

// Render executes a template of the active theme into w. Unknown templates
// fall back to the main template; ErrTemplateNotFound is returned only when
// main is missing too.
func (m *Manager) Render(w io.Writer, templateName string, data PageData) error {
	themeName := m.Active()
	if data.ThemeName == "" {
		data.ThemeName = themeName
	}

	path, err := m.TemplatePath(themeName, templateName)
	if err != nil {
		if templateName == MainTemplate || templateName == "" {
			return err
		}
		m.logger.Warn("template not found, falling back to main", "theme", themeName, "template", templateName)
		path, err = m.TemplatePath(themeName, MainTemplate)
		if err != nil {
			return err
		}
	}

	tmpl, err := m.parse(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, filepath.Base(path), data); err != nil {
		return fmt.Errorf("executing template %s: %w", filepath.Base(path), err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// parse returns the template set for path together with the theme's
// partials. A cached set is reused only while none of its files changed
// on disk.
func (m *Manager) parse(path string) (*template.Template, error) {
	files := []string{path}
	partials, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "partials", "*.html"))
	files = append(files, partials...)

	stamp, err := fileStamp(files)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, filepath.Base(path), err)
	}

	m.mu.RLock()
	entry, ok := m.cache[path]
	m.mu.RUnlock()
	if ok && entry.stamp == stamp {
		return entry.tmpl, nil
	}

	tmpl, err := template.New(filepath.Base(path)).Funcs(m.funcs()).ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", filepath.Base(path), err)
	}

	m.mu.Lock()
	m.cache[path] = cachedTemplate{tmpl: tmpl, stamp: stamp}
	m.mu.Unlock()
	return tmpl, nil
}

// fileStamp identifies the current version of files by name, size and
// modification time.
func fileStamp(files []string) (string, error) {
	var b strings.Builder
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s:%d:%d;", f, info.Size(), info.ModTime().UnixNano())
	}
	return b.String(), nil
}

// funcs returns the helpers available to theme templates.
func (m *Manager) funcs() template.FuncMap {
	return template.FuncMap{
		"url": func(p string) string { return util.URLWithBase(m.BasePath(), p) },
	}
}

// Invalidate drops all parsed templates.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cache = make(map[string]cachedTemplate)
	m.mu.Unlock()
}

// Watch drops parsed templates as soon as a file below the themes
// directory changes. It stops when ctx is done or Close is called.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating theme watcher: %w", err)
	}

	err = filepath.WalkDir(m.themesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching themes: %w", err)
	}

	m.mu.Lock()
	m.watcher = watcher
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go m.watchLoop(ctx, watcher, done)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			_ = watcher.Close()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			m.logger.Debug("theme file changed", "path", event.Name, "op", event.Op.String())
			m.Invalidate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("theme watcher error", "error", err)
		}
	}
}

// Close stops the watcher started by Watch.
func (m *Manager) Close() error {
	m.mu.Lock()
	watcher, done := m.watcher, m.done
	m.watcher = nil
	m.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}
