// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a custom slog handler that keeps an event log.
// It forwards logs at WARN level and above to an append-only JSON-lines file
// so that security rejections survive restarts.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Event categories.
const (
	CategoryAuth     = "auth"
	CategorySecurity = "security"
	CategoryContent  = "content"
	CategoryMenu     = "menu"
	CategoryTheme    = "theme"
	CategoryConfig   = "config"
	CategorySystem   = "system"
)

// Event levels as written to the event log.
const (
	LevelError   = "error"
	LevelWarning = "warning"
	LevelInfo    = "info"
)

// Event is one line of the event log.
type Event struct {
	Time     time.Time         `json:"time"`
	Level    string            `json:"level"`
	Category string            `json:"category"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// eventWriter serializes appends from all handlers derived from one root.
type eventWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (ew *eventWriter) write(e Event) error {
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	ew.mu.Lock()
	defer ew.mu.Unlock()
	_, err = ew.w.Write(line)
	return err
}

// FileEventHandler is a slog.Handler that wraps another handler and also
// writes WARN and ERROR level logs to the event log.
type FileEventHandler struct {
	inner  slog.Handler
	out    *eventWriter
	level  slog.Level // Minimum level to forward to the event log (default: WARN)
	attrs  []slog.Attr
	groups []string
}

// NewFileEventHandler creates a handler writing events to w.
func NewFileEventHandler(inner slog.Handler, w io.Writer) *FileEventHandler {
	return NewFileEventHandlerWithLevel(inner, w, slog.LevelWarn)
}

// NewFileEventHandlerWithLevel creates a handler with a custom minimum level.
func NewFileEventHandlerWithLevel(inner slog.Handler, w io.Writer, level slog.Level) *FileEventHandler {
	return &FileEventHandler{
		inner: inner,
		out:   &eventWriter{w: w},
		level: level,
	}
}

// OpenEventLog opens path for appending, creating parent directories.
func OpenEventLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- operator-configured path
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return f, nil
}

// Enabled implements slog.Handler.
func (h *FileEventHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.level
}

// Handle implements slog.Handler.
func (h *FileEventHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.inner.Enabled(ctx, r.Level) {
		if err := h.inner.Handle(ctx, r); err != nil {
			return err
		}
	}

	if r.Level >= h.level {
		// A broken event log must not break request handling.
		_ = h.out.write(h.event(r))
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *FileEventHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.inner = h.inner.WithAttrs(attrs)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, h.qualify(a))
	}
	return clone
}

// WithGroup implements slog.Handler.
func (h *FileEventHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.inner = h.inner.WithGroup(name)
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *FileEventHandler) clone() *FileEventHandler {
	return &FileEventHandler{
		inner:  h.inner,
		out:    h.out,
		level:  h.level,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

// qualify prefixes a key with the open groups. The category key is never
// prefixed.
func (h *FileEventHandler) qualify(a slog.Attr) slog.Attr {
	if len(h.groups) == 0 || a.Key == "category" {
		return a
	}
	return slog.Attr{Key: strings.Join(h.groups, ".") + "." + a.Key, Value: a.Value}
}

func (h *FileEventHandler) event(r slog.Record) Event {
	all := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	all = append(all, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		all = append(all, h.qualify(a))
		return true
	})

	return Event{
		Time:     r.Time,
		Level:    slogLevelToEventLevel(r.Level),
		Category: extractCategory(r.Message, all),
		Message:  r.Message,
		Metadata: extractMetadata(all),
	}
}

// slogLevelToEventLevel converts a slog.Level to an event log level.
func slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarning
	default:
		return LevelInfo
	}
}

// extractCategory uses the "category" attribute when present and otherwise
// infers one from the message.
func extractCategory(msg string, attrs []slog.Attr) string {
	for _, a := range attrs {
		if a.Key == "category" {
			if c := a.Value.String(); c != "" {
				return c
			}
		}
	}

	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "csrf") || strings.Contains(msg, "traversal") || strings.Contains(msg, "rejected"):
		return CategorySecurity
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login") || strings.Contains(msg, "logout") || strings.Contains(msg, "password"):
		return CategoryAuth
	case strings.Contains(msg, "menu"):
		return CategoryMenu
	case strings.Contains(msg, "theme") || strings.Contains(msg, "template"):
		return CategoryTheme
	case strings.Contains(msg, "page") || strings.Contains(msg, "content"):
		return CategoryContent
	case strings.Contains(msg, "config") || strings.Contains(msg, "setting"):
		return CategoryConfig
	default:
		return CategorySystem
	}
}

// extractMetadata collects attributes other than category as strings.
func extractMetadata(attrs []slog.Attr) map[string]string {
	var meta map[string]string
	for _, a := range attrs {
		if a.Key == "category" || a.Key == "" {
			continue
		}
		if meta == nil {
			meta = make(map[string]string, len(attrs))
		}
		meta[a.Key] = a.Value.Resolve().String()
	}
	return meta
}
