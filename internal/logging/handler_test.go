// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func readEvents(t *testing.T, data []byte) []Event {
	t.Helper()
	var events []Event
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var e Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("invalid event line %q: %v", sc.Text(), err)
		}
		events = append(events, e)
	}
	return events
}

func TestFileEventHandler_Levels(t *testing.T) {
	tests := []struct {
		name      string
		log       func(*slog.Logger)
		wantLevel string
		captured  bool
	}{
		{"error", func(l *slog.Logger) { l.Error("write failed", "path", "/x") }, LevelError, true},
		{"warn", func(l *slog.Logger) { l.Warn("slow request", "duration_ms", 5000) }, LevelWarning, true},
		{"info", func(l *slog.Logger) { l.Info("server started", "port", 8080) }, "", false},
		{"debug", func(l *slog.Logger) { l.Debug("processing request") }, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(slog.New(NewFileEventHandler(discardHandler{}, &buf)))

			events := readEvents(t, buf.Bytes())
			if !tt.captured {
				if len(events) != 0 {
					t.Fatalf("expected no events, got %d", len(events))
				}
				return
			}
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			if events[0].Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", events[0].Level, tt.wantLevel)
			}
		})
	}
}

func TestFileEventHandler_CustomLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewFileEventHandlerWithLevel(discardHandler{}, &buf, slog.LevelInfo))
	logger.Info("server started", "port", 8080)

	events := readEvents(t, buf.Bytes())
	if len(events) != 1 {
		t.Fatalf("expected 1 event with custom INFO level, got %d", len(events))
	}
	if events[0].Level != LevelInfo {
		t.Errorf("Level = %q, want %q", events[0].Level, LevelInfo)
	}
}

func TestFileEventHandler_Category(t *testing.T) {
	tests := []struct {
		msg   string
		attrs []any
		want  string
	}{
		{"anything", []any{"category", "security"}, CategorySecurity},
		{"login failed", nil, CategoryAuth},
		{"csrf token mismatch", nil, CategorySecurity},
		{"menu save failed", nil, CategoryMenu},
		{"template not found", nil, CategoryTheme},
		{"content file unreadable", nil, CategoryContent},
		{"settings file unreadable", nil, CategoryConfig},
		{"disk full", nil, CategorySystem},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			var buf bytes.Buffer
			slog.New(NewFileEventHandler(discardHandler{}, &buf)).Warn(tt.msg, tt.attrs...)

			events := readEvents(t, buf.Bytes())
			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			if events[0].Category != tt.want {
				t.Errorf("Category = %q, want %q", events[0].Category, tt.want)
			}
		})
	}
}

func TestFileEventHandler_Metadata(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewFileEventHandler(discardHandler{}, &buf)).
		With("request_id", "abc").
		WithGroup("req")
	logger.Warn("rejected content path", "category", "security", "path", "../etc")

	events := readEvents(t, buf.Bytes())
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Message != "rejected content path" {
		t.Errorf("Message = %q", e.Message)
	}
	if e.Metadata["request_id"] != "abc" {
		t.Errorf("request_id = %q, want %q", e.Metadata["request_id"], "abc")
	}
	if e.Metadata["req.path"] != "../etc" {
		t.Errorf("req.path = %q, want %q", e.Metadata["req.path"], "../etc")
	}
	if _, ok := e.Metadata["category"]; ok {
		t.Error("category must not be repeated in metadata")
	}
}

func TestFileEventHandler_InnerStillReceives(t *testing.T) {
	var inner, events bytes.Buffer
	h := NewFileEventHandler(slog.NewTextHandler(&inner, &slog.HandlerOptions{Level: slog.LevelInfo}), &events)
	logger := slog.New(h)

	logger.Info("hello")
	logger.Warn("careful")

	if !bytes.Contains(inner.Bytes(), []byte("msg=hello")) || !bytes.Contains(inner.Bytes(), []byte("msg=careful")) {
		t.Errorf("inner handler output = %q", inner.String())
	}
	if got := len(readEvents(t, events.Bytes())); got != 1 {
		t.Errorf("expected 1 event, got %d", got)
	}
}

func TestFileEventHandler_WarnCapturedWhenInnerQuieter(t *testing.T) {
	var inner, events bytes.Buffer
	h := NewFileEventHandler(slog.NewTextHandler(&inner, &slog.HandlerOptions{Level: slog.LevelError}), &events)
	slog.New(h).Warn("login locked")

	if inner.Len() != 0 {
		t.Errorf("inner handler should filter WARN, got %q", inner.String())
	}
	if got := len(readEvents(t, events.Bytes())); got != 1 {
		t.Errorf("expected 1 event, got %d", got)
	}
}

func TestFileEventHandler_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewFileEventHandler(discardHandler{}, &buf))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Warn("concurrent", "i", i)
		}(i)
	}
	wg.Wait()

	if got := len(readEvents(t, buf.Bytes())); got != 50 {
		t.Errorf("expected 50 events, got %d", got)
	}
}

func TestOpenEventLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "security.log")
	f, err := OpenEventLog(path)
	if err != nil {
		t.Fatalf("OpenEventLog: %v", err)
	}
	slog.New(NewFileEventHandler(discardHandler{}, f)).Warn("first")
	_ = f.Close()

	f, err = OpenEventLog(path)
	if err != nil {
		t.Fatalf("OpenEventLog reopen: %v", err)
	}
	slog.New(NewFileEventHandler(discardHandler{}, f)).Warn("second")
	_ = f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	events := readEvents(t, data)
	if len(events) != 2 || events[0].Message != "first" || events[1].Message != "second" {
		t.Errorf("events = %+v", events)
	}
}
