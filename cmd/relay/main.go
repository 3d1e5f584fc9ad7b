// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olegiv/relay/internal/config"
	"github.com/olegiv/relay/internal/logging"
	"github.com/olegiv/relay/internal/session"
	"github.com/olegiv/relay/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Relay - flat-file content management\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  RELAY_ROOT             Site directory (default: .)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  RELAY_SERVER_HOST      Listen host (default: localhost)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  RELAY_SERVER_PORT      Listen port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  RELAY_ENV              Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  RELAY_SESSION_STORE    Session backend: memory|sqlite|redis (default: memory)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  RELAY_REDIS_URL        Redis URL for the redis session backend\n")
		_, _ = fmt.Fprintf(os.Stderr, "  RELAY_LOGIN_IP_RATE    Per-IP login attempts per second, 0 disables (default: 0)\n")
		_, _ = fmt.Fprintf(os.Stderr, "\nCreate a site with: relay-admin init\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("relay %s\n", version.Current())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(textHandler))

	// WARN and ERROR records are also kept as JSON lines for auditing.
	eventLog, err := logging.OpenEventLog(cfg.SecurityLogPath())
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer func() {
		if err := eventLog.Close(); err != nil {
			slog.Error("error closing event log", "error", err)
		}
	}()
	slog.SetDefault(slog.New(logging.NewFileEventHandler(textHandler, eventLog)))
	slog.Info("event log enabled", "path", cfg.SecurityLogPath(), "min_level", "warn")

	sessionManager, closeSessions, err := session.NewManager(session.Options{
		Backend:    cfg.SessionStore,
		SQLitePath: cfg.SessionDBPath(),
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.SessionPrefix,
		IsDev:      cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing sessions: %w", err)
	}
	defer func() {
		if err := closeSessions(); err != nil {
			slog.Error("error closing session store", "error", err)
		}
	}()
	slog.Info("session store ready", "backend", cfg.SessionStore)

	// No tokens are derived from this key.
	crossOriginKey := make([]byte, 32)
	if _, err := rand.Read(crossOriginKey); err != nil {
		return fmt.Errorf("generating cross-origin key: %w", err)
	}

	a, err := newApp(cfg, sessionManager, crossOriginKey)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if cfg.ShouldWatchThemes() {
		if err := a.themes.Watch(ctx); err != nil {
			slog.Warn("theme watcher unavailable, templates are cached until restart", "error", err)
		} else {
			slog.Info("watching themes for changes", "dir", cfg.ThemesDir())
		}
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           a.routes(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env,
			"root", cfg.Root, "version", version.Current().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
