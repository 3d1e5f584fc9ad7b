// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the scs session manager and wraps it in an
// explicit per-request Session value passed to the auth and CSRF guards.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	_ "github.com/mattn/go-sqlite3" // SQLite driver for the session store
	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Options.Backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// CookieName is the session cookie name in development. Production uses the
// __Host- prefixed variant.
const CookieName = "relay_session"

// Options selects and configures the session backend.
type Options struct {
	Backend    string
	SQLitePath string
	RedisURL   string
	Prefix     string
	IsDev      bool
}

// NewManager creates a session manager with the requested backend. The
// returned close func releases backend resources.
func NewManager(opts Options) (*scs.SessionManager, func() error, error) {
	sm := scs.New()
	closer := func() error { return nil }

	switch opts.Backend {
	case "", BackendMemory:
		sm.Store = memstore.New()
	case BackendSQLite:
		db, store, err := openSQLite(opts.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		sm.Store = store
		closer = func() error {
			store.StopCleanup()
			return db.Close()
		}
	case BackendRedis:
		client, err := openRedis(opts.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		sm.Store = NewRedisStore(client, opts.Prefix)
		closer = client.Close
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", opts.Backend)
	}

	sm.Lifetime = 24 * time.Hour
	sm.Cookie.Name = CookieName
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Secure = !opts.IsDev
	if !opts.IsDev {
		sm.Cookie.Name = "__Host-" + CookieName
	}

	return sm, closer, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expiry REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);
`

func openSQLite(path string) (*sql.DB, *sqlite3store.SQLite3Store, error) {
	if path == "" {
		return nil, nil, errors.New("sqlite session path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating session directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, nil, fmt.Errorf("opening session database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("creating sessions table: %w", err)
	}
	return db, sqlite3store.New(db), nil
}

func openRedis(url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis URL is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

// Session is the session state of one request.
type Session struct {
	sm  *scs.SessionManager
	ctx context.Context
}

// New binds sm to a context that has already been loaded by sm.
func New(sm *scs.SessionManager, ctx context.Context) *Session {
	return &Session{sm: sm, ctx: ctx}
}

// FromRequest returns the session of r, which must have passed through
// sm.LoadAndSave.
func FromRequest(sm *scs.SessionManager, r *http.Request) *Session {
	return New(sm, r.Context())
}

// Context returns the session-bearing context.
func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) GetString(key string) string { return s.sm.GetString(s.ctx, key) }
func (s *Session) GetBool(key string) bool     { return s.sm.GetBool(s.ctx, key) }
func (s *Session) GetInt64(key string) int64   { return s.sm.GetInt64(s.ctx, key) }
func (s *Session) Exists(key string) bool      { return s.sm.Exists(s.ctx, key) }
func (s *Session) Put(key string, val any)     { s.sm.Put(s.ctx, key, val) }
func (s *Session) Remove(key string)           { s.sm.Remove(s.ctx, key) }

// GetInt64s returns an int64 slice value, or nil when absent.
func (s *Session) GetInt64s(key string) []int64 {
	v, _ := s.sm.Get(s.ctx, key).([]int64)
	return v
}

// PopString returns and removes a string value.
func (s *Session) PopString(key string) string { return s.sm.PopString(s.ctx, key) }

// RenewToken issues a new session token, keeping the data.
func (s *Session) RenewToken() error { return s.sm.RenewToken(s.ctx) }

// Destroy deletes the session and all of its data.
func (s *Session) Destroy() error { return s.sm.Destroy(s.ctx) }
