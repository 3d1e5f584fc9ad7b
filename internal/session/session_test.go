// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/redis/go-redis/v9"
)

func TestNewManager_DevMode(t *testing.T) {
	sm, closeFn, err := NewManager(Options{Backend: BackendMemory, IsDev: true})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer func() { _ = closeFn() }()

	if sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = false in dev mode")
	}
	if sm.Cookie.Name != CookieName {
		t.Errorf("Cookie.Name = %q, want %q", sm.Cookie.Name, CookieName)
	}
}

func TestNewManager_ProductionMode(t *testing.T) {
	sm, closeFn, err := NewManager(Options{IsDev: false})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer func() { _ = closeFn() }()

	if !sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = true in production mode")
	}
	if sm.Cookie.Name != "__Host-"+CookieName {
		t.Errorf("Cookie.Name = %q, want __Host- prefix", sm.Cookie.Name)
	}
	if sm.Cookie.Path != "/" {
		t.Errorf("Cookie.Path = %q, want /", sm.Cookie.Path)
	}
}

func TestNewManager_SessionSettings(t *testing.T) {
	sm, _, err := NewManager(Options{IsDev: true})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if sm.Lifetime != 24*time.Hour {
		t.Errorf("Lifetime = %v, want 24h", sm.Lifetime)
	}
	if !sm.Cookie.HttpOnly {
		t.Error("expected Cookie.HttpOnly = true")
	}
	if sm.Cookie.SameSite != http.SameSiteStrictMode {
		t.Errorf("SameSite = %v, want Strict", sm.Cookie.SameSite)
	}
}

func TestNewManager_UnknownBackend(t *testing.T) {
	if _, _, err := NewManager(Options{Backend: "etcd"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewManager_RedisRequiresURL(t *testing.T) {
	if _, _, err := NewManager(Options{Backend: BackendRedis}); err == nil {
		t.Error("expected error without redis URL")
	}
}

// roundTrip stores values in one request and reads them back in another.
func roundTrip(t *testing.T, sm *scs.SessionManager) {
	t.Helper()

	ctx, err := sm.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := New(sm, ctx)
	s.Put("user_username", "admin")
	s.Put("user_authenticated", true)
	s.Put("user_login_time", int64(1700000000))
	s.Put("login_attempts", []int64{1, 2, 3})

	token, _, err := sm.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	ctx2, err := sm.Load(context.Background(), token)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s2 := New(sm, ctx2)

	if got := s2.GetString("user_username"); got != "admin" {
		t.Errorf("GetString = %q, want admin", got)
	}
	if !s2.GetBool("user_authenticated") {
		t.Error("GetBool = false, want true")
	}
	if got := s2.GetInt64("user_login_time"); got != 1700000000 {
		t.Errorf("GetInt64 = %d, want 1700000000", got)
	}
	if got := s2.GetInt64s("login_attempts"); len(got) != 3 || got[2] != 3 {
		t.Errorf("GetInt64s = %v, want [1 2 3]", got)
	}
	if got := s2.GetInt64s("missing"); got != nil {
		t.Errorf("GetInt64s(missing) = %v, want nil", got)
	}

	s2.Remove("user_username")
	if s2.Exists("user_username") {
		t.Error("expected key to be removed")
	}
	if err := s2.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if s2.GetBool("user_authenticated") {
		t.Error("expected destroyed session to be empty")
	}
}

func TestSession_MemoryRoundTrip(t *testing.T) {
	sm, _, err := NewManager(Options{Backend: BackendMemory, IsDev: true})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	roundTrip(t, sm)
}

func TestSession_SQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "sessions.db")
	sm, closeFn, err := NewManager(Options{Backend: BackendSQLite, SQLitePath: path, IsDev: true})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer func() { _ = closeFn() }()

	roundTrip(t, sm)
}

func TestSession_RenewTokenKeepsData(t *testing.T) {
	sm, _, _ := NewManager(Options{IsDev: true})

	ctx, _ := sm.Load(context.Background(), "")
	s := New(sm, ctx)
	s.Put("login_attempts", []int64{42})
	first, _, err := sm.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	ctx, _ = sm.Load(context.Background(), first)
	s = New(sm, ctx)
	if err := s.RenewToken(); err != nil {
		t.Fatalf("RenewToken: %v", err)
	}
	second, _, err := sm.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if first == second {
		t.Error("expected a new token after RenewToken")
	}
	if got := s.GetInt64s("login_attempts"); len(got) != 1 {
		t.Errorf("data lost on renew: %v", got)
	}
}

// skipIfNoRedis skips the test if Redis is not configured.
func skipIfNoRedis(t *testing.T) string {
	url := os.Getenv("RELAY_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: RELAY_TEST_REDIS_URL not set")
	}
	return url
}

func TestRedisStore(t *testing.T) {
	url := skipIfNoRedis(t)

	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()

	store := NewRedisStore(client, "relay:test:")
	ctx := context.Background()

	if err := store.CommitCtx(ctx, "tok", []byte("data"), time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("CommitCtx: %v", err)
	}
	b, found, err := store.FindCtx(ctx, "tok")
	if err != nil || !found || string(b) != "data" {
		t.Errorf("FindCtx = %q, %v, %v", b, found, err)
	}

	if err := store.DeleteCtx(ctx, "tok"); err != nil {
		t.Fatalf("DeleteCtx: %v", err)
	}
	if _, found, _ := store.FindCtx(ctx, "tok"); found {
		t.Error("expected token to be deleted")
	}

	if err := store.Commit("old", []byte("x"), time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Commit expired: %v", err)
	}
	if _, found, _ := store.Find("old"); found {
		t.Error("expired commit must not be stored")
	}
}

func TestRedisManagerRoundTrip(t *testing.T) {
	url := skipIfNoRedis(t)

	sm, closeFn, err := NewManager(Options{Backend: BackendRedis, RedisURL: url, Prefix: "relay:test:", IsDev: true})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer func() { _ = closeFn() }()

	roundTrip(t, sm)
}
