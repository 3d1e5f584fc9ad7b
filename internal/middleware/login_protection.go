// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterCache is a generic rate limiter cache with double-check locking.
type limiterCache[K comparable] struct {
	limiters map[K]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// newLimiterCache creates a new limiter cache.
func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// get returns the rate limiter for a specific key, creating one if needed.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.RLock()
	limiter, exists := lc.limiters[key]
	lc.mu.RUnlock()

	if exists {
		return limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = lc.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = limiter
	return limiter
}

// clearIfExceeds clears all entries if the cache exceeds maxSize.
// Returns true if the cache was cleared.
func (lc *limiterCache[K]) clearIfExceeds(maxSize int) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if len(lc.limiters) > maxSize {
		lc.limiters = make(map[K]*rate.Limiter)
		return true
	}
	return false
}

// maxTrackedIPs bounds the limiter cache between cleanups.
const maxTrackedIPs = 10000

// LoginThrottle rate limits login submissions per client IP. It sits in
// front of the per-session lockout, which a client can sidestep by
// dropping its cookie.
type LoginThrottle struct {
	ipLimiters *limiterCache[string]
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewLoginThrottle creates a throttle allowing rps requests per second with
// the given burst per IP.
func NewLoginThrottle(rps float64, burst int) *LoginThrottle {
	if burst <= 0 {
		burst = 5
	}
	lt := &LoginThrottle{
		ipLimiters: newLimiterCache[string](rps, burst),
		stop:       make(chan struct{}),
	}

	go lt.cleanup()

	return lt
}

// Allow reports whether a login attempt from ip may proceed.
func (lt *LoginThrottle) Allow(ip string) bool {
	return lt.ipLimiters.get(ip).Allow()
}

// Close stops the cleanup goroutine.
func (lt *LoginThrottle) Close() {
	lt.stopOnce.Do(func() { close(lt.stop) })
}

// cleanup periodically bounds the limiter cache.
func (lt *LoginThrottle) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-lt.stop:
			return
		case <-ticker.C:
			if lt.ipLimiters.clearIfExceeds(maxTrackedIPs) {
				slog.Info("cleared login rate limiters due to size")
			}
		}
	}
}

// Middleware returns HTTP middleware for IP rate limiting on login.
// Only POST requests count.
func (lt *LoginThrottle) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			if !lt.Allow(ip) {
				slog.Warn("login rate limit exceeded", "category", "security", "ip", ip)
				http.Error(w, "Too many login attempts. Please wait a moment and try again.", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the host part of RemoteAddr. Proxy headers are resolved
// into RemoteAddr by chi's RealIP middleware before this runs.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
