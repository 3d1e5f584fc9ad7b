// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/olegiv/relay/internal/session"
	"github.com/olegiv/relay/internal/store"
)

// Authentication policy.
const (
	SessionTimeout    = 30 * time.Minute
	MaxLoginAttempts  = 5
	LockoutWindow     = 15 * time.Minute
	MinPasswordLength = 8
)

// Session keys owned by the guard.
const (
	KeyAuthenticated = "user_authenticated"
	KeyUsername      = "user_username"
	KeyRole          = "user_role"
	KeyLoginTime     = "user_login_time"
	KeyLastActivity  = "user_last_activity"
	KeyLoginAttempts = "login_attempts"
	KeyLockedUntil   = "login_locked_until"
	KeyRedirectAfter = "auth_redirect_after_login"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrLocked             = errors.New("too many failed login attempts")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidUsername    = errors.New("username may only contain letters, digits and underscores")
	ErrInvalidRole        = errors.New("role must be admin or editor")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidUsername reports whether s is an acceptable username.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == store.RoleAdmin || role == store.RoleEditor
}

// roleLevel returns the hierarchy level of a role (higher = more privileges).
func roleLevel(role string) int {
	switch role {
	case store.RoleAdmin:
		return 2
	case store.RoleEditor:
		return 1
	default:
		return 0
	}
}

// HasRole reports whether role grants at least the privileges of required.
func HasRole(role, required string) bool {
	return roleLevel(role) >= roleLevel(required) && roleLevel(required) > 0
}

// Users is the user lookup the guard needs.
type Users interface {
	Find(username string) (store.User, error)
	UpdatePasswordHash(username, hash string) error
}

// UserRegistry can also add users.
type UserRegistry interface {
	Users
	Create(u store.User) error
}

// SessionUser is the authenticated identity held in the session.
type SessionUser struct {
	Username  string
	Role      string
	LoginTime time.Time
}

// IsAdmin reports whether the user has the admin role.
func (u *SessionUser) IsAdmin() bool {
	return u != nil && u.Role == store.RoleAdmin
}

// Guard implements login, lockout and session timeout.
type Guard struct {
	users Users
	now   func() time.Time
}

// NewGuard returns a guard backed by users.
func NewGuard(users Users) *Guard {
	return &Guard{users: users, now: time.Now}
}

// SetClock replaces the time source.
func (g *Guard) SetClock(now func() time.Time) {
	g.now = now
}

// dummyHash is verified against for unknown users so that a missing
// account costs the same as a wrong password.
var dummyHash = sync.OnceValue(func() string {
	h, err := HashPassword("relay-timing-equalizer")
	if err != nil {
		return ""
	}
	return h
})

// Login authenticates username and password into s. A locked session is
// refused without consulting the user store.
func (g *Guard) Login(s *session.Session, username, password string) error {
	if !g.allowAttempt(s) {
		return ErrLocked
	}

	if !ValidUsername(username) {
		g.recordFailure(s)
		return ErrInvalidCredentials
	}

	user, err := g.users.Find(username)
	if err != nil {
		_, _ = CheckPassword(password, dummyHash())
		g.recordFailure(s)
		if !errors.Is(err, store.ErrUserNotFound) {
			slog.Error("failed to load user", "username", username, "error", err)
		}
		return ErrInvalidCredentials
	}

	ok, err := CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Warn("unreadable password hash", "username", username, "error", err)
	}
	if !ok {
		g.recordFailure(s)
		return ErrInvalidCredentials
	}

	if err := s.RenewToken(); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}

	now := g.now().Unix()
	role := user.Role
	if role == "" {
		role = store.RoleEditor
	}
	s.Remove(KeyLoginAttempts)
	s.Remove(KeyLockedUntil)
	s.Put(KeyAuthenticated, true)
	s.Put(KeyUsername, username)
	s.Put(KeyRole, role)
	s.Put(KeyLoginTime, now)
	s.Put(KeyLastActivity, now)

	if NeedsRehash(user.PasswordHash) {
		g.rehash(username, password)
	}
	return nil
}

func (g *Guard) rehash(username, password string) {
	hash, err := HashPassword(password)
	if err != nil {
		slog.Warn("failed to rehash password", "username", username, "error", err)
		return
	}
	if err := g.users.UpdatePasswordHash(username, hash); err != nil {
		slog.Warn("failed to store rehashed password", "username", username, "error", err)
		return
	}
	slog.Info("password hash upgraded", "username", username)
}

// allowAttempt prunes old attempts and locks the session once the limit is
// reached. It returns false while the session is locked.
func (g *Guard) allowAttempt(s *session.Session) bool {
	now := g.now().Unix()
	if s.GetInt64(KeyLockedUntil) > now {
		return false
	}

	cutoff := now - int64(LockoutWindow/time.Second)
	var recent []int64
	for _, ts := range s.GetInt64s(KeyLoginAttempts) {
		if ts > cutoff {
			recent = append(recent, ts)
		}
	}
	if len(recent) == 0 {
		s.Remove(KeyLoginAttempts)
	} else {
		s.Put(KeyLoginAttempts, recent)
	}

	if len(recent) >= MaxLoginAttempts {
		s.Put(KeyLockedUntil, now+int64(LockoutWindow/time.Second))
		return false
	}
	return true
}

func (g *Guard) recordFailure(s *session.Session) {
	attempts := append(s.GetInt64s(KeyLoginAttempts), g.now().Unix())
	s.Put(KeyLoginAttempts, attempts)
}

// LockoutRemaining returns how long the session stays locked, or zero.
func (g *Guard) LockoutRemaining(s *session.Session) time.Duration {
	remaining := s.GetInt64(KeyLockedUntil) - g.now().Unix()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(remaining) * time.Second
}

// Check returns the authenticated user of s and refreshes its activity
// time. Sessions idle for longer than SessionTimeout are destroyed.
func (g *Guard) Check(s *session.Session) (*SessionUser, bool) {
	if !s.GetBool(KeyAuthenticated) {
		return nil, false
	}

	now := g.now().Unix()
	if last := s.GetInt64(KeyLastActivity); last > 0 && now-last > int64(SessionTimeout/time.Second) {
		slog.Info("session timed out", "username", s.GetString(KeyUsername))
		g.Logout(s)
		return nil, false
	}
	s.Put(KeyLastActivity, now)

	role := s.GetString(KeyRole)
	if role == "" {
		role = store.RoleEditor
	}
	return &SessionUser{
		Username:  s.GetString(KeyUsername),
		Role:      role,
		LoginTime: time.Unix(s.GetInt64(KeyLoginTime), 0),
	}, true
}

// IsAdmin reports whether s holds an authenticated admin.
func (g *Guard) IsAdmin(s *session.Session) bool {
	user, ok := g.Check(s)
	return ok && user.IsAdmin()
}

// Logout destroys all session state.
func (g *Guard) Logout(s *session.Session) {
	if err := s.Destroy(); err != nil {
		slog.Error("failed to destroy session", "error", err)
	}
}

// ChangePassword replaces the password of username after verifying the
// current one.
func (g *Guard) ChangePassword(username, oldPassword, newPassword string) error {
	if !ValidUsername(username) {
		return ErrInvalidUsername
	}
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	user, err := g.users.Find(username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	ok, _ := CheckPassword(oldPassword, user.PasswordHash)
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return g.users.UpdatePasswordHash(username, hash)
}

// CreateUser validates and adds a user with a freshly hashed password.
func CreateUser(users UserRegistry, username, password, role string) error {
	if !ValidUsername(username) {
		return ErrInvalidUsername
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	if !ValidRole(role) {
		return ErrInvalidRole
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return users.Create(store.User{Username: username, PasswordHash: hash, Role: role})
}

// ResetPassword sets a new password without checking the old one.
func ResetPassword(users Users, username, password string) error {
	if !ValidUsername(username) {
		return ErrInvalidUsername
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	if _, err := users.Find(username); err != nil {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return users.UpdatePasswordHash(username, hash)
}
