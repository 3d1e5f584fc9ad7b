// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/relay/internal/session"
)

// CSRFTokenTTL is how long an issued token stays valid. Tokens are reusable
// within that window.
const CSRFTokenTTL = 2 * time.Hour

const csrfTokenBytes = 32

// Session keys for the CSRF token.
const (
	KeyCSRFToken     = "csrf_token"
	KeyCSRFTokenTime = "csrf_token_time"
)

var (
	ErrCSRFMissing  = errors.New("csrf token missing")
	ErrCSRFExpired  = errors.New("csrf token expired")
	ErrCSRFMismatch = errors.New("csrf token invalid")
)

// CSRF issues and checks session-bound anti-forgery tokens.
type CSRF struct {
	now func() time.Time
}

// NewCSRF returns a CSRF guard using the wall clock.
func NewCSRF() *CSRF {
	return &CSRF{now: time.Now}
}

// SetClock replaces the time source.
func (c *CSRF) SetClock(now func() time.Time) {
	c.now = now
}

// Token returns the session's current token, issuing a new one when there
// is none or it has expired.
func (c *CSRF) Token(s *session.Session) (string, error) {
	token := s.GetString(KeyCSRFToken)
	if token != "" && !c.expired(s) {
		return token, nil
	}
	return c.Issue(s)
}

// Issue always generates and stores a fresh token.
func (c *CSRF) Issue(s *session.Session) (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating csrf token: %w", err)
	}
	token := hex.EncodeToString(b)
	s.Put(KeyCSRFToken, token)
	s.Put(KeyCSRFTokenTime, c.now().Unix())
	return token, nil
}

// Validate checks candidate against the session token.
func (c *CSRF) Validate(s *session.Session, candidate string) error {
	token := s.GetString(KeyCSRFToken)
	if token == "" {
		return ErrCSRFMissing
	}
	if c.expired(s) {
		return ErrCSRFExpired
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) != 1 {
		return ErrCSRFMismatch
	}
	return nil
}

// Valid is Validate collapsed to a bool.
func (c *CSRF) Valid(s *session.Session, candidate string) bool {
	return c.Validate(s, candidate) == nil
}

// Reset drops the session token.
func (c *CSRF) Reset(s *session.Session) {
	s.Remove(KeyCSRFToken)
	s.Remove(KeyCSRFTokenTime)
}

func (c *CSRF) expired(s *session.Session) bool {
	issued := s.GetInt64(KeyCSRFTokenTime)
	return c.now().Unix()-issued > int64(CSRFTokenTTL/time.Second)
}
