// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}

	other, _ := HashPassword("changeme")
	if hash == other {
		t.Error("hashes of the same password must differ by salt")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("changeme")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	tests := []struct {
		password string
		want     bool
	}{
		{"changeme", true},
		{"wrongpassword", false},
		{"", false},
	}
	for _, tt := range tests {
		valid, err := CheckPassword(tt.password, hash)
		if err != nil {
			t.Fatalf("CheckPassword error: %v", err)
		}
		if valid != tt.want {
			t.Errorf("CheckPassword(%q) = %v, want %v", tt.password, valid, tt.want)
		}
	}
}

func TestCheckPassword_ForeignArgon2Params(t *testing.T) {
	// Hash for "changeme" produced with m=65536,t=1,p=4.
	hash := "$argon2id$v=19$m=65536,t=1,p=4$mucMvOaS6lZ2LWNS1OEFKw$UYEWv8cvCOO6l2zGeqv3JPVe1nyy0x9GXBfYEuDM544"

	valid, err := CheckPassword("changeme", hash)
	if err != nil {
		t.Fatalf("CheckPassword error: %v", err)
	}
	if !valid {
		t.Fatal("correct password rejected")
	}
	if !NeedsRehash(hash) {
		t.Error("expected hash with old parameters to need a rehash")
	}
}

func TestCheckPassword_Bcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	valid, err := CheckPassword("changeme", string(hash))
	if err != nil || !valid {
		t.Fatalf("CheckPassword bcrypt = %v, %v", valid, err)
	}
	valid, err = CheckPassword("nope", string(hash))
	if err != nil || valid {
		t.Fatalf("CheckPassword bcrypt wrong = %v, %v", valid, err)
	}
	if !NeedsRehash(string(hash)) {
		t.Error("bcrypt hashes should be upgraded")
	}
}

func TestCheckPassword_Malformed(t *testing.T) {
	for _, hash := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$bad",
		"$md5$abc",
		"$argon2id$v=19$m=19456,t=2,p=1$c2FsdHNhbHQ$",
		"$argon2id$v=19$m=19456,t=2,p=0$c2FsdHNhbHQ$aGFzaGhhc2g",
		"$argon2id$v=19$m=19456,t=0,p=1$c2FsdHNhbHQ$aGFzaGhhc2g",
	} {
		if valid, err := CheckPassword("x", hash); valid || err == nil {
			t.Errorf("CheckPassword(%q) = %v, %v; want false with error", hash, valid, err)
		}
	}
}

func TestNeedsRehash_CurrentParams(t *testing.T) {
	hash, _ := HashPassword("changeme")
	if NeedsRehash(hash) {
		t.Error("fresh hash should not need rehash")
	}
}
