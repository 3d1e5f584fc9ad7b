// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// UsersFile is the accounts file in the config directory.
const UsersFile = "users.json"

// User roles.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// User is an account in users.json. The username is the object key on disk.
type User struct {
	Username     string `json:"-"`
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
}

// UserStore reads and writes the users file.
type UserStore struct {
	path string
}

// NewUserStore returns a store for users.json inside configDir.
func NewUserStore(configDir string) *UserStore {
	return &UserStore{path: filepath.Join(configDir, UsersFile)}
}

// Path returns the location of the users file.
func (s *UserStore) Path() string {
	return s.path
}

// Load returns all users keyed by username. A missing file is empty.
func (s *UserStore) Load() (map[string]User, error) {
	users := map[string]User{}
	if err := ReadJSONFile(s.path, &users); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]User{}, nil
		}
		return nil, fmt.Errorf("loading users: %w", err)
	}
	for name, u := range users {
		u.Username = name
		users[name] = u
	}
	return users, nil
}

// Find returns the named user or ErrUserNotFound.
func (s *UserStore) Find(username string) (User, error) {
	users, err := s.Load()
	if err != nil {
		return User{}, err
	}
	u, ok := users[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// Create adds a new user, failing with ErrUserExists when the name is taken.
func (s *UserStore) Create(u User) error {
	return UpdateJSONFile(s.path, func(users *map[string]User) error {
		if *users == nil {
			*users = map[string]User{}
		}
		if _, ok := (*users)[u.Username]; ok {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Username)
		}
		(*users)[u.Username] = u
		return nil
	})
}

// UpdatePasswordHash replaces the stored hash of an existing user.
func (s *UserStore) UpdatePasswordHash(username, hash string) error {
	return UpdateJSONFile(s.path, func(users *map[string]User) error {
		u, ok := (*users)[username]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUserNotFound, username)
		}
		u.PasswordHash = hash
		(*users)[username] = u
		return nil
	})
}

// List returns all users sorted by username.
func (s *UserStore) List() ([]User, error) {
	users, err := s.Load()
	if err != nil {
		return nil, err
	}
	list := make([]User, 0, len(users))
	for _, u := range users {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Username < list[j].Username })
	return list, nil
}
