// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/olegiv/relay/internal/auth"
	"github.com/olegiv/relay/internal/menu"
	"github.com/olegiv/relay/internal/store"
	"github.com/olegiv/relay/internal/themes"
)

const sampleIndex = `---
title: Welcome
description: A new Relay site
---
# Welcome to Relay

This page lives in ` + "`content/index.md`" + `. Add more Markdown files to
` + "`content/`" + ` and they are served at their path without the extension.

Sign in at [/admin](/admin) to edit menus and switch themes.
`

func newInitCmd(s *site) *cobra.Command {
	var adminUser string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a site and create the first admin",
		Long: `Create content/, config/, themes/ and assets/ below --root, install the
bundled themes, write a sample index page, empty menus and default settings,
and create the first admin account. Existing files are left untouched, so
init can be re-run safely.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, s, adminUser)
		},
	}
	cmd.Flags().StringVar(&adminUser, "admin", "admin", "username of the first admin")
	return cmd
}

func runInit(cmd *cobra.Command, s *site, adminUser string) error {
	out := cmd.OutOrStdout()

	for _, dir := range []string{s.contentDir(), s.configDir(), s.themesDir(), s.assetsDir(), s.dataDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	for _, name := range themes.Names() {
		if err := themes.Install(s.themesDir(), name); err != nil {
			return fmt.Errorf("installing theme %s: %w", name, err)
		}
		_, _ = fmt.Fprintf(out, "Installed theme %s\n", name)
	}

	index := filepath.Join(s.contentDir(), "index.md")
	created, err := writeIfMissing(index, []byte(sampleIndex))
	if err != nil {
		return err
	}
	if created {
		_, _ = fmt.Fprintf(out, "Created %s\n", index)
	}

	menus := store.NewMenuStore(s.configDir())
	defaults := map[string][]menu.Item{
		store.HeaderMenu: {{Label: "Home", URL: "/"}},
		store.LeftMenu:   {},
		store.RightMenu:  {},
	}
	for _, name := range []string{store.HeaderMenu, store.LeftMenu, store.RightMenu} {
		if exists(filepath.Join(s.configDir(), name+".json")) {
			continue
		}
		if err := menus.Save(name, defaults[name]); err != nil {
			return fmt.Errorf("creating menu %s: %w", name, err)
		}
		_, _ = fmt.Fprintf(out, "Created menu %s\n", name)
	}

	if !exists(filepath.Join(s.configDir(), "settings.json")) {
		if err := store.NewSettingsStore(s.configDir()).Save(store.DefaultSettings()); err != nil {
			return fmt.Errorf("creating settings: %w", err)
		}
		_, _ = fmt.Fprintln(out, "Created settings.json")
	}

	users, err := s.users().List()
	if err != nil {
		return fmt.Errorf("reading users: %w", err)
	}
	if len(users) > 0 {
		_, _ = fmt.Fprintf(out, "%d user(s) already exist, skipping admin creation\n", len(users))
		return nil
	}

	if !auth.ValidUsername(adminUser) {
		return auth.ErrInvalidUsername
	}
	_, _ = fmt.Fprintf(out, "Creating admin user %q\n", adminUser)
	password, err := newPrompter(cmd.InOrStdin(), out).newPassword()
	if err != nil {
		return err
	}
	if err := auth.CreateUser(s.users(), adminUser, password, store.RoleAdmin); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Site ready in %s. Start it with: RELAY_ROOT=%s relay\n", s.root, s.root)
	return nil
}

func newCreateUserCmd(s *site) *cobra.Command {
	return &cobra.Command{
		Use:   "create-user <username> <role>",
		Short: "Add an account (role admin or editor)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, role := args[0], args[1]
			if !auth.ValidUsername(username) {
				return auth.ErrInvalidUsername
			}
			if !auth.ValidRole(role) {
				return auth.ErrInvalidRole
			}
			if _, err := s.users().Find(username); err == nil {
				return fmt.Errorf("%w: %s", store.ErrUserExists, username)
			}

			password, err := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).newPassword()
			if err != nil {
				return err
			}
			if err := auth.CreateUser(s.users(), username, password, role); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s\n", role, username)
			return nil
		},
	}
}

func newResetPasswordCmd(s *site) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <username>",
		Short: "Set a new password for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			if _, err := s.users().Find(username); err != nil {
				return err
			}

			password, err := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()).newPassword()
			if err != nil {
				return err
			}
			if err := auth.ResetPassword(s.users(), username, password); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", username)
			return nil
		},
	}
}

func newListUsersCmd(s *site) *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "Show all accounts and their roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := s.users().List()
			if err != nil {
				return err
			}
			if len(users) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No users. Run relay-admin init first.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "USERNAME\tROLE")
			for _, u := range users {
				_, _ = fmt.Fprintf(tw, "%s\t%s\n", u.Username, u.Role)
			}
			return tw.Flush()
		},
	}
}

// writeIfMissing writes data to path unless the file already exists.
func writeIfMissing(path string, data []byte) (bool, error) {
	if exists(path) {
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- public content
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
