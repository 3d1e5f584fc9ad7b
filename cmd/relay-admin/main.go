// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command relay-admin sets up a Relay site and manages its user accounts.
package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/olegiv/relay/internal/store"
	"github.com/olegiv/relay/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// site resolves the directories below the --root flag.
type site struct {
	root string
}

func (s site) contentDir() string { return filepath.Join(s.root, "content") }
func (s site) configDir() string { return filepath.Join(s.root, "config") }
func (s site) themesDir() string { return filepath.Join(s.root, "themes") }
func (s site) assetsDir() string { return filepath.Join(s.root, "assets") }
func (s site) dataDir() string { return filepath.Join(s.root, "data") }

func (s site) users() *store.UserStore { return store.NewUserStore(s.configDir()) }

func newRootCmd() *cobra.Command {
	s := &site{}

	rootCmd := &cobra.Command{
		Use:   "relay-admin",
		Short: "Manage a Relay site",
		Long: `relay-admin creates the directory layout of a Relay site and manages
the accounts allowed into its admin area.

Quick Start:
  relay-admin init                      Scaffold a site and create the first admin
  relay-admin create-user alice editor  Add an editor account
  relay-admin reset-password alice      Set a new password for alice
  relay-admin list-users                Show all accounts`,
		Version:      version.Current().String(),
		SilenceUsage: true,
	}

	defaultRoot := os.Getenv("RELAY_ROOT")
	if defaultRoot == "" {
		defaultRoot = "."
	}
	rootCmd.PersistentFlags().StringVar(&s.root, "root", defaultRoot, "site directory (default from RELAY_ROOT)")

	rootCmd.AddCommand(
		newInitCmd(s),
		newCreateUserCmd(s),
		newResetPasswordCmd(s),
		newListUsersCmd(s),
	)
	return rootCmd
}
