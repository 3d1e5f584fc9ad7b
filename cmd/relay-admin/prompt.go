// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/olegiv/relay/internal/auth"
)

var errPasswordMismatch = errors.New("passwords do not match")

// prompter reads passwords from a terminal with echo disabled, or line by
// line when input is piped.
type prompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, out: out, reader: bufio.NewReader(in)}
}

func (p *prompter) password(label string) (string, error) {
	_, _ = fmt.Fprint(p.out, label)

	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		b, err := term.ReadPassword(int(f.Fd())) //nolint:gosec // fd fits in int
		_, _ = fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}

	line, err := p.reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// newPassword asks for a password twice and checks the minimum length.
func (p *prompter) newPassword() (string, error) {
	password, err := p.password("Password: ")
	if err != nil {
		return "", err
	}
	if len(password) < auth.MinPasswordLength {
		return "", auth.ErrWeakPassword
	}
	confirm, err := p.password("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", errPasswordMismatch
	}
	return password, nil
}
