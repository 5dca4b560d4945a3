// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/matrixbot/lib/secret"
)

// ErrNoTerminal is returned by PromptSecret when stdin is not a
// terminal, so there is nobody to ask.
var ErrNoTerminal = errors.New("no terminal available for interactive prompt")

// ReadSecret loads a credential. A non-empty path is read with
// secret.ReadFromPath ("-" reads one line from stdin). An empty path
// prompts on the terminal with echo disabled.
func ReadSecret(path, prompt string) (*secret.Buffer, error) {
	if path != "" {
		buffer, err := secret.ReadFromPath(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return buffer, nil
	}
	return PromptSecret(prompt)
}

// PromptSecret writes prompt to stderr and reads one line from the
// terminal without echo.
func PromptSecret(prompt string) (*secret.Buffer, error) {
	stdinFileDescriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFileDescriptor) {
		return nil, ErrNoTerminal
	}
	return promptWith(os.Stderr, prompt, func() ([]byte, error) {
		return term.ReadPassword(stdinFileDescriptor)
	})
}

// promptWith is PromptSecret with the terminal read injected.
func promptWith(output io.Writer, prompt string, read func() ([]byte, error)) (*secret.Buffer, error) {
	fmt.Fprint(output, prompt)
	value, err := read()
	fmt.Fprintln(output)
	if err != nil {
		secret.Zero(value)
		return nil, fmt.Errorf("reading from terminal: %w", err)
	}

	buffer, err := secret.NewFromBytes(value)
	if err != nil {
		return nil, fmt.Errorf("empty input: %w", err)
	}
	return buffer, nil
}
