// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/matrixbot/lib/config"
)

// NewCommandLogger creates the structured logger for a bot binary,
// writing to stderr. format is "auto", "text", or "json": "auto" uses
// slog.TextHandler when stderr is a terminal and slog.JSONHandler when
// it is piped or redirected (systemd, containers, log shippers).
//
// Callers scope the logger with process context via With():
//
//	logger, err := cli.NewCommandLogger(cfg.Log.Level, cfg.Log.Format)
//	logger = logger.With("bot", "echo", "user_id", session.UserID())
func NewCommandLogger(level, format string) (*slog.Logger, error) {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level, format)
}

func newLogger(output io.Writer, terminal bool, level, format string) (*slog.Logger, error) {
	parsedLevel, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: parsedLevel}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(output, options)
	case "json":
		handler = slog.NewJSONHandler(output, options)
	case "auto", "":
		if terminal {
			handler = slog.NewTextHandler(output, options)
		} else {
			handler = slog.NewJSONHandler(output, options)
		}
	default:
		return nil, fmt.Errorf("unknown log format %q (want auto, text, or json)", format)
	}
	return slog.New(handler), nil
}
