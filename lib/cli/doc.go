// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli holds the pieces every bot binary shares: the common
// flags and config loading, the command logger (text on a terminal,
// JSON otherwise), secret loading for credentials from files, stdin,
// or an interactive prompt, and Connect, which turns a loaded config
// into an authenticated session.
package cli
