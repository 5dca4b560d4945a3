// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the bot
// binaries.
//
// Version information is injected at build time via -ldflags, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/matrixbot/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// [Info] and [Full] format --version output. [UserAgent] is the
// User-Agent header every homeserver request carries, so server
// operators can tell which bot build is polling them.
package version
