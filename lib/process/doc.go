// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the binary entrypoint error handler. A
// bot's main() calls run() and hands any error to [Fatal], which
// reports it on stderr even when the structured logger was never set
// up (a bad --config path, a missing token file).
package process
