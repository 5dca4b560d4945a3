// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds a bot's credentials (access tokens and account
// passwords) in memory the Go runtime never sees.
//
// [Buffer] allocates memory via mmap(MAP_ANONYMOUS), locks it into RAM
// with mlock, and excludes it from core dumps with
// madvise(MADV_DONTDUMP). Close zeroes, unlocks, and unmaps it.
// Credentials enter a Buffer as early as possible (straight from the
// token file, the password prompt, or the login response) and are
// converted to a heap string only at the HTTP header or JSON body
// boundary.
//
// Depends on golang.org/x/sys/unix.
package secret
