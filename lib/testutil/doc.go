// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [Homeserver] is a scripted Matrix homeserver on httptest: tests queue
// /sync responses, then inspect the sync queries, sent events, and
// joins the code under test produced. It speaks only the handful of
// client-server endpoints the bot library uses.
//
// [RequireReceive] bounds a channel wait so a hung goroutine fails the
// test instead of the whole run. [WriteFile] writes credential and
// config fixtures.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
