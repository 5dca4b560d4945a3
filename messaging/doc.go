// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the Matrix client-server API for chat bots.
//
// [Client] is an unauthenticated client holding the homeserver URL and
// HTTP transport. [Client.Connect] turns validated [Credentials] (an
// access token, or a username and password) into a [DirectSession];
// incomplete credentials fail with a [*ConfigError] before any request.
// Password login first checks that the homeserver offers the
// m.login.password flow.
//
// The core of the package is polling. [RoomCursor] follows one room's
// timeline through repeated /sync calls: its first fetch records the
// current position and returns nothing, and every later fetch returns
// the events since the previous one and advances. Failures never
// escape as errors or panics; a failed fetch returns no events, leaves
// the position unchanged so the next call retries from the same point,
// and is reported through the cursor's Err method, slog, and
// [Metrics]. [InviteScanner] lists pending invites with a fresh,
// position-less sync on every call. Neither retries internally: retry
// policy belongs to the caller's poll loop.
//
// Sync responses are decoded by [DecodeSync] into a closed set of event
// types ([MessageEvent], [MemberEvent], [RedactionEvent]) and, for
// messages, a closed set of content types ([TextContent],
// [EmoteContent], [NoticeContent], [ImageContent], [FileContent],
// [VideoContent], [AudioContent], [LocationContent]). Decoding
// dispatches on the type tag before reading anything else. Events with
// an unknown tag are dropped, as are known events missing a required
// field; both are listed in [SyncResult].Dropped and never fail the
// decode. Only a malformed envelope fails it, with a [*DecodeError].
//
// [Room] bundles a cursor with send helpers (text, notice, emote,
// markdown rendered to HTML with goldmark). All rooms opened from a
// session share its Client.
//
// All API errors are returned as [*MatrixError] with the standard Matrix
// error code (M_FORBIDDEN, M_NOT_FOUND, etc.) and HTTP status code.
// [IsMatrixError] tests for a specific error code. Request URLs are built
// by string concatenation rather than url.URL to avoid double-encoding of
// path segments that contain URL-encoded characters.
package messaging
