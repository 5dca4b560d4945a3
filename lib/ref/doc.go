// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable Matrix identifiers:
// room IDs, room aliases, user IDs, server names, event IDs, and event
// types.
//
// Every identifier that arrives from the homeserver or from operator
// configuration is parsed into one of these types at the boundary.
// Parsing checks the structural format only (sigil, ":server" suffix,
// non-empty parts); the homeserver is the authority on whether an
// identifier actually exists.
//
// All types implement encoding.TextMarshaler and
// encoding.TextUnmarshaler, so they work as JSON object keys (the
// /sync response keys its rooms by room ID) and as CBOR text strings.
package ref
