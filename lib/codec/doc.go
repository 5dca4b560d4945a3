// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR configuration for the bot's on-disk
// state.
//
// JSON is the wire format for everything that talks to the homeserver.
// CBOR is used only for local files the bot writes for itself (the
// per-room sync cursor state), where compactness and deterministic
// output matter and no human or other program reads the bytes.
//
//	data, err := codec.Marshal(state)
//	err = codec.Unmarshal(data, &state)
//
// Types that implement encoding.TextMarshaler (every lib/ref
// identifier) encode as CBOR text strings.
package codec
