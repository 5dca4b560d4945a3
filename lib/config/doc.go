// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the bot binaries.
//
// Configuration is loaded from a single file specified by either the
// MATRIXBOT_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no automatic file
// search. Command-line flags are applied over the loaded file by the
// binaries themselves.
//
// The file may be YAML (.yaml, .yml; parsed with gopkg.in/yaml.v3) or
// JSON with comments and trailing commas (.json, .jsonc; normalized
// with github.com/tidwall/jsonc). Both formats use the same field
// names:
//
//	homeserver:
//	  url: https://matrix.example.org
//	  user_id: "@echo:example.org"
//	  access_token_file: ${HOME}/.config/echo-bot/token
//	rooms:
//	  - "#lobby:example.org"
//	poll:
//	  interval: 10s
//	  state_file: ${STATE_DIRECTORY:-/var/lib/echo-bot}/cursors.cbor
//
// Credentials are never stored in the config itself, only paths to
// files that hold them. ${VAR} and ${VAR:-default} are expanded in
// those path fields.
package config
