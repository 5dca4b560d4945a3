// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bot runs the poll loop of a Matrix chat bot.
//
// A [Bot] polls a set of rooms one after another, hands each new event
// to a [Handler], and sleeps a fixed interval between passes. There is
// no backoff and no retry inside a pass: a room whose sync fails simply
// yields nothing this pass and is retried from the same position on the
// next one. With auto-join enabled, every pass first lists pending
// invites, joins them, and adds the rooms to the poll set.
//
// A bot's own events are not handed to the handler, so a bot that
// replies to messages never answers itself.
//
// With a [StateStore], each room's sync position is saved after every
// pass that moved it and restored at startup, so a restarted bot
// delivers what arrived while it was down instead of skipping to the
// present.
package bot
