// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"

	"github.com/bureau-foundation/matrixbot/lib/ref"
)

// Session is the set of Matrix operations a bot loop performs.
// *DirectSession is the production implementation; tests and wrappers
// (rate limiting, dry runs) can supply their own.
//
// Room creation, invites, alias resolution, and the other
// administrative calls are not part of this interface. Code that needs
// them should hold a *DirectSession.
type Session interface {
	SyncTransport

	// UserID returns the fully-qualified Matrix user ID
	// (e.g., "@echo:example.org").
	UserID() ref.UserID

	// JoinRoom joins a room by ID or alias. Returns the room ID.
	JoinRoom(ctx context.Context, target ref.RoomTarget) (ref.RoomID, error)

	// LeaveRoom leaves a room.
	LeaveRoom(ctx context.Context, roomID ref.RoomID) error

	// SendMessage sends a message to a room. Returns the event ID.
	SendMessage(ctx context.Context, roomID ref.RoomID, content MessageContent) (ref.EventID, error)

	// Close releases any resources held by the session. Idempotent.
	Close() error
}

// Compile-time check: *DirectSession implements Session.
var _ Session = (*DirectSession)(nil)
