// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"

	"github.com/bureau-foundation/matrixbot/messaging"
)

// Handler reacts to one room event. Events arrive in timeline order per
// room; rooms are polled in a fixed order. A returned error is logged
// and does not stop the bot or the rest of the batch.
type Handler interface {
	HandleEvent(ctx context.Context, room *messaging.Room, event messaging.RoomEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, room *messaging.Room, event messaging.RoomEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, room *messaging.Room, event messaging.RoomEvent) error {
	return f(ctx, room, event)
}

// MessageHandlerFunc is a Handler that sees only m.room.message events.
type MessageHandlerFunc func(ctx context.Context, room *messaging.Room, message *messaging.MessageEvent) error

// HandleEvent calls f for message events and ignores everything else.
func (f MessageHandlerFunc) HandleEvent(ctx context.Context, room *messaging.Room, event messaging.RoomEvent) error {
	message, ok := event.(*messaging.MessageEvent)
	if !ok {
		return nil
	}
	return f(ctx, room, message)
}
