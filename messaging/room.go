// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/matrixbot/lib/ref"
)

// Room is a handle on one joined room: a RoomCursor for reading and
// the session for sending. Every Room opened from one session shares
// that session's Client and so its HTTP transport.
//
// Room is not safe for concurrent use, because its cursor is not.
type Room struct {
	session Session
	roomID  ref.RoomID
	cursor  *RoomCursor
}

// OpenRoom joins the room named by target (an ID or an alias) and
// returns a handle on it. Joining a room the account is already in
// succeeds. The handle's cursor starts uninitialized unless
// options.Since is set.
func OpenRoom(ctx context.Context, session Session, target ref.RoomTarget, options CursorOptions) (*Room, error) {
	roomID, err := session.JoinRoom(ctx, target)
	if err != nil {
		return nil, err
	}
	room := NewRoom(session, roomID, options)
	room.cursor.logger.Info("joined room", "target", target)
	return room, nil
}

// NewRoom returns a handle on a room the account has already joined,
// without joining it.
func NewRoom(session Session, roomID ref.RoomID, options CursorOptions) *Room {
	return &Room{
		session: session,
		roomID:  roomID,
		cursor:  NewRoomCursor(session, roomID, options),
	}
}

// OpenRoom is the package-level OpenRoom with the session's logger as
// the default cursor logger.
func (s *DirectSession) OpenRoom(ctx context.Context, target ref.RoomTarget, options CursorOptions) (*Room, error) {
	if options.Logger == nil {
		options.Logger = s.client.logger
	}
	return OpenRoom(ctx, s, target, options)
}

// Room is the package-level NewRoom with the session's logger as the
// default cursor logger.
func (s *DirectSession) Room(roomID ref.RoomID, options CursorOptions) *Room {
	if options.Logger == nil {
		options.Logger = s.client.logger
	}
	return NewRoom(s, roomID, options)
}

// ID returns the room ID.
func (r *Room) ID() ref.RoomID {
	return r.roomID
}

// Cursor returns the room's cursor, for reading its position and last
// error.
func (r *Room) Cursor() *RoomCursor {
	return r.cursor
}

// NewMessages returns the events that arrived since the previous call.
// See RoomCursor.FetchNextBatch: the first call returns nothing, and
// failures return nothing and are reported by Cursor().Err().
func (r *Room) NewMessages(ctx context.Context) []RoomEvent {
	return r.cursor.FetchNextBatch(ctx)
}

// Send sends a message of any variant.
func (r *Room) Send(ctx context.Context, content MessageContent) (ref.EventID, error) {
	return r.session.SendMessage(ctx, r.roomID, content)
}

// SendText sends an m.text message.
func (r *Room) SendText(ctx context.Context, body string) (ref.EventID, error) {
	return r.Send(ctx, NewTextMessage(body))
}

// SendNotice sends an m.notice message.
func (r *Room) SendNotice(ctx context.Context, body string) (ref.EventID, error) {
	return r.Send(ctx, NewNoticeMessage(body))
}

// SendEmote sends an m.emote message.
func (r *Room) SendEmote(ctx context.Context, body string) (ref.EventID, error) {
	return r.Send(ctx, NewEmoteMessage(body))
}

// SendMarkdown sends an m.text message rendered from markdown.
func (r *Room) SendMarkdown(ctx context.Context, source string) (ref.EventID, error) {
	content, err := NewMarkdownMessage(source)
	if err != nil {
		return ref.EventID{}, fmt.Errorf("messaging: send markdown to %s: %w", r.roomID, err)
	}
	return r.Send(ctx, content)
}

// Leave leaves the room. The handle must not be used afterwards.
func (r *Room) Leave(ctx context.Context) error {
	return r.session.LeaveRoom(ctx, r.roomID)
}
