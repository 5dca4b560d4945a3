// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"
	"time"

	"github.com/bureau-foundation/matrixbot/lib/ref"
)

// RoomEvent is one decoded timeline event. The set of implementations
// is closed: *MessageEvent, *MemberEvent, and *RedactionEvent. Callers
// switch on the concrete type:
//
//	switch event := event.(type) {
//	case *messaging.MessageEvent:
//	    ...
//	case *messaging.MemberEvent:
//	    ...
//	}
//
// Events with any other type tag never reach a RoomEvent; the decoder
// drops them.
type RoomEvent interface {
	// Type returns the event type tag exactly as the server sent it.
	Type() ref.EventType

	// Header returns the fields common to every event.
	Header() EventHeader

	isRoomEvent()
}

// EventHeader holds the fields every timeline event carries.
type EventHeader struct {
	// EventID is the server-assigned event ID. It may be zero for
	// events from older servers that omit it in sync timelines.
	EventID ref.EventID

	// Sender is the user who sent the event.
	Sender ref.UserID

	// OriginServerTS is the sender's homeserver timestamp in
	// milliseconds since the Unix epoch. Zero when absent.
	OriginServerTS int64
}

// Timestamp returns OriginServerTS as a time.Time.
func (h EventHeader) Timestamp() time.Time {
	return time.UnixMilli(h.OriginServerTS)
}

// MessageEvent is an m.room.message event.
type MessageEvent struct {
	EventHeader
	Content MessageContent
}

func (*MessageEvent) Type() ref.EventType    { return ref.EventTypeMessage }
func (e *MessageEvent) Header() EventHeader { return e.EventHeader }
func (*MessageEvent) isRoomEvent()           {}

// Membership is the membership state carried by an m.room.member event.
type Membership string

const (
	MembershipInvite Membership = "invite"
	MembershipJoin   Membership = "join"
	MembershipLeave  Membership = "leave"
	MembershipBan    Membership = "ban"
	MembershipKnock  Membership = "knock"
)

// MemberEvent is an m.room.member event: a user's membership changed.
type MemberEvent struct {
	EventHeader

	// StateKey is the user whose membership changed. It differs from
	// Sender for invites, kicks, and bans.
	StateKey ref.UserID

	// Membership is the new membership state. Unknown states are kept
	// verbatim.
	Membership Membership

	// DisplayName is the member's display name, if set.
	DisplayName string
}

func (*MemberEvent) Type() ref.EventType    { return ref.EventTypeMember }
func (e *MemberEvent) Header() EventHeader { return e.EventHeader }
func (*MemberEvent) isRoomEvent()           {}

// RedactionEvent is an m.room.redaction event: an earlier event was
// retracted.
type RedactionEvent struct {
	EventHeader

	// Redacts is the event being redacted.
	Redacts ref.EventID

	// Reason is the optional reason given by the redacting user.
	Reason string
}

func (*RedactionEvent) Type() ref.EventType    { return ref.EventTypeRedaction }
func (e *RedactionEvent) Header() EventHeader { return e.EventHeader }
func (*RedactionEvent) isRoomEvent()           {}

// MsgType is the message type discriminator nested in the content of
// an m.room.message event.
type MsgType string

const (
	MsgTypeText     MsgType = "m.text"
	MsgTypeEmote    MsgType = "m.emote"
	MsgTypeNotice   MsgType = "m.notice"
	MsgTypeImage    MsgType = "m.image"
	MsgTypeFile     MsgType = "m.file"
	MsgTypeVideo    MsgType = "m.video"
	MsgTypeAudio    MsgType = "m.audio"
	MsgTypeLocation MsgType = "m.location"
)

// MessageContent is the content of an m.room.message event. The set of
// implementations is closed, one per MsgType constant. Every variant
// marshals to its wire form including "msgtype", so the same values are
// used for decoding received messages and for sending.
type MessageContent interface {
	// MsgType returns the message type discriminator.
	MsgType() MsgType

	// MessageBody returns the plain-text body. Every variant has one.
	MessageBody() string

	isMessageContent()
}

// FormatHTML is the only rich-text format defined by the protocol.
const FormatHTML = "org.matrix.custom.html"

// TextContent is an m.text message.
type TextContent struct {
	Body string `json:"body"`

	// Format and FormattedBody carry an optional rich-text rendition
	// of Body. Format is FormatHTML when set.
	Format        string `json:"format,omitempty"`
	FormattedBody string `json:"formatted_body,omitempty"`
}

// EmoteContent is an m.emote message ("/me waves").
type EmoteContent TextContent

// NoticeContent is an m.notice message. Bots send notices for automated
// replies; well-behaved bots never reply to notices.
type NoticeContent TextContent

// MediaInfo describes an attachment.
type MediaInfo struct {
	MimeType string `json:"mimetype,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// ImageContent is an m.image message.
type ImageContent struct {
	Body string     `json:"body"`
	URL  string     `json:"url"`
	Info *MediaInfo `json:"info,omitempty"`
}

// FileContent is an m.file message.
type FileContent struct {
	Body     string     `json:"body"`
	URL      string     `json:"url"`
	Filename string     `json:"filename,omitempty"`
	Info     *MediaInfo `json:"info,omitempty"`
}

// VideoContent is an m.video message.
type VideoContent ImageContent

// AudioContent is an m.audio message.
type AudioContent ImageContent

// LocationContent is an m.location message. GeoURI is an RFC 5870
// "geo:" URI.
type LocationContent struct {
	Body   string `json:"body"`
	GeoURI string `json:"geo_uri"`
}

func (TextContent) MsgType() MsgType     { return MsgTypeText }
func (EmoteContent) MsgType() MsgType    { return MsgTypeEmote }
func (NoticeContent) MsgType() MsgType   { return MsgTypeNotice }
func (ImageContent) MsgType() MsgType    { return MsgTypeImage }
func (FileContent) MsgType() MsgType     { return MsgTypeFile }
func (VideoContent) MsgType() MsgType    { return MsgTypeVideo }
func (AudioContent) MsgType() MsgType    { return MsgTypeAudio }
func (LocationContent) MsgType() MsgType { return MsgTypeLocation }

func (c TextContent) MessageBody() string     { return c.Body }
func (c EmoteContent) MessageBody() string    { return c.Body }
func (c NoticeContent) MessageBody() string   { return c.Body }
func (c ImageContent) MessageBody() string    { return c.Body }
func (c FileContent) MessageBody() string     { return c.Body }
func (c VideoContent) MessageBody() string    { return c.Body }
func (c AudioContent) MessageBody() string    { return c.Body }
func (c LocationContent) MessageBody() string { return c.Body }

func (TextContent) isMessageContent()     {}
func (EmoteContent) isMessageContent()    {}
func (NoticeContent) isMessageContent()   {}
func (ImageContent) isMessageContent()    {}
func (FileContent) isMessageContent()     {}
func (VideoContent) isMessageContent()    {}
func (AudioContent) isMessageContent()    {}
func (LocationContent) isMessageContent() {}

// Each MarshalJSON converts to a local type without methods and embeds
// it, so the variant's fields are promoted next to "msgtype".

func (c TextContent) MarshalJSON() ([]byte, error) {
	type plain TextContent
	return json.Marshal(struct {
		MsgType MsgType `json:"msgtype"`
		plain
	}{MsgTypeText, plain(c)})
}

func (c EmoteContent) MarshalJSON() ([]byte, error) {
	type plain EmoteContent
	return json.Marshal(struct {
		MsgType MsgType `json:"msgtype"`
		plain
	}{MsgTypeEmote, plain(c)})
}

func (c NoticeContent) MarshalJSON() ([]byte, error) {
	type plain NoticeContent
	return json.Marshal(struct {
		MsgType MsgType `json:"msgtype"`
		plain
	}{MsgTypeNotice, plain(c)})
}

func (c ImageContent) MarshalJSON() ([]byte, error) {
	type plain ImageContent
	return json.Marshal(struct {
		MsgType MsgType `json:"msgtype"`
		plain
	}{MsgTypeImage, plain(c)})
}

func (c FileContent) MarshalJSON() ([]byte, error) {
	type plain FileContent
	return json.Marshal(struct {
		MsgType MsgType `json:"msgtype"`
		plain
	}{MsgTypeFile, plain(c)})
}

func (c VideoContent) MarshalJSON() ([]byte, error) {
	type plain VideoContent
	return json.Marshal(struct {
		MsgType MsgType `json:"msgtype"`
		plain
	}{MsgTypeVideo, plain(c)})
}

func (c AudioContent) MarshalJSON() ([]byte, error) {
	type plain AudioContent
	return json.Marshal(struct {
		MsgType MsgType `json:"msgtype"`
		plain
	}{MsgTypeAudio, plain(c)})
}

func (c LocationContent) MarshalJSON() ([]byte, error) {
	type plain LocationContent
	return json.Marshal(struct {
		MsgType MsgType `json:"msgtype"`
		plain
	}{MsgTypeLocation, plain(c)})
}

// NewTextMessage creates a plain text message.
func NewTextMessage(body string) TextContent {
	return TextContent{Body: body}
}

// NewNoticeMessage creates a notice, the message type bots use for
// automated output.
func NewNoticeMessage(body string) NoticeContent {
	return NoticeContent{Body: body}
}

// NewEmoteMessage creates an emote ("/me") message.
func NewEmoteMessage(body string) EmoteContent {
	return EmoteContent{Body: body}
}
