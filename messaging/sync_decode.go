// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/bureau-foundation/matrixbot/lib/ref"
)

// SyncResult is a decoded /sync response, reduced to what the bot
// library consumes.
type SyncResult struct {
	// NextBatch is the cursor token for the next incremental sync,
	// stored verbatim. Empty when the response did not include one.
	NextBatch string

	// Rooms holds per-room data for joined and invited rooms.
	Rooms SyncRooms

	// Dropped lists timeline and invite-state events that were left
	// out of Rooms, in the order encountered (rooms in sorted ID
	// order, events in delivery order).
	Dropped []DroppedEvent
}

// SyncRooms groups per-room data by membership. Rooms with no changes
// are absent from the maps.
type SyncRooms struct {
	Join   map[ref.RoomID]JoinedRoom
	Invite map[ref.RoomID]InvitedRoom
}

// JoinedRoom is the sync data for a room the user has joined.
type JoinedRoom struct {
	Timeline Timeline
}

// Timeline is the ordered timeline of a joined room, oldest first.
type Timeline struct {
	Events    []RoomEvent
	PrevBatch string
	Limited   bool
}

// InvitedRoom is the sync data for a room the user was invited to.
type InvitedRoom struct {
	// InviteState is the stripped room state the inviting server
	// shared with the invite.
	InviteState []StrippedStateEvent
}

// StrippedStateEvent is a state event as it appears in invite_state:
// no event ID and no timestamp.
type StrippedStateEvent struct {
	Type     ref.EventType
	StateKey string
	Sender   ref.UserID
	Content  json.RawMessage
}

// Membership returns the membership of an m.room.member stripped
// event, or "" for any other event type or unreadable content.
func (e StrippedStateEvent) Membership() Membership {
	if e.Type != ref.EventTypeMember {
		return ""
	}
	var content struct {
		Membership Membership `json:"membership"`
	}
	if err := json.Unmarshal(e.Content, &content); err != nil {
		return ""
	}
	return content.Membership
}

// Invited reports whether the invite state holds at least one
// m.room.member event with membership "invite".
func (r InvitedRoom) Invited() bool {
	for _, event := range r.InviteState {
		if event.Membership() == MembershipInvite {
			return true
		}
	}
	return false
}

// Inviter returns the sender of the first invite membership event, or
// the zero UserID if there is none.
func (r InvitedRoom) Inviter() ref.UserID {
	for _, event := range r.InviteState {
		if event.Membership() == MembershipInvite {
			return event.Sender
		}
	}
	return ref.UserID{}
}

// Name returns the room name from an m.room.name event in the invite
// state, or "" if the inviting server did not share one.
func (r InvitedRoom) Name() string {
	for _, event := range r.InviteState {
		if event.Type != ref.EventTypeRoomName {
			continue
		}
		var content struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(event.Content, &content) == nil {
			return content.Name
		}
	}
	return ""
}

// DropReason says why an event was left out of a SyncResult.
type DropReason string

const (
	// DropUnrecognized marks an event whose type (or message type) is
	// not one the event model represents.
	DropUnrecognized DropReason = "unrecognized"

	// DropMalformed marks an event of a recognized type that is missing
	// a required field or has a field of the wrong shape.
	DropMalformed DropReason = "malformed"
)

// DroppedEvent records one event left out of a SyncResult.
type DroppedEvent struct {
	Room      ref.RoomID
	Index     int
	EventType ref.EventType
	MsgType   MsgType
	Reason    DropReason

	// Err is a *DecodeError when Reason is DropMalformed.
	Err error
}

// DecodeSync decodes a raw /sync response body.
//
// Decoding dispatches on each event's "type" and then, for messages, on
// "content.msgtype" before decoding the rest of the event. Events with
// an unrecognized tag are dropped, as are recognized events that are
// missing a required field; both are recorded in SyncResult.Dropped and
// never fail the decode. Everything around the events must be
// well-formed: a body that is not a JSON object, a next_batch that is
// not a string, a rooms section or room entry that is not an object, an
// invalid room ID key, or a timeline whose events field is not an array
// fails with a *DecodeError.
func DecodeSync(body []byte) (*SyncResult, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if envelope == nil {
		return nil, &DecodeError{Err: errors.New("response is null")}
	}

	result := &SyncResult{
		Rooms: SyncRooms{
			Join:   map[ref.RoomID]JoinedRoom{},
			Invite: map[ref.RoomID]InvitedRoom{},
		},
	}

	nextBatch, _, err := readString(envelope, "next_batch")
	if err != nil {
		return nil, &DecodeError{Path: "next_batch", Err: err}
	}
	result.NextBatch = nextBatch

	rooms, err := readObject(envelope, "rooms")
	if err != nil {
		return nil, &DecodeError{Path: "rooms", Err: err}
	}

	joined, err := readObject(rooms, "join")
	if err != nil {
		return nil, &DecodeError{Path: "rooms.join", Err: err}
	}
	for _, key := range sortedKeys(joined) {
		path := fmt.Sprintf("rooms.join[%s]", key)
		roomID, err := ref.ParseRoomID(key)
		if err != nil {
			return nil, &DecodeError{Path: path, Err: err}
		}
		room, err := result.decodeJoinedRoom(roomID, path, joined[key])
		if err != nil {
			return nil, err
		}
		result.Rooms.Join[roomID] = room
	}

	invited, err := readObject(rooms, "invite")
	if err != nil {
		return nil, &DecodeError{Path: "rooms.invite", Err: err}
	}
	for _, key := range sortedKeys(invited) {
		path := fmt.Sprintf("rooms.invite[%s]", key)
		roomID, err := ref.ParseRoomID(key)
		if err != nil {
			return nil, &DecodeError{Path: path, Err: err}
		}
		room, err := result.decodeInvitedRoom(roomID, path, invited[key])
		if err != nil {
			return nil, err
		}
		result.Rooms.Invite[roomID] = room
	}

	return result, nil
}

func (result *SyncResult) decodeJoinedRoom(roomID ref.RoomID, path string, raw json.RawMessage) (JoinedRoom, error) {
	var room JoinedRoom

	fields, err := asObject(raw)
	if err != nil {
		return room, &DecodeError{Path: path, Err: err}
	}
	timeline, err := readObject(fields, "timeline")
	if err != nil {
		return room, &DecodeError{Path: path + ".timeline", Err: err}
	}

	if room.Timeline.PrevBatch, _, err = readString(timeline, "prev_batch"); err != nil {
		return room, &DecodeError{Path: path + ".timeline.prev_batch", Err: err}
	}
	if limited, ok := timeline["limited"]; ok && !isNull(limited) {
		if err := json.Unmarshal(limited, &room.Timeline.Limited); err != nil {
			return room, &DecodeError{Path: path + ".timeline.limited", Err: errWrongShape}
		}
	}

	events, err := readArray(timeline, "events")
	if err != nil {
		return room, &DecodeError{Path: path + ".timeline.events", Err: err}
	}
	for index, rawEvent := range events {
		eventPath := fmt.Sprintf("%s.timeline.events[%d]", path, index)
		event, dropped := decodeRoomEvent(eventPath, rawEvent)
		if dropped != nil {
			dropped.Room = roomID
			dropped.Index = index
			result.Dropped = append(result.Dropped, *dropped)
			continue
		}
		room.Timeline.Events = append(room.Timeline.Events, event)
	}
	return room, nil
}

func (result *SyncResult) decodeInvitedRoom(roomID ref.RoomID, path string, raw json.RawMessage) (InvitedRoom, error) {
	var room InvitedRoom

	fields, err := asObject(raw)
	if err != nil {
		return room, &DecodeError{Path: path, Err: err}
	}
	inviteState, err := readObject(fields, "invite_state")
	if err != nil {
		return room, &DecodeError{Path: path + ".invite_state", Err: err}
	}
	events, err := readArray(inviteState, "events")
	if err != nil {
		return room, &DecodeError{Path: path + ".invite_state.events", Err: err}
	}

	for index, rawEvent := range events {
		eventPath := fmt.Sprintf("%s.invite_state.events[%d]", path, index)
		event, err := decodeStrippedEvent(eventPath, rawEvent)
		if err != nil {
			result.Dropped = append(result.Dropped, DroppedEvent{
				Room:      roomID,
				Index:     index,
				EventType: event.Type,
				Reason:    DropMalformed,
				Err:       err,
			})
			continue
		}
		room.InviteState = append(room.InviteState, event)
	}
	return room, nil
}

// decodeRoomEvent decodes one timeline event. Exactly one of the
// results is non-nil.
func decodeRoomEvent(path string, raw json.RawMessage) (RoomEvent, *DroppedEvent) {
	fields, err := asObject(raw)
	if err != nil {
		return nil, &DroppedEvent{Reason: DropMalformed, Err: &DecodeError{Path: path, Err: err}}
	}
	eventType, _, err := readString(fields, "type")
	if err != nil {
		return nil, &DroppedEvent{Reason: DropMalformed, Err: &DecodeError{Path: path, Field: "type", Err: err}}
	}

	reader := fieldReader{path: path, variant: eventType, fields: fields}
	switch ref.EventType(eventType) {
	case ref.EventTypeMessage:
		event, msgType, err := decodeMessageEvent(reader)
		if err != nil {
			return nil, &DroppedEvent{EventType: ref.EventTypeMessage, MsgType: msgType, Reason: DropMalformed, Err: err}
		}
		if event == nil {
			return nil, &DroppedEvent{EventType: ref.EventTypeMessage, MsgType: msgType, Reason: DropUnrecognized}
		}
		return event, nil

	case ref.EventTypeMember:
		event, err := decodeMemberEvent(reader)
		if err != nil {
			return nil, &DroppedEvent{EventType: ref.EventTypeMember, Reason: DropMalformed, Err: err}
		}
		return event, nil

	case ref.EventTypeRedaction:
		event, err := decodeRedactionEvent(reader)
		if err != nil {
			return nil, &DroppedEvent{EventType: ref.EventTypeRedaction, Reason: DropMalformed, Err: err}
		}
		return event, nil

	default:
		return nil, &DroppedEvent{EventType: ref.EventType(eventType), Reason: DropUnrecognized}
	}
}

func decodeHeader(reader fieldReader) (EventHeader, error) {
	var header EventHeader

	sender, err := reader.requireString("sender")
	if err != nil {
		return header, err
	}
	if header.Sender, err = ref.ParseUserID(sender); err != nil {
		return header, reader.fail("sender", err)
	}

	// event_id and origin_server_ts are informational: an unusable
	// value leaves the field zero and the event is kept.
	if eventID, err := ref.ParseEventID(reader.lenientString("event_id")); err == nil {
		header.EventID = eventID
	}
	if timestamp, ok := reader.fields["origin_server_ts"]; ok {
		header.OriginServerTS, _ = readInteger(timestamp)
	}
	return header, nil
}

// decodeMessageEvent returns (nil, msgType, nil) for an unrecognized
// or absent msgtype. A message with no msgtype is what a redacted
// message looks like, so it is skipped rather than treated as broken.
func decodeMessageEvent(reader fieldReader) (*MessageEvent, MsgType, error) {
	content, err := reader.requireObject("content")
	if err != nil {
		return nil, "", err
	}
	rawMsgType, _, err := readString(content.fields, "msgtype")
	if err != nil {
		return nil, "", content.fail("msgtype", err)
	}
	msgType := MsgType(rawMsgType)
	content.variant = reader.variant + "/" + rawMsgType

	var decoded MessageContent
	switch msgType {
	case MsgTypeText:
		var text TextContent
		text, err = decodeTextFields(content)
		decoded = text
	case MsgTypeEmote:
		var text TextContent
		text, err = decodeTextFields(content)
		decoded = EmoteContent(text)
	case MsgTypeNotice:
		var text TextContent
		text, err = decodeTextFields(content)
		decoded = NoticeContent(text)
	case MsgTypeImage:
		var media ImageContent
		media, err = decodeMediaFields(content)
		decoded = media
	case MsgTypeVideo:
		var media ImageContent
		media, err = decodeMediaFields(content)
		decoded = VideoContent(media)
	case MsgTypeAudio:
		var media ImageContent
		media, err = decodeMediaFields(content)
		decoded = AudioContent(media)
	case MsgTypeFile:
		decoded, err = decodeFileFields(content)
	case MsgTypeLocation:
		decoded, err = decodeLocationFields(content)
	default:
		return nil, msgType, nil
	}
	if err != nil {
		return nil, msgType, err
	}

	// Header fields are only checked for recognized message types.
	reader.variant = content.variant
	header, err := decodeHeader(reader)
	if err != nil {
		return nil, msgType, err
	}
	return &MessageEvent{EventHeader: header, Content: decoded}, msgType, nil
}

func decodeTextFields(content fieldReader) (TextContent, error) {
	var text TextContent
	var err error
	if text.Body, err = content.requireString("body"); err != nil {
		return text, err
	}
	text.Format = content.lenientString("format")
	text.FormattedBody = content.lenientString("formatted_body")
	return text, nil
}

func decodeMediaFields(content fieldReader) (ImageContent, error) {
	var media ImageContent
	var err error
	if media.Body, err = content.requireString("body"); err != nil {
		return media, err
	}
	if media.URL, err = content.requireString("url"); err != nil {
		return media, err
	}
	media.Info = decodeMediaInfo(content)
	return media, nil
}

func decodeFileFields(content fieldReader) (FileContent, error) {
	var file FileContent
	var err error
	if file.Body, err = content.requireString("body"); err != nil {
		return file, err
	}
	if file.URL, err = content.requireString("url"); err != nil {
		return file, err
	}
	file.Filename = content.lenientString("filename")
	file.Info = decodeMediaInfo(content)
	return file, nil
}

func decodeLocationFields(content fieldReader) (LocationContent, error) {
	var location LocationContent
	var err error
	if location.Body, err = content.requireString("body"); err != nil {
		return location, err
	}
	if location.GeoURI, err = content.requireString("geo_uri"); err != nil {
		return location, err
	}
	return location, nil
}

// decodeMediaInfo reads the optional info block field by field. A
// block that is not an object reads as absent; a mimetype or size of the
// wrong shape reads as zero. Numeric strings ("2048") are accepted as
// sizes since some clients send them.
func decodeMediaInfo(content fieldReader) *MediaInfo {
	raw, ok := content.fields["info"]
	if !ok || isNull(raw) {
		return nil
	}
	fields, err := asObject(raw)
	if err != nil {
		return nil
	}
	info := &MediaInfo{}
	info.MimeType, _, _ = readString(fields, "mimetype")
	if size, ok := fields["size"]; ok {
		if value, ok := readInteger(size); ok && value >= 0 {
			info.Size = value
		}
	}
	return info
}

func decodeMemberEvent(reader fieldReader) (*MemberEvent, error) {
	header, err := decodeHeader(reader)
	if err != nil {
		return nil, err
	}
	event := &MemberEvent{EventHeader: header}

	stateKey, err := reader.requireString("state_key")
	if err != nil {
		return nil, err
	}
	if event.StateKey, err = ref.ParseUserID(stateKey); err != nil {
		return nil, reader.fail("state_key", err)
	}

	content, err := reader.requireObject("content")
	if err != nil {
		return nil, err
	}
	membership, err := content.requireString("membership")
	if err != nil {
		return nil, err
	}
	event.Membership = Membership(membership)
	event.DisplayName = content.lenientString("displayname")
	return event, nil
}

// decodeRedactionEvent accepts "redacts" at the top level (room
// versions before 11) or inside content (room version 11).
func decodeRedactionEvent(reader fieldReader) (*RedactionEvent, error) {
	header, err := decodeHeader(reader)
	if err != nil {
		return nil, err
	}
	event := &RedactionEvent{EventHeader: header}

	redacts, err := reader.optionalString("redacts")
	if err != nil {
		return nil, err
	}
	content, err := reader.optionalObject("content")
	if err != nil {
		return nil, err
	}
	if redacts == "" {
		if redacts, err = content.optionalString("redacts"); err != nil {
			return nil, err
		}
	}
	if redacts == "" {
		return nil, reader.fail("redacts", errMissingField)
	}
	if event.Redacts, err = ref.ParseEventID(redacts); err != nil {
		return nil, reader.fail("redacts", err)
	}
	event.Reason = content.lenientString("reason")
	return event, nil
}

func decodeStrippedEvent(path string, raw json.RawMessage) (StrippedStateEvent, error) {
	var event StrippedStateEvent

	fields, err := asObject(raw)
	if err != nil {
		return event, &DecodeError{Path: path, Err: err}
	}
	eventType, _, err := readString(fields, "type")
	if err != nil {
		return event, &DecodeError{Path: path, Field: "type", Err: err}
	}
	event.Type = ref.EventType(eventType)

	reader := fieldReader{path: path, variant: eventType, fields: fields}
	if event.StateKey, err = reader.optionalString("state_key"); err != nil {
		return event, err
	}
	sender, err := reader.optionalString("sender")
	if err != nil {
		return event, err
	}
	if sender != "" {
		if event.Sender, err = ref.ParseUserID(sender); err != nil {
			return event, reader.fail("sender", err)
		}
	}
	content, err := reader.optionalObject("content")
	if err != nil {
		return event, err
	}
	if content.raw != nil {
		event.Content = content.raw
	} else {
		event.Content = json.RawMessage("{}")
	}
	return event, nil
}

// fieldReader reads typed fields out of one JSON object and builds
// DecodeErrors that name where the object sits in the response.
type fieldReader struct {
	path    string
	variant string
	prefix  string
	fields  map[string]json.RawMessage
	raw     json.RawMessage
}

func (r fieldReader) fail(field string, err error) *DecodeError {
	return &DecodeError{Path: r.path, Variant: r.variant, Field: r.prefix + field, Err: err}
}

func (r fieldReader) requireString(name string) (string, error) {
	value, present, err := readString(r.fields, name)
	if err != nil {
		return "", r.fail(name, err)
	}
	if !present {
		return "", r.fail(name, errMissingField)
	}
	return value, nil
}

func (r fieldReader) optionalString(name string) (string, error) {
	value, _, err := readString(r.fields, name)
	if err != nil {
		return "", r.fail(name, err)
	}
	return value, nil
}

// lenientString reads a string that only decorates the event. Absent,
// null, and wrongly typed members all read as "".
func (r fieldReader) lenientString(name string) string {
	value, _, err := readString(r.fields, name)
	if err != nil {
		return ""
	}
	return value
}

func (r fieldReader) requireObject(name string) (fieldReader, error) {
	raw, ok := r.fields[name]
	if !ok || isNull(raw) {
		return fieldReader{}, r.fail(name, errMissingField)
	}
	return r.child(name, raw)
}

// optionalObject returns a reader over an empty object when the field
// is absent, so callers can read optional fields from it unconditionally.
func (r fieldReader) optionalObject(name string) (fieldReader, error) {
	raw, ok := r.fields[name]
	if !ok || isNull(raw) {
		return fieldReader{path: r.path, variant: r.variant, prefix: r.prefix + name + "."}, nil
	}
	return r.child(name, raw)
}

func (r fieldReader) child(name string, raw json.RawMessage) (fieldReader, error) {
	fields, err := asObject(raw)
	if err != nil {
		return fieldReader{}, r.fail(name, errWrongShape)
	}
	return fieldReader{
		path:    r.path,
		variant: r.variant,
		prefix:  r.prefix + name + ".",
		fields:  fields,
		raw:     raw,
	}, nil
}

// readString reads an optional string member. A missing or null
// member reports present=false; any other non-string is errWrongShape.
func readString(fields map[string]json.RawMessage, name string) (value string, present bool, err error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return "", false, nil
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", true, errWrongShape
	}
	return value, true, nil
}

// readInteger reads a JSON number, or a string holding one, as an
// int64. Fractional and exponent forms (1.7e12) are truncated. ok is
// false for null, non-numeric values, and values out of int64 range.
func readInteger(raw json.RawMessage) (value int64, ok bool) {
	if isNull(raw) {
		return 0, false
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return 0, false
	}
	if value, err := number.Int64(); err == nil {
		return value, true
	}
	float, err := number.Float64()
	if err != nil || math.IsNaN(float) || float >= math.MaxInt64 || float < math.MinInt64 {
		return 0, false
	}
	return int64(float), true
}

// readObject reads an optional object member. Missing and null read as
// an empty object.
func readObject(fields map[string]json.RawMessage, name string) (map[string]json.RawMessage, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return map[string]json.RawMessage{}, nil
	}
	return asObject(raw)
}

// readArray reads an optional array member. Missing and null read as
// an empty array.
func readArray(fields map[string]json.RawMessage, name string) ([]json.RawMessage, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, errWrongShape
	}
	return elements, nil
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errWrongShape
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func sortedKeys(fields map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
