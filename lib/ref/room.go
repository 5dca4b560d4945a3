// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// RoomID is a validated Matrix room ID (e.g., "!abc123:example.org").
//
// Room IDs are server-assigned opaque identifiers that start with '!'.
// Older room versions append ":server"; room version 12 IDs are a bare
// hash ("!Yx9...") with no server part. Bot code never constructs room
// IDs itself: they come from configuration, alias resolution, room
// creation, or /sync responses, and are parsed into this type at the
// boundary.
//
// RoomID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type RoomID struct {
	id string
}

// ParseRoomID validates and wraps a raw Matrix room ID string. The
// string must start with '!' and have a non-empty opaque part without
// whitespace or control characters. A ':server' suffix is optional, but
// when a colon is present both sides of it must be non-empty.
func ParseRoomID(raw string) (RoomID, error) {
	if raw == "" {
		return RoomID{}, fmt.Errorf("empty room ID")
	}
	if raw[0] != '!' {
		return RoomID{}, fmt.Errorf("room ID must start with '!': %q", raw)
	}
	if len(raw) == 1 {
		return RoomID{}, fmt.Errorf("room ID has empty opaque part: %q", raw)
	}
	for i := 1; i < len(raw); i++ {
		if raw[i] <= ' ' || raw[i] == 0x7f {
			return RoomID{}, fmt.Errorf("room ID %q: invalid character at position %d", raw, i)
		}
	}
	if strings.IndexByte(raw, ':') >= 0 {
		if _, server, err := parsePrefixedID(raw, '!', "room ID"); err != nil {
			return RoomID{}, err
		} else if err := validateServer(server); err != nil {
			return RoomID{}, fmt.Errorf("room ID %q: %w", raw, err)
		}
	}
	return RoomID{id: raw}, nil
}

// MustParseRoomID is like ParseRoomID but panics on error. Use in
// tests and static initialization where the input is known-valid.
func MustParseRoomID(raw string) RoomID {
	r, err := ParseRoomID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseRoomID(%q): %v", raw, err))
	}
	return r
}

// String returns the full room ID string (e.g., "!abc123:example.org").
func (r RoomID) String() string { return r.id }

// IsZero reports whether the RoomID is the zero value (uninitialized).
func (r RoomID) IsZero() bool { return r.id == "" }

// Server returns the server part of the room ID (the homeserver that
// created the room). Returns "" for the zero value and for room IDs
// without a server part.
func (r RoomID) Server() string {
	if strings.IndexByte(r.id, ':') < 0 {
		return ""
	}
	_, server, _ := parsePrefixedID(r.id, '!', "room ID")
	return server
}

// MarshalText implements encoding.TextMarshaler.
func (r RoomID) MarshalText() ([]byte, error) {
	if r.id == "" {
		return []byte{}, nil
	}
	return []byte(r.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Validates the
// room ID format, which makes map[RoomID]T keys self-validating when
// decoding JSON. An empty input produces the zero value.
func (r *RoomID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*r = RoomID{}
		return nil
	}
	parsed, err := ParseRoomID(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoomAlias is a validated Matrix room alias (e.g., "#lobby:example.org").
//
// Room aliases are human-readable names that resolve to opaque RoomIDs
// through the homeserver's room directory. They always start with '#'
// and contain a ':' separating the localpart from the server name.
type RoomAlias struct {
	alias string
}

// ParseRoomAlias validates and wraps a raw Matrix room alias string.
func ParseRoomAlias(raw string) (RoomAlias, error) {
	if _, _, err := parsePrefixedID(raw, '#', "room alias"); err != nil {
		return RoomAlias{}, err
	}
	return RoomAlias{alias: raw}, nil
}

// MustParseRoomAlias is like ParseRoomAlias but panics on error.
func MustParseRoomAlias(raw string) RoomAlias {
	a, err := ParseRoomAlias(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseRoomAlias(%q): %v", raw, err))
	}
	return a
}

// String returns the full room alias string.
func (a RoomAlias) String() string { return a.alias }

// IsZero reports whether the RoomAlias is the zero value.
func (a RoomAlias) IsZero() bool { return a.alias == "" }

// Localpart returns the alias localpart without the '#' prefix or
// ':server' suffix.
func (a RoomAlias) Localpart() string {
	if a.alias == "" {
		return ""
	}
	localpart, _, _ := parsePrefixedID(a.alias, '#', "room alias")
	return localpart
}

// Server returns the server name from the alias.
func (a RoomAlias) Server() string {
	if a.alias == "" {
		return ""
	}
	_, server, _ := parsePrefixedID(a.alias, '#', "room alias")
	return server
}

// MarshalText implements encoding.TextMarshaler.
func (a RoomAlias) MarshalText() ([]byte, error) {
	if a.alias == "" {
		return []byte{}, nil
	}
	return []byte(a.alias), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *RoomAlias) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = RoomAlias{}
		return nil
	}
	parsed, err := ParseRoomAlias(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// RoomTarget is either a room ID or a room alias: the form operators
// write in configuration files and on the command line when naming a
// room to join. Exactly one of the two fields is set.
type RoomTarget struct {
	ID    RoomID
	Alias RoomAlias
}

// ParseRoomTarget dispatches on the sigil: '!' parses a room ID, '#'
// parses a room alias. Anything else is an error.
func ParseRoomTarget(raw string) (RoomTarget, error) {
	switch {
	case strings.HasPrefix(raw, "!"):
		roomID, err := ParseRoomID(raw)
		if err != nil {
			return RoomTarget{}, err
		}
		return RoomTarget{ID: roomID}, nil
	case strings.HasPrefix(raw, "#"):
		alias, err := ParseRoomAlias(raw)
		if err != nil {
			return RoomTarget{}, err
		}
		return RoomTarget{Alias: alias}, nil
	default:
		return RoomTarget{}, fmt.Errorf("room %q must be a room ID (!opaque or !opaque:server) or alias (#name:server)", raw)
	}
}

// String returns whichever identifier is set.
func (t RoomTarget) String() string {
	if !t.ID.IsZero() {
		return t.ID.String()
	}
	return t.Alias.String()
}

// IsZero reports whether neither identifier is set.
func (t RoomTarget) IsZero() bool { return t.ID.IsZero() && t.Alias.IsZero() }
