// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseRoomID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "valid simple", input: "!abc:example.org"},
		{name: "valid with port in server", input: "!opaque:localhost:6167"},
		{name: "valid long opaque part", input: "!726s6s6q:example.com"},
		{name: "empty string", input: "", wantErr: "empty room ID"},
		{name: "missing bang prefix", input: "abc123:example.org", wantErr: "must start with '!'"},
		{name: "wrong prefix sigil", input: "#room:example.org", wantErr: "must start with '!'"},
		{name: "valid without server", input: "!Yx9hashbasedv12roomid"},
		{name: "whitespace in opaque part", input: "!abc 123", wantErr: "invalid character"},
		{name: "invalid server name", input: "!abc:exa@mple.org", wantErr: "invalid character"},
		{name: "empty local part", input: "!:example.org", wantErr: "empty local part"},
		{name: "empty server name", input: "!abc123:", wantErr: "empty server name"},
		{name: "bang only", input: "!", wantErr: "empty opaque part"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			roomID, err := ParseRoomID(test.input)
			if test.wantErr != "" {
				if err == nil {
					t.Fatalf("ParseRoomID(%q) succeeded, want error containing %q", test.input, test.wantErr)
				}
				if !strings.Contains(err.Error(), test.wantErr) {
					t.Fatalf("ParseRoomID(%q) error = %q, want error containing %q", test.input, err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRoomID(%q) unexpected error: %v", test.input, err)
			}
			if roomID.String() != test.input {
				t.Errorf("String() = %q, want %q", roomID.String(), test.input)
			}
		})
	}
}

func TestRoomIDServer(t *testing.T) {
	if got := MustParseRoomID("!opaque:localhost:6167").Server(); got != "localhost:6167" {
		t.Errorf("Server() = %q, want %q", got, "localhost:6167")
	}
	if got := MustParseRoomID("!Yx9hashbasedv12roomid").Server(); got != "" {
		t.Errorf("serverless Server() = %q, want empty", got)
	}
	if got := (RoomID{}).Server(); got != "" {
		t.Errorf("zero Server() = %q, want empty", got)
	}
}

func TestRoomIDAsMapKey(t *testing.T) {
	var rooms map[RoomID]int
	if err := json.Unmarshal([]byte(`{"!abc:example.org":1,"!def:example.org":2}`), &rooms); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if rooms[MustParseRoomID("!def:example.org")] != 2 {
		t.Errorf("rooms = %v", rooms)
	}

	err := json.Unmarshal([]byte(`{"not-a-room":1}`), &rooms)
	if err == nil {
		t.Fatal("expected error for invalid room ID key")
	}

	data, err := json.Marshal(map[RoomID]int{MustParseRoomID("!abc:example.org"): 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"!abc:example.org":1}` {
		t.Errorf("Marshal = %s", data)
	}
}

func TestParseUserID(t *testing.T) {
	tests := []struct {
		input         string
		wantLocalpart string
		wantServer    string
		wantErr       bool
	}{
		{input: "@alice:example.org", wantLocalpart: "alice", wantServer: "example.org"},
		{input: "@bot:localhost:8008", wantLocalpart: "bot", wantServer: "localhost:8008"},
		{input: "@Legacy_User:example.org", wantLocalpart: "Legacy_User", wantServer: "example.org"},
		{input: "", wantErr: true},
		{input: "alice:example.org", wantErr: true},
		{input: "@alice", wantErr: true},
		{input: "@:example.org", wantErr: true},
		{input: "@alice:", wantErr: true},
	}

	for _, test := range tests {
		userID, err := ParseUserID(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseUserID(%q): err=%v, wantErr=%v", test.input, err, test.wantErr)
			continue
		}
		if test.wantErr {
			continue
		}
		if userID.Localpart() != test.wantLocalpart {
			t.Errorf("ParseUserID(%q).Localpart() = %q, want %q", test.input, userID.Localpart(), test.wantLocalpart)
		}
		if userID.Server().String() != test.wantServer {
			t.Errorf("ParseUserID(%q).Server() = %q, want %q", test.input, userID.Server(), test.wantServer)
		}
	}
}

func TestMatrixUserID(t *testing.T) {
	server, err := ParseServerName("example.org")
	if err != nil {
		t.Fatalf("ParseServerName: %v", err)
	}
	userID, err := MatrixUserID("echo-bot", server)
	if err != nil {
		t.Fatalf("MatrixUserID: %v", err)
	}
	if userID.String() != "@echo-bot:example.org" {
		t.Errorf("MatrixUserID = %q", userID)
	}
	if _, err := MatrixUserID("", server); err == nil {
		t.Error("expected error for empty localpart")
	}
}

func TestParseServerName(t *testing.T) {
	for _, valid := range []string{"example.org", "localhost:8008", "[::1]:8448"} {
		if _, err := ParseServerName(valid); err != nil {
			t.Errorf("ParseServerName(%q): %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "exa mple.org", "@example.org", "#x", "!x"} {
		if _, err := ParseServerName(invalid); err == nil {
			t.Errorf("ParseServerName(%q) succeeded, want error", invalid)
		}
	}
}

func TestParseEventID(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		// Room version 4+ hash-based IDs.
		{"$abc123xyz", false},
		{"$VGhpcyBpcyBhIHRlc3Q", false},
		// Legacy format with server.
		{"$something:server.local", false},
		{"", true},
		{"!abc123", true},
		{"@abc123", true},
		{"abc123", true},
		{"$", true},
	}

	for _, test := range tests {
		_, err := ParseEventID(test.input)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseEventID(%q): err=%v, wantErr=%v", test.input, err, test.wantErr)
		}
	}
}

func TestParseRoomTarget(t *testing.T) {
	target, err := ParseRoomTarget("!abc:example.org")
	if err != nil {
		t.Fatalf("ParseRoomTarget(room ID): %v", err)
	}
	if target.ID.String() != "!abc:example.org" || !target.Alias.IsZero() {
		t.Errorf("target = %+v", target)
	}

	target, err = ParseRoomTarget("#lobby:example.org")
	if err != nil {
		t.Fatalf("ParseRoomTarget(alias): %v", err)
	}
	if target.Alias.Localpart() != "lobby" || !target.ID.IsZero() {
		t.Errorf("target = %+v", target)
	}
	if target.String() != "#lobby:example.org" {
		t.Errorf("String() = %q", target.String())
	}

	for _, invalid := range []string{"", "lobby", "@alice:example.org", "#lobby"} {
		if _, err := ParseRoomTarget(invalid); err == nil {
			t.Errorf("ParseRoomTarget(%q) succeeded, want error", invalid)
		}
	}
}

func TestZeroValuesMarshalEmpty(t *testing.T) {
	type wrapper struct {
		Room  RoomID  `json:"room"`
		User  UserID  `json:"user"`
		Event EventID `json:"event"`
	}
	data, err := json.Marshal(wrapper{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"room":"","user":"","event":""}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var decoded wrapper
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Room.IsZero() || !decoded.User.IsZero() || !decoded.Event.IsZero() {
		t.Errorf("decoded = %+v, want zero values", decoded)
	}
}
