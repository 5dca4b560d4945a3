// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/lib/testutil"
)

// newTestSession returns a session authenticated against homeserver
// with its accepted token.
func newTestSession(t *testing.T, homeserver *testutil.Homeserver) *DirectSession {
	t.Helper()
	session, err := newTestClient(t, homeserver).SessionFromToken(
		ref.MustParseUserID(homeserver.UserID()),
		testBuffer(t, homeserver.AccessToken()),
	)
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

// newHandlerSession returns a session against a one-off handler, for
// endpoints the fake homeserver does not script.
func newHandlerSession(t *testing.T, handler http.HandlerFunc) *DirectSession {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{HomeserverURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	session, err := client.SessionFromToken(ref.MustParseUserID("@bot:example.org"), testBuffer(t, "test-token"))
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func assertAuth(t *testing.T, request *http.Request) {
	t.Helper()
	if got := request.Header.Get("Authorization"); got != "Bearer test-token" {
		t.Errorf("Authorization = %q", got)
	}
}

func writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(value)
}

func TestSessionFromToken_EmptyToken(t *testing.T) {
	client, err := NewClient(ClientConfig{HomeserverURL: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if _, err := client.SessionFromToken(ref.UserID{}, nil); err == nil {
		t.Error("SessionFromToken(nil) succeeded")
	}
}

func TestSessionFromToken_CopiesToken(t *testing.T) {
	homeserver := testutil.NewHomeserver(t, testutil.HomeserverOptions{})
	token := testBuffer(t, homeserver.AccessToken())
	session, err := newTestClient(t, homeserver).SessionFromToken(ref.MustParseUserID(homeserver.UserID()), token)
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	defer session.Close()

	// Closing the caller's buffer leaves the session usable.
	token.Close()
	if _, err := session.WhoAmI(context.Background()); err != nil {
		t.Errorf("WhoAmI after caller closed token: %v", err)
	}
}

func TestDirectSession_SendMessage(t *testing.T) {
	homeserver := testutil.NewHomeserver(t, testutil.HomeserverOptions{})
	session := newTestSession(t, homeserver)
	roomID := ref.MustParseRoomID("!room:example.org")

	first, err := session.SendMessage(context.Background(), roomID, NewNoticeMessage("ahoi, @alice:example.org!"))
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	second, err := session.SendMessage(context.Background(), roomID, NewTextMessage("again"))
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if first == second {
		t.Errorf("two sends returned the same event ID %s", first)
	}

	sent := homeserver.Sent()
	if len(sent) != 2 {
		t.Fatalf("homeserver received %d events", len(sent))
	}
	if sent[0].RoomID != roomID.String() || sent[0].EventType != "m.room.message" {
		t.Errorf("sent[0] = %+v", sent[0])
	}
	if sent[0].TransactionID == sent[1].TransactionID {
		t.Errorf("transaction IDs repeat: %s", sent[0].TransactionID)
	}
	if !strings.HasPrefix(sent[0].TransactionID, "matrixbot-") {
		t.Errorf("transaction ID = %q", sent[0].TransactionID)
	}

	var content map[string]string
	if err := json.Unmarshal(sent[0].Content, &content); err != nil {
		t.Fatalf("sent content is not JSON: %v", err)
	}
	if content["msgtype"] != "m.notice" || content["body"] != "ahoi, @alice:example.org!" {
		t.Errorf("sent content = %v", content)
	}
}

func TestDirectSession_JoinRoom(t *testing.T) {
	homeserver := testutil.NewHomeserver(t, testutil.HomeserverOptions{
		Aliases: map[string]string{"#lobby:example.org": "!lobby:example.org"},
	})
	session := newTestSession(t, homeserver)

	byAlias, err := session.JoinRoom(context.Background(), ref.RoomTarget{Alias: ref.MustParseRoomAlias("#lobby:example.org")})
	if err != nil {
		t.Fatalf("JoinRoom by alias failed: %v", err)
	}
	if byAlias.String() != "!lobby:example.org" {
		t.Errorf("JoinRoom by alias = %s", byAlias)
	}

	byID, err := session.JoinRoom(context.Background(), ref.RoomTarget{ID: ref.MustParseRoomID("!other:example.org")})
	if err != nil {
		t.Fatalf("JoinRoom by ID failed: %v", err)
	}
	if byID.String() != "!other:example.org" {
		t.Errorf("JoinRoom by ID = %s", byID)
	}

	joined := homeserver.Joined()
	if len(joined) != 2 || joined[0] != "!lobby:example.org" || joined[1] != "!other:example.org" {
		t.Errorf("homeserver joined = %v", joined)
	}

	_, err = session.JoinRoom(context.Background(), ref.RoomTarget{Alias: ref.MustParseRoomAlias("#missing:example.org")})
	if !IsMatrixError(err, ErrCodeNotFound) {
		t.Errorf("JoinRoom unknown alias error = %v, want M_NOT_FOUND", err)
	}

	if _, err := session.JoinRoom(context.Background(), ref.RoomTarget{}); err == nil {
		t.Error("JoinRoom with empty target succeeded")
	}
}

func TestDirectSession_ResolveAlias(t *testing.T) {
	homeserver := testutil.NewHomeserver(t, testutil.HomeserverOptions{
		Aliases: map[string]string{"#lobby:example.org": "!lobby:example.org"},
	})
	session := newTestSession(t, homeserver)

	roomID, err := session.ResolveAlias(context.Background(), ref.MustParseRoomAlias("#lobby:example.org"))
	if err != nil {
		t.Fatalf("ResolveAlias failed: %v", err)
	}
	if roomID.String() != "!lobby:example.org" {
		t.Errorf("ResolveAlias = %s", roomID)
	}

	_, err = session.ResolveAlias(context.Background(), ref.MustParseRoomAlias("#nope:example.org"))
	if !IsMatrixError(err, ErrCodeNotFound) {
		t.Errorf("ResolveAlias error = %v, want M_NOT_FOUND", err)
	}
}

func TestDirectSession_LeaveRoom(t *testing.T) {
	homeserver := testutil.NewHomeserver(t, testutil.HomeserverOptions{})
	session := newTestSession(t, homeserver)

	if err := session.LeaveRoom(context.Background(), ref.MustParseRoomID("!room:example.org")); err != nil {
		t.Fatalf("LeaveRoom failed: %v", err)
	}
	if left := homeserver.Left(); len(left) != 1 || left[0] != "!room:example.org" {
		t.Errorf("homeserver left = %v", left)
	}
}

func TestDirectSession_CreateRoom(t *testing.T) {
	session := newHandlerSession(t, func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request)
		if request.Method != http.MethodPost || request.URL.Path != "/_matrix/client/v3/createRoom" {
			t.Errorf("unexpected request %s %s", request.Method, request.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Errorf("decoding createRoom body: %v", err)
		}
		if body["name"] != "Echo test" || body["preset"] != "private_chat" {
			t.Errorf("createRoom body = %v", body)
		}
		invite, _ := body["invite"].([]any)
		if len(invite) != 1 || invite[0] != "@alice:example.org" {
			t.Errorf("invite = %v", body["invite"])
		}
		writeJSON(writer, map[string]string{"room_id": "!new:example.org"})
	})

	response, err := session.CreateRoom(context.Background(), CreateRoomRequest{
		Name:   "Echo test",
		Preset: "private_chat",
		Invite: []ref.UserID{ref.MustParseUserID("@alice:example.org")},
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if response.RoomID.String() != "!new:example.org" {
		t.Errorf("RoomID = %s", response.RoomID)
	}
}

func TestDirectSession_InviteUser(t *testing.T) {
	var invited string
	session := newHandlerSession(t, func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request)
		if request.URL.Path != "/_matrix/client/v3/rooms/!room:example.org/invite" {
			t.Errorf("path = %s", request.URL.Path)
		}
		var body struct {
			UserID string `json:"user_id"`
		}
		json.NewDecoder(request.Body).Decode(&body)
		invited = body.UserID
		writeJSON(writer, map[string]string{})
	})

	err := session.InviteUser(context.Background(), ref.MustParseRoomID("!room:example.org"), ref.MustParseUserID("@alice:example.org"))
	if err != nil {
		t.Fatalf("InviteUser failed: %v", err)
	}
	if invited != "@alice:example.org" {
		t.Errorf("invited %q", invited)
	}
}

func TestDirectSession_JoinedRooms(t *testing.T) {
	session := newHandlerSession(t, func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request)
		writeJSON(writer, map[string][]string{"joined_rooms": {"!a:example.org", "!b:example.org"}})
	})

	rooms, err := session.JoinedRooms(context.Background())
	if err != nil {
		t.Fatalf("JoinedRooms failed: %v", err)
	}
	if len(rooms) != 2 || rooms[0].String() != "!a:example.org" {
		t.Errorf("JoinedRooms = %v", rooms)
	}
}

func TestDirectSession_Sync(t *testing.T) {
	homeserver := testutil.NewHomeserver(t, testutil.HomeserverOptions{})
	homeserver.QueueSyncJSON(string(readFixture(t, "sync_example.json")))
	session := newTestSession(t, homeserver)

	result, err := session.Sync(context.Background(), SyncOptions{Since: "s1", Timeout: 1000, SetTimeout: true})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if result.NextBatch != "s72595_4483_1934" {
		t.Errorf("NextBatch = %q", result.NextBatch)
	}
	query := homeserver.SyncRequests()[0]
	if query.Get("since") != "s1" || query.Get("timeout") != "1000" || query.Has("filter") {
		t.Errorf("sync query = %v", query)
	}
}

func TestRoom_OpenAndSend(t *testing.T) {
	homeserver := testutil.NewHomeserver(t, testutil.HomeserverOptions{
		Aliases: map[string]string{"#echo:example.org": "!echo:example.org"},
	})
	session := newTestSession(t, homeserver)

	target, err := ref.ParseRoomTarget("#echo:example.org")
	if err != nil {
		t.Fatalf("ParseRoomTarget: %v", err)
	}
	room, err := session.OpenRoom(context.Background(), target, CursorOptions{})
	if err != nil {
		t.Fatalf("OpenRoom failed: %v", err)
	}
	if room.ID().String() != "!echo:example.org" {
		t.Errorf("ID() = %s", room.ID())
	}
	if room.Cursor().Tracking() {
		t.Error("freshly opened room cursor is tracking")
	}

	ctx := context.Background()
	if _, err := room.SendText(ctx, "plain"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if _, err := room.SendNotice(ctx, "notice"); err != nil {
		t.Fatalf("SendNotice: %v", err)
	}
	if _, err := room.SendEmote(ctx, "waves"); err != nil {
		t.Fatalf("SendEmote: %v", err)
	}
	if _, err := room.SendMarkdown(ctx, "**bold**"); err != nil {
		t.Fatalf("SendMarkdown: %v", err)
	}

	sent := homeserver.Sent()
	wantTypes := []string{"m.text", "m.notice", "m.emote", "m.text"}
	if len(sent) != len(wantTypes) {
		t.Fatalf("sent %d events, want %d", len(sent), len(wantTypes))
	}
	for i, event := range sent {
		var content map[string]string
		json.Unmarshal(event.Content, &content)
		if content["msgtype"] != wantTypes[i] {
			t.Errorf("sent[%d] msgtype = %q, want %q", i, content["msgtype"], wantTypes[i])
		}
		if event.RoomID != "!echo:example.org" {
			t.Errorf("sent[%d] room = %s", i, event.RoomID)
		}
	}
	var markdown map[string]string
	json.Unmarshal(sent[3].Content, &markdown)
	if markdown["format"] != FormatHTML || markdown["formatted_body"] != "<p><strong>bold</strong></p>" {
		t.Errorf("markdown content = %v", markdown)
	}

	if err := room.Leave(ctx); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if left := homeserver.Left(); len(left) != 1 || left[0] != "!echo:example.org" {
		t.Errorf("left = %v", left)
	}
}

func TestRoom_NewMessages(t *testing.T) {
	homeserver := testutil.NewHomeserver(t, testutil.HomeserverOptions{})
	homeserver.QueueSyncJSON(`{"next_batch":"s1"}`)
	homeserver.QueueSyncJSON(syncBody("s2", "!room:example.org", textEvent, memberEvent))

	room := newTestSession(t, homeserver).Room(ref.MustParseRoomID("!room:example.org"), CursorOptions{})
	if events := room.NewMessages(context.Background()); len(events) != 0 {
		t.Fatalf("first NewMessages returned %d events", len(events))
	}
	events := room.NewMessages(context.Background())
	if len(events) != 1 || events[0].Type() != ref.EventTypeMessage {
		t.Fatalf("NewMessages = %v, want the single message", events)
	}
	if len(homeserver.Joined()) != 0 {
		t.Error("Room joined a room it was told was already joined")
	}
}
