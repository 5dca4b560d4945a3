// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/matrixbot/archive"
	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/lib/secret"
	"github.com/bureau-foundation/matrixbot/lib/testutil"
	"github.com/bureau-foundation/matrixbot/messaging"
)

func newTestRoom(t *testing.T) *messaging.Room {
	t.Helper()
	homeserver := testutil.NewHomeserver(t, testutil.HomeserverOptions{})
	client, err := messaging.NewClient(messaging.ClientConfig{HomeserverURL: homeserver.URL()})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	token, err := secret.NewFromString(homeserver.AccessToken())
	if err != nil {
		t.Fatalf("secret.NewFromString: %v", err)
	}
	defer token.Close()
	session, err := client.SessionFromToken(ref.MustParseUserID(homeserver.UserID()), token)
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session.Room(tailRoom, messaging.CursorOptions{})
}

func TestTailHandler_PrintsAndArchives(t *testing.T) {
	eventArchive, err := archive.Open(archive.Config{Path: filepath.Join(t.TempDir(), "tail.db")})
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	defer eventArchive.Close()

	var output bytes.Buffer
	handler := newTailHandler(newRenderer(&output, time.UTC), eventArchive)
	room := newTestRoom(t)
	event := &messaging.MessageEvent{
		EventHeader: messaging.EventHeader{
			EventID: ref.MustParseEventID("$1"),
			Sender:  ref.MustParseUserID("@alice:example.org"),
		},
		Content: messaging.NewTextMessage("hi"),
	}

	// Delivered twice, as after a restart from a saved position.
	for range 2 {
		if err := handler.HandleEvent(context.Background(), room, event); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}

	if lines := strings.Count(output.String(), "@alice:example.org: hi\n"); lines != 2 {
		t.Errorf("printed %d lines, want 2:\n%s", lines, output.String())
	}
	count, err := eventArchive.Count(context.Background(), tailRoom)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("archived %d rows, want 1", count)
	}
}

func TestTailHandler_WithoutArchive(t *testing.T) {
	var output bytes.Buffer
	handler := newTailHandler(newRenderer(&output, time.UTC), nil)
	event := &messaging.MemberEvent{
		EventHeader: messaging.EventHeader{Sender: ref.MustParseUserID("@bob:example.org")},
		StateKey:    ref.MustParseUserID("@bob:example.org"),
		Membership:  messaging.MembershipJoin,
	}
	if err := handler.HandleEvent(context.Background(), newTestRoom(t), event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if output.String() != "!tail:example.org @bob:example.org joined\n" {
		t.Errorf("output = %q", output.String())
	}
}
