// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive stores received room events in a local SQLite
// database so a bot's history can be searched after the fact.
//
// Recording is idempotent per event ID: a pass redelivered after a
// crash (see bot.StateStore) does not create duplicate rows. Events
// without an ID are always inserted.
package archive

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/lib/sqlitepool"
	"github.com/bureau-foundation/matrixbot/messaging"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id     TEXT NOT NULL,
	event_id    TEXT,
	sender      TEXT NOT NULL,
	type        TEXT NOT NULL,
	msgtype     TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	origin_ts   INTEGER NOT NULL DEFAULT 0,
	UNIQUE (room_id, event_id)
);
CREATE INDEX IF NOT EXISTS events_room ON events (room_id, id);
`

// Entry is one archived event.
type Entry struct {
	RoomID  ref.RoomID
	EventID ref.EventID // zero when the server sent none
	Sender  ref.UserID
	Type    ref.EventType

	// MsgType is set for m.room.message events only.
	MsgType messaging.MsgType

	// Body is the message body, the new membership for m.room.member,
	// or the redacted event ID for m.room.redaction.
	Body string

	OriginServerTS int64
}

// EntryFor flattens event into an Entry.
func EntryFor(roomID ref.RoomID, event messaging.RoomEvent) Entry {
	header := event.Header()
	entry := Entry{
		RoomID:         roomID,
		EventID:        header.EventID,
		Sender:         header.Sender,
		Type:           event.Type(),
		OriginServerTS: header.OriginServerTS,
	}
	switch event := event.(type) {
	case *messaging.MessageEvent:
		entry.MsgType = event.Content.MsgType()
		entry.Body = event.Content.MessageBody()
	case *messaging.MemberEvent:
		entry.Body = string(event.Membership)
	case *messaging.RedactionEvent:
		entry.Body = event.Redacts.String()
	}
	return entry
}

// Config configures Open.
type Config struct {
	// Path is the database file, created if missing.
	Path string

	Logger *slog.Logger
}

// Archive is an open event archive. Safe for concurrent use.
type Archive struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open opens or creates the archive at config.Path.
func Open(config Config) (*Archive, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   config.Path,
		Schema: schema,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return &Archive{pool: pool, logger: logger}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.pool.Close()
}

// Record stores event. It reports whether a row was written; false
// means the event ID was already archived for the room.
func (a *Archive) Record(ctx context.Context, roomID ref.RoomID, event messaging.RoomEvent) (bool, error) {
	entry := EntryFor(roomID, event)
	var eventID any
	if !entry.EventID.IsZero() {
		eventID = entry.EventID.String()
	}

	var inserted bool
	err := a.pool.Do(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT OR IGNORE INTO events (room_id, event_id, sender, type, msgtype, body, origin_ts)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				entry.RoomID.String(),
				eventID,
				entry.Sender.String(),
				string(entry.Type),
				string(entry.MsgType),
				entry.Body,
				entry.OriginServerTS,
			}})
		inserted = conn.Changes() > 0
		return err
	})
	if err != nil {
		return false, fmt.Errorf("archive: recording %s in %s: %w", entry.EventID, roomID, err)
	}
	return inserted, nil
}

// Recent returns up to limit of the room's most recently archived
// events, oldest first.
func (a *Archive) Recent(ctx context.Context, roomID ref.RoomID, limit int) ([]Entry, error) {
	var entries []Entry
	err := a.pool.Do(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT event_id, sender, type, msgtype, body, origin_ts FROM (
				SELECT id, event_id, sender, type, msgtype, body, origin_ts
				FROM events WHERE room_id = ? ORDER BY id DESC LIMIT ?
			) ORDER BY id ASC`,
			&sqlitex.ExecOptions{
				Args: []any{roomID.String(), limit},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					entry, err := scanEntry(roomID, stmt)
					if err != nil {
						return err
					}
					entries = append(entries, entry)
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("archive: reading %s: %w", roomID, err)
	}
	return entries, nil
}

// Count returns the number of archived events for roomID.
func (a *Archive) Count(ctx context.Context, roomID ref.RoomID) (int, error) {
	var count int
	err := a.pool.Do(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT count(*) FROM events WHERE room_id = ?`, &sqlitex.ExecOptions{
			Args: []any{roomID.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt(0)
				return nil
			},
		})
	})
	if err != nil {
		return 0, fmt.Errorf("archive: counting %s: %w", roomID, err)
	}
	return count, nil
}

func scanEntry(roomID ref.RoomID, stmt *sqlite.Stmt) (Entry, error) {
	entry := Entry{
		RoomID:         roomID,
		Type:           ref.EventType(stmt.ColumnText(2)),
		MsgType:        messaging.MsgType(stmt.ColumnText(3)),
		Body:           stmt.ColumnText(4),
		OriginServerTS: stmt.ColumnInt64(5),
	}
	if !stmt.ColumnIsNull(0) {
		eventID, err := ref.ParseEventID(stmt.ColumnText(0))
		if err != nil {
			return Entry{}, err
		}
		entry.EventID = eventID
	}
	sender, err := ref.ParseUserID(stmt.ColumnText(1))
	if err != nil {
		return Entry{}, err
	}
	entry.Sender = sender
	return entry, nil
}
