// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bureau-foundation/matrixbot/lib/netutil"
	"github.com/bureau-foundation/matrixbot/lib/ref"
)

// SyncTransport performs one /sync request and returns the raw
// response body. *DirectSession implements it. Transports that also
// implement CloseIdleConnections have their idle connections dropped
// after a connection-level failure.
type SyncTransport interface {
	SyncRaw(ctx context.Context, options SyncOptions) ([]byte, error)
}

// Compile-time check: *DirectSession implements SyncTransport.
var _ SyncTransport = (*DirectSession)(nil)

// dropIdleConnections closes the transport's pooled connections after a
// connection-level failure so the next sync dials fresh.
func dropIdleConnections(transport SyncTransport, err error) {
	if !netutil.IsConnectionError(err) {
		return
	}
	if closer, ok := transport.(interface{ CloseIdleConnections() }); ok {
		closer.CloseIdleConnections()
	}
}

// initialTimelineLimit is the timeline limit of a cursor's first sync.
// That sync only establishes the starting position; its events are
// discarded.
const initialTimelineLimit = 1

// CursorOptions configures a RoomCursor.
type CursorOptions struct {
	// Since resumes the cursor at a previously saved token, skipping
	// the baseline sync. Empty starts the cursor uninitialized.
	Since string

	// TimelineTypes restricts delivered events to these types, both in
	// the server-side filter and when decoding. Nil means
	// [ref.EventTypeMessage] only; an explicit empty slice delivers
	// every event type the event model represents.
	TimelineTypes []ref.EventType

	// PollTimeout is the server-side long-poll hold for incremental
	// syncs. Zero asks the server to answer immediately.
	PollTimeout time.Duration

	// Logger receives failure and progress logs. If nil, slog.Default().
	Logger *slog.Logger

	// Metrics records sync outcomes. May be nil.
	Metrics *Metrics
}

// RoomCursor follows one room's timeline through repeated /sync calls.
// It holds the room's position in the sync stream (the since token)
// and nothing else.
//
// A new cursor is uninitialized. Its first successful FetchNextBatch
// only records the server's current position and returns no events, so
// a bot joining a room does not replay the room's history. Every later
// successful call returns the events since the previous position and
// moves the position forward. A failed call leaves the position where
// it was, so the next call retries from the same point and nothing is
// lost, only delayed.
//
// The position lives in memory only. Callers that want to survive a
// restart save Since() and pass it back through CursorOptions.Since.
//
// RoomCursor is not safe for concurrent use. Two interleaved
// FetchNextBatch calls race on the position and can duplicate or skip a
// batch; callers serialize calls per room.
type RoomCursor struct {
	transport SyncTransport
	roomID    ref.RoomID
	types     []ref.EventType
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *Metrics

	since   string
	lastErr error
}

// NewRoomCursor creates a cursor over roomID's timeline.
func NewRoomCursor(transport SyncTransport, roomID ref.RoomID, options CursorOptions) *RoomCursor {
	types := options.TimelineTypes
	if types == nil {
		types = []ref.EventType{ref.EventTypeMessage}
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RoomCursor{
		transport: transport,
		roomID:    roomID,
		types:     types,
		timeout:   options.PollTimeout,
		logger:    logger.With("room_id", roomID),
		metrics:   options.Metrics,
		since:     options.Since,
	}
}

// RoomID returns the room the cursor follows.
func (c *RoomCursor) RoomID() ref.RoomID {
	return c.roomID
}

// Since returns the current position token, or "" while uninitialized.
func (c *RoomCursor) Since() string {
	return c.since
}

// Tracking reports whether the cursor has a position.
func (c *RoomCursor) Tracking() bool {
	return c.since != ""
}

// Err returns the error of the most recent FetchNextBatch, or nil if it
// succeeded. FetchNextBatch itself never returns an error; Err is how a
// caller tells "no new events" apart from "the sync failed".
func (c *RoomCursor) Err() error {
	return c.lastErr
}

// FetchNextBatch returns the room's events since the previous call, in
// server delivery order, and advances the position.
//
// On an uninitialized cursor it performs the baseline sync (timeline
// limit 1), records the position, and returns no events. Transport
// failures, error responses, undecodable responses, and responses
// without a next_batch all return no events and leave the position
// unchanged; the failure is logged, counted, and available from Err.
func (c *RoomCursor) FetchNextBatch(ctx context.Context) []RoomEvent {
	initial := c.since == ""

	filter := SyncFilter{Room: c.roomID, TimelineTypes: c.types}
	options := SyncOptions{Since: c.since, SetTimeout: true}
	if initial {
		filter.TimelineLimit = initialTimelineLimit
	} else {
		options.Timeout = int(c.timeout / time.Millisecond)
	}
	options.Filter = filter.Encode()

	started := time.Now()
	body, err := c.transport.SyncRaw(ctx, options)
	if err != nil {
		c.fail(resultTransport, started, err)
		dropIdleConnections(c.transport, err)
		return nil
	}

	result, err := DecodeSync(body)
	if err != nil {
		c.fail(resultDecode, started, err)
		return nil
	}
	if result.NextBatch == "" {
		c.fail(resultDecode, started, &DecodeError{Path: "next_batch", Err: errMissingField})
		return nil
	}

	c.lastErr = nil
	c.metrics.observeSync(scopeRoom, resultOK, time.Since(started))
	previous := c.since
	c.since = result.NextBatch

	if initial {
		c.logger.Debug("room cursor established", "next_batch", result.NextBatch)
		c.metrics.observeDecoded(result, nil)
		return nil
	}

	timeline := result.Rooms.Join[c.roomID].Timeline
	if timeline.Limited {
		c.logger.Warn("room timeline limited, events between positions were skipped",
			"since", previous,
			"next_batch", result.NextBatch,
			"prev_batch", timeline.PrevBatch,
		)
	}

	var events []RoomEvent
	for _, event := range timeline.Events {
		if c.wanted(event.Type()) {
			events = append(events, event)
		}
	}
	c.metrics.observeDecoded(result, events)

	for _, dropped := range result.Dropped {
		if dropped.Room != c.roomID {
			continue
		}
		c.logger.Debug("dropped timeline event",
			"index", dropped.Index,
			"type", dropped.EventType,
			"msgtype", dropped.MsgType,
			"reason", dropped.Reason,
			"error", dropped.Err,
		)
	}
	if len(events) > 0 {
		c.logger.Debug("room cursor advanced",
			"since", previous,
			"next_batch", result.NextBatch,
			"events", len(events),
		)
	}
	return events
}

// wanted reports whether an event type passes the cursor's type
// restriction. Servers may ignore the filter, so it is applied again
// here.
func (c *RoomCursor) wanted(eventType ref.EventType) bool {
	if len(c.types) == 0 {
		return true
	}
	return slices.Contains(c.types, eventType)
}

func (c *RoomCursor) fail(result string, started time.Time, err error) {
	c.lastErr = fmt.Errorf("messaging: fetching next batch for %s: %w", c.roomID, err)
	c.metrics.observeSync(scopeRoom, result, time.Since(started))

	level := slog.LevelWarn
	if errors.Is(err, context.Canceled) {
		level = slog.LevelDebug
	}
	c.logger.Log(context.Background(), level, "room sync failed",
		"since", c.since,
		"error", err,
	)
}
