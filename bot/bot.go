// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/matrixbot/lib/clock"
	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/messaging"
)

// DefaultInterval is the sleep between poll passes when Config.Interval
// is zero.
const DefaultInterval = 10 * time.Second

// Config configures a Bot.
type Config struct {
	// Session is the authenticated session the bot acts as. Required.
	Session messaging.Session

	// Rooms are joined at Start and polled in this order.
	Rooms []ref.RoomTarget

	// Handler receives every new event. Required.
	Handler Handler

	// Interval is the fixed sleep between passes. Default
	// DefaultInterval.
	Interval time.Duration

	// PollTimeout is the server-side long-poll hold of each room sync.
	// Zero (the default) asks for an immediate answer, so a pass over N
	// rooms never blocks for N timeouts.
	PollTimeout time.Duration

	// TimelineTypes restricts delivered events. Nil delivers
	// m.room.message only; see messaging.CursorOptions.
	TimelineTypes []ref.EventType

	// AutoJoinInvites joins every pending invite at the start of each
	// pass and adds the room to the poll set.
	AutoJoinInvites bool

	// State, when set, restores room positions at Start and saves them
	// after every pass that moved one.
	State *StateStore

	// Clock drives the interval sleep. Default clock.Real().
	Clock clock.Clock

	// Logger receives the bot's logs. Default slog.Default().
	Logger *slog.Logger

	// Metrics is passed to every cursor and the invite scanner. May be
	// nil.
	Metrics *messaging.Metrics
}

// Bot polls rooms and dispatches their events. It is driven from a
// single goroutine: Run, or Start followed by repeated PollOnce.
type Bot struct {
	session  messaging.Session
	targets  []ref.RoomTarget
	handler  Handler
	interval time.Duration
	state    *StateStore
	clock    clock.Clock
	logger   *slog.Logger

	cursorOptions messaging.CursorOptions
	scanner       *messaging.InviteScanner

	started   bool
	rooms     []*messaging.Room
	polled    map[ref.RoomID]bool
	positions map[ref.RoomID]string
}

// New validates config and returns a bot that has not yet joined
// anything.
func New(config Config) (*Bot, error) {
	if config.Session == nil {
		return nil, errors.New("bot: Session is required")
	}
	if config.Handler == nil {
		return nil, errors.New("bot: Handler is required")
	}
	if config.Interval < 0 {
		return nil, fmt.Errorf("bot: Interval must not be negative, got %s", config.Interval)
	}

	interval := config.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	botClock := config.Clock
	if botClock == nil {
		botClock = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bot := &Bot{
		session:  config.Session,
		targets:  config.Rooms,
		handler:  config.Handler,
		interval: interval,
		state:    config.State,
		clock:    botClock,
		logger:   logger,
		cursorOptions: messaging.CursorOptions{
			TimelineTypes: config.TimelineTypes,
			PollTimeout:   config.PollTimeout,
			Logger:        logger,
			Metrics:       config.Metrics,
		},
		polled:    make(map[ref.RoomID]bool),
		positions: make(map[ref.RoomID]string),
	}
	if config.AutoJoinInvites {
		bot.scanner = messaging.NewInviteScanner(config.Session, messaging.ScannerOptions{
			Logger:  logger,
			Metrics: config.Metrics,
		})
	}
	return bot, nil
}

// Start restores saved positions and joins the configured rooms. A
// room that cannot be joined fails Start: a configured room the bot
// cannot read is a configuration error, not a transient one.
func (b *Bot) Start(ctx context.Context) error {
	if b.started {
		return nil
	}

	if b.state != nil {
		positions, err := b.state.Load()
		if err != nil {
			return err
		}
		b.positions = positions
		b.logger.Info("restored room positions", "path", b.state.Path(), "rooms", len(positions))
	}

	for _, target := range b.targets {
		roomID, err := b.session.JoinRoom(ctx, target)
		if err != nil {
			return fmt.Errorf("bot: joining %s: %w", target, err)
		}
		if b.addRoom(roomID) {
			b.logger.Info("joined room", "target", target, "room_id", roomID)
		}
	}

	b.started = true
	return nil
}

// Rooms returns the IDs of the polled rooms, in poll order.
func (b *Bot) Rooms() []ref.RoomID {
	roomIDs := make([]ref.RoomID, len(b.rooms))
	for index, room := range b.rooms {
		roomIDs[index] = room.ID()
	}
	return roomIDs
}

// Run calls Start, then polls until ctx is cancelled, sleeping the
// configured interval between passes. Cancellation is a clean exit and
// returns nil.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	b.logger.Info("bot running",
		"user_id", b.session.UserID(),
		"rooms", len(b.rooms),
		"interval", b.interval,
		"auto_join", b.scanner != nil,
	)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := b.PollOnce(ctx); err != nil {
			return err
		}
		if err := clock.Sleep(ctx, b.clock, b.interval); err != nil {
			b.logger.Info("bot stopping")
			return nil
		}
	}
}

// PollOnce runs one pass: join pending invites (with auto-join), then
// fetch each room's new events and hand them to the handler. It returns
// the number of events handed to the handler. Sync failures are not
// errors here; the cursor reports them and the room is retried next
// pass. The only error is calling PollOnce before Start.
func (b *Bot) PollOnce(ctx context.Context) (int, error) {
	if !b.started {
		return 0, errors.New("bot: PollOnce called before Start")
	}

	if b.scanner != nil {
		b.joinInvites(ctx)
	}

	self := b.session.UserID()
	delivered := 0
	moved := false
	for _, room := range b.rooms {
		for _, event := range room.NewMessages(ctx) {
			if event.Header().Sender == self {
				continue
			}
			delivered++
			if err := b.handler.HandleEvent(ctx, room, event); err != nil {
				b.logger.Warn("handler failed",
					"room_id", room.ID(),
					"event_id", event.Header().EventID,
					"type", event.Type(),
					"error", err,
				)
			}
		}

		since := room.Cursor().Since()
		if since != b.positions[room.ID()] {
			b.positions[room.ID()] = since
			moved = true
		}
	}

	if moved && b.state != nil {
		if err := b.state.Save(b.positions); err != nil {
			b.logger.Warn("saving room positions failed", "error", err)
		}
	}
	return delivered, nil
}

// joinInvites joins every pending invite not already polled. A failed
// join is logged and retried on the next pass, since the invite stays
// pending.
func (b *Bot) joinInvites(ctx context.Context) {
	for _, roomID := range b.scanner.ListInvites(ctx) {
		if b.polled[roomID] {
			continue
		}
		joined, err := b.session.JoinRoom(ctx, ref.RoomTarget{ID: roomID})
		if err != nil {
			b.logger.Warn("joining invited room failed", "room_id", roomID, "error", err)
			continue
		}
		if b.addRoom(joined) {
			b.logger.Info("joined invited room", "room_id", joined)
		}
	}
}

// addRoom adds roomID to the poll set, resuming from a saved position
// when there is one. It reports false if the room was already polled.
func (b *Bot) addRoom(roomID ref.RoomID) bool {
	if b.polled[roomID] {
		return false
	}
	options := b.cursorOptions
	options.Since = b.positions[roomID]
	b.rooms = append(b.rooms, messaging.NewRoom(b.session, roomID, options))
	b.polled[roomID] = true
	return true
}
