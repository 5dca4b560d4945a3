// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/bureau-foundation/matrixbot/lib/ref"
)

// ScannerOptions configures an InviteScanner.
type ScannerOptions struct {
	// Logger receives failure logs. If nil, slog.Default().
	Logger *slog.Logger

	// Metrics records sync outcomes. May be nil.
	Metrics *Metrics
}

// InviteScanner lists the rooms the account is currently invited to.
//
// It keeps no position: every ListInvites re-fetches the complete
// invite state with an initial (since-less) sync whose filter asks for
// no timelines, state, or ephemeral events. Listing is therefore
// idempotent and never misses an invite that is still pending, but its
// cost does not shrink between calls. That suits a bot that receives
// few invites.
type InviteScanner struct {
	transport SyncTransport
	filter    string
	logger    *slog.Logger
	metrics   *Metrics

	lastErr error
}

// NewInviteScanner creates an invite scanner.
func NewInviteScanner(transport SyncTransport, options ScannerOptions) *InviteScanner {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &InviteScanner{
		transport: transport,
		filter:    SyncFilter{NoTimeline: true, ExcludeState: true}.Encode(),
		logger:    logger,
		metrics:   options.Metrics,
	}
}

// Err returns the error of the most recent ListInvites, or nil if it
// succeeded.
func (s *InviteScanner) Err() error {
	return s.lastErr
}

// ListInvites returns the IDs of rooms with a pending invite, sorted.
// A room counts only if its invite state holds an m.room.member event
// with membership "invite"; the room's presence in the invite section
// alone is not trusted. On any failure it returns an empty list, and
// the failure is logged, counted, and available from Err.
func (s *InviteScanner) ListInvites(ctx context.Context) []ref.RoomID {
	started := time.Now()
	body, err := s.transport.SyncRaw(ctx, SyncOptions{SetTimeout: true, Filter: s.filter})
	if err != nil {
		s.fail(resultTransport, started, err)
		dropIdleConnections(s.transport, err)
		return nil
	}

	result, err := DecodeSync(body)
	if err != nil {
		s.fail(resultDecode, started, err)
		return nil
	}

	s.lastErr = nil
	s.metrics.observeSync(scopeInvites, resultOK, time.Since(started))
	s.metrics.observeDecoded(result, nil)

	invites := make([]ref.RoomID, 0, len(result.Rooms.Invite))
	for roomID, room := range result.Rooms.Invite {
		if !room.Invited() {
			s.logger.Debug("invite section entry without invite membership", "room_id", roomID)
			continue
		}
		invites = append(invites, roomID)
	}
	sortRoomIDs(invites)
	s.metrics.setInvites(len(invites))
	return invites
}

func (s *InviteScanner) fail(result string, started time.Time, err error) {
	s.lastErr = fmt.Errorf("messaging: listing invites: %w", err)
	s.metrics.observeSync(scopeInvites, result, time.Since(started))

	level := slog.LevelWarn
	if errors.Is(err, context.Canceled) {
		level = slog.LevelDebug
	}
	s.logger.Log(context.Background(), level, "invite sync failed", "error", err)
}

func sortRoomIDs(roomIDs []ref.RoomID) {
	slices.SortFunc(roomIDs, func(a, b ref.RoomID) int {
		return strings.Compare(a.String(), b.String())
	})
}
