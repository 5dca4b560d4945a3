// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/lib/secret"
)

// DirectSession is a Client plus an access token. Every room, cursor and
// invite scanner opened from it shares the Client's HTTP transport.
//
// The token lives in a secret.Buffer; Close releases it.
type DirectSession struct {
	client      *Client
	accessToken *secret.Buffer
	userID      ref.UserID
	deviceID    string
}

// UserID returns the session's user, e.g. "@echo:example.org".
func (s *DirectSession) UserID() ref.UserID {
	return s.userID
}

// DeviceID is empty for sessions built from a token.
func (s *DirectSession) DeviceID() string {
	return s.deviceID
}

func (s *DirectSession) Logger() *slog.Logger {
	return s.client.logger
}

// CloseIdleConnections drops pooled connections so the next request
// dials fresh, e.g. after a sync failed mid-stream.
func (s *DirectSession) CloseIdleConnections() {
	s.client.CloseIdleConnections()
}

// Close zeroes and releases the access token. Idempotent.
func (s *DirectSession) Close() error {
	if s.accessToken == nil {
		return nil
	}
	return s.accessToken.Close()
}

func (s *DirectSession) request(method string, body any, segments ...string) apiRequest {
	return apiRequest{method: method, path: clientPath(segments...), token: s.accessToken, body: body}
}

// WhoAmI asks the homeserver who the token belongs to. A stale token
// fails with M_UNKNOWN_TOKEN.
func (s *DirectSession) WhoAmI(ctx context.Context) (ref.UserID, error) {
	response, err := call[WhoAmIResponse](ctx, s.client, s.request(http.MethodGet, nil, "account", "whoami"), "whoami")
	if err != nil {
		return ref.UserID{}, err
	}
	return response.UserID, nil
}

// CreateRoom creates a room with the session's user as its creator.
func (s *DirectSession) CreateRoom(ctx context.Context, request CreateRoomRequest) (*CreateRoomResponse, error) {
	response, err := call[CreateRoomResponse](ctx, s.client, s.request(http.MethodPost, request, "createRoom"), "create room")
	if err != nil {
		return nil, err
	}
	s.client.logger.Info("created room",
		"room_id", response.RoomID,
		"alias", request.Alias,
		"name", request.Name,
	)
	return response, nil
}

// JoinRoom joins by room ID or alias and returns the room ID the server
// reports.
func (s *DirectSession) JoinRoom(ctx context.Context, target ref.RoomTarget) (ref.RoomID, error) {
	if target.IsZero() {
		return ref.RoomID{}, fmt.Errorf("messaging: join room: no room ID or alias given")
	}
	response, err := call[struct {
		RoomID ref.RoomID `json:"room_id"`
	}](ctx, s.client, s.request(http.MethodPost, struct{}{}, "join", target.String()), "join "+target.String())
	if err != nil {
		return ref.RoomID{}, err
	}
	return response.RoomID, nil
}

func (s *DirectSession) InviteUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID) error {
	request := s.request(http.MethodPost, InviteRequest{UserID: userID}, "rooms", roomID.String(), "invite")
	if _, err := s.client.send(ctx, request); err != nil {
		return fmt.Errorf("messaging: invite %s to %s: %w", userID, roomID, err)
	}
	return nil
}

func (s *DirectSession) LeaveRoom(ctx context.Context, roomID ref.RoomID) error {
	if _, err := s.client.send(ctx, s.request(http.MethodPost, struct{}{}, "rooms", roomID.String(), "leave")); err != nil {
		return fmt.Errorf("messaging: leave %s: %w", roomID, err)
	}
	return nil
}

func (s *DirectSession) JoinedRooms(ctx context.Context) ([]ref.RoomID, error) {
	response, err := call[JoinedRoomsResponse](ctx, s.client, s.request(http.MethodGet, nil, "joined_rooms"), "joined rooms")
	if err != nil {
		return nil, err
	}
	return response.JoinedRooms, nil
}

// ResolveAlias looks up "#lobby:example.org" in the room directory.
func (s *DirectSession) ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error) {
	response, err := call[ResolveAliasResponse](ctx, s.client,
		s.request(http.MethodGet, nil, "directory", "room", alias.String()), "resolve "+alias.String())
	if err != nil {
		return ref.RoomID{}, err
	}
	return response.RoomID, nil
}

// SendMessage sends content as an m.room.message event.
func (s *DirectSession) SendMessage(ctx context.Context, roomID ref.RoomID, content MessageContent) (ref.EventID, error) {
	return s.SendEvent(ctx, roomID, ref.EventTypeMessage, content)
}

// SendEvent PUTs an event under a fresh transaction ID and returns the
// event ID the server assigned.
func (s *DirectSession) SendEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, content any) (ref.EventID, error) {
	request := s.request(http.MethodPut, content, "rooms", roomID.String(), "send", eventType.String(), nextTransactionID())
	response, err := call[SendEventResponse](ctx, s.client, request, "send "+eventType.String()+" to "+roomID.String())
	if err != nil {
		return ref.EventID{}, err
	}
	return response.EventID, nil
}

// SyncRaw performs one /sync request and returns the body undecoded.
// It is the SyncTransport behind RoomCursor and InviteScanner.
func (s *DirectSession) SyncRaw(ctx context.Context, options SyncOptions) ([]byte, error) {
	request := s.request(http.MethodGet, nil, "sync")
	request.query = url.Values{}
	if options.Since != "" {
		request.query.Set("since", options.Since)
	}
	if options.SetTimeout {
		request.query.Set("timeout", strconv.Itoa(options.Timeout))
	}
	if options.Filter != "" {
		request.query.Set("filter", options.Filter)
	}

	body, err := s.client.send(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("messaging: sync: %w", err)
	}
	return body, nil
}

// Sync is SyncRaw followed by DecodeSync.
func (s *DirectSession) Sync(ctx context.Context, options SyncOptions) (*SyncResult, error) {
	body, err := s.SyncRaw(ctx, options)
	if err != nil {
		return nil, err
	}
	return DecodeSync(body)
}

// Random IDs stay unique across restarts and across processes sharing
// one access token.
func nextTransactionID() string {
	return "matrixbot-" + uuid.NewString()
}
