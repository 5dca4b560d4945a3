// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"

	"github.com/bureau-foundation/matrixbot/lib/ref"
)

// LoginFlowPassword is the login flow type for username and password.
const LoginFlowPassword = "m.login.password"

// LoginFlowsResponse is returned by GET /login.
type LoginFlowsResponse struct {
	Flows []LoginFlow `json:"flows"`
}

// LoginFlow is one login mechanism the homeserver offers.
type LoginFlow struct {
	Type string `json:"type"`
}

// Supports reports whether flowType is among the offered flows.
func (r *LoginFlowsResponse) Supports(flowType string) bool {
	for _, flow := range r.Flows {
		if flow.Type == flowType {
			return true
		}
	}
	return false
}

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Type                     string          `json:"type"`
	Identifier               LoginIdentifier `json:"identifier"`
	Password                 string          `json:"password"`
	DeviceID                 string          `json:"device_id,omitempty"`
	InitialDeviceDisplayName string          `json:"initial_device_display_name,omitempty"`
}

// LoginIdentifier identifies the user logging in.
type LoginIdentifier struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// AuthResponse is returned by Login.
type AuthResponse struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id"`
}

// CreateRoomRequest holds parameters for creating a Matrix room.
type CreateRoomRequest struct {
	Name       string       `json:"name,omitempty"`
	Topic      string       `json:"topic,omitempty"`
	Alias      string       `json:"room_alias_name,omitempty"` // local alias without # or :server
	Visibility string       `json:"visibility,omitempty"`      // "public" or "private"
	Preset     string       `json:"preset,omitempty"`          // "private_chat", "public_chat", "trusted_private_chat"
	Invite     []ref.UserID `json:"invite,omitempty"`
	IsDirect   bool         `json:"is_direct,omitempty"`
}

// CreateRoomResponse is returned by CreateRoom.
type CreateRoomResponse struct {
	RoomID ref.RoomID `json:"room_id"`
}

// InviteRequest holds the user ID to invite to a room.
type InviteRequest struct {
	UserID ref.UserID `json:"user_id"`
}

// SendEventResponse is returned by SendMessage and SendEvent.
type SendEventResponse struct {
	EventID ref.EventID `json:"event_id"`
}

// WhoAmIResponse is returned by WhoAmI.
type WhoAmIResponse struct {
	UserID   ref.UserID `json:"user_id"`
	DeviceID string     `json:"device_id,omitempty"`
}

// ResolveAliasResponse is returned by ResolveAlias.
type ResolveAliasResponse struct {
	RoomID  ref.RoomID `json:"room_id"`
	Servers []string   `json:"servers"`
}

// JoinedRoomsResponse is returned by JoinedRooms.
type JoinedRoomsResponse struct {
	JoinedRooms []ref.RoomID `json:"joined_rooms"`
}

// ServerVersionsResponse is returned by Client.ServerVersions.
type ServerVersionsResponse struct {
	Versions         []string        `json:"versions"`
	UnstableFeatures map[string]bool `json:"unstable_features,omitempty"`
}

// SyncOptions controls one call to the /sync endpoint.
type SyncOptions struct {
	Since      string // next_batch token from previous sync; empty for initial sync
	Timeout    int    // long-poll timeout in milliseconds; 0 for immediate return
	SetTimeout bool   // if true, send the timeout parameter (needed to distinguish "not set" from "0")
	Filter     string // filter ID or inline JSON filter
}

// SyncFilter describes the inline filter sent with a sync. The zero
// value requests everything for every room except presence and
// account data, which the bot library never reads.
type SyncFilter struct {
	// Room scopes room data to a single room. Zero means all rooms.
	Room ref.RoomID

	// TimelineTypes restricts timeline events to these event types.
	// Empty means all types.
	TimelineTypes []ref.EventType

	// TimelineLimit caps the number of timeline events per room.
	// Zero means no explicit limit (server default).
	TimelineLimit int

	// NoTimeline requests no timeline events at all. It overrides
	// TimelineTypes and TimelineLimit.
	NoTimeline bool

	// ExcludeState suppresses room state and ephemeral events.
	ExcludeState bool
}

// Encode returns the filter as the inline JSON the filter query
// parameter carries.
func (f SyncFilter) Encode() string {
	roomFilter := map[string]any{}

	if !f.Room.IsZero() {
		roomFilter["rooms"] = []string{f.Room.String()}
	}

	switch {
	case f.NoTimeline:
		roomFilter["timeline"] = map[string]any{"limit": 0, "types": []string{}}
	case len(f.TimelineTypes) > 0:
		timeline := map[string]any{"types": f.TimelineTypes}
		if f.TimelineLimit > 0 {
			timeline["limit"] = f.TimelineLimit
		}
		roomFilter["timeline"] = timeline
	case f.TimelineLimit > 0:
		roomFilter["timeline"] = map[string]any{"limit": f.TimelineLimit}
	}

	if f.ExcludeState {
		roomFilter["state"] = map[string]any{"types": []string{}}
		roomFilter["ephemeral"] = map[string]any{"types": []string{}}
		roomFilter["account_data"] = map[string]any{"types": []string{}}
	}

	top := map[string]any{
		"room":         roomFilter,
		"presence":     map[string]any{"types": []string{}},
		"account_data": map[string]any{"types": []string{}},
	}

	data, _ := json.Marshal(top)
	return string(data)
}
