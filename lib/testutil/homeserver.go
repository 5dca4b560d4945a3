// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// SyncReply is one scripted response to GET /_matrix/client/v3/sync.
type SyncReply struct {
	// Status is the HTTP status. Zero means 200.
	Status int
	// Body is written verbatim.
	Body string
}

// SentEvent records one PUT /rooms/{roomId}/send/{eventType}/{txnId}.
type SentEvent struct {
	RoomID        string
	EventType     string
	TransactionID string
	Content       json.RawMessage
}

// HomeserverOptions configures NewHomeserver.
type HomeserverOptions struct {
	// UserID is returned by whoami and login. Default "@bot:example.org".
	UserID string
	// AccessToken is required on authenticated endpoints and returned
	// by a successful login. Default "test-token".
	AccessToken string
	// Password is the only password login accepts. Default "hunter2".
	Password string
	// LoginFlows is returned by GET /login. Default m.login.password.
	LoginFlows []string
	// Aliases maps room aliases to room IDs for joins and directory
	// lookups.
	Aliases map[string]string
}

// Homeserver is a scripted fake Matrix homeserver. Queued sync replies
// are served in order; once the queue is empty each sync echoes its
// since token back as next_batch with no rooms.
type Homeserver struct {
	server  *httptest.Server
	options HomeserverOptions

	mu           sync.Mutex
	syncQueue    []SyncReply
	syncRequests []url.Values
	sent         []SentEvent
	joined       []string
	left         []string
	logins       int
	eventCounter int
}

// NewHomeserver starts a fake homeserver that is shut down when the
// test completes.
func NewHomeserver(t *testing.T, options HomeserverOptions) *Homeserver {
	t.Helper()
	if options.UserID == "" {
		options.UserID = "@bot:example.org"
	}
	if options.AccessToken == "" {
		options.AccessToken = "test-token"
	}
	if options.Password == "" {
		options.Password = "hunter2"
	}
	if options.LoginFlows == nil {
		options.LoginFlows = []string{"m.login.password"}
	}

	homeserver := &Homeserver{options: options}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /_matrix/client/v3/login", homeserver.handleLoginFlows)
	mux.HandleFunc("POST /_matrix/client/v3/login", homeserver.handleLogin)
	mux.HandleFunc("GET /_matrix/client/v3/account/whoami", homeserver.authenticated(homeserver.handleWhoAmI))
	mux.HandleFunc("GET /_matrix/client/v3/sync", homeserver.authenticated(homeserver.handleSync))
	mux.HandleFunc("POST /_matrix/client/v3/join/{target}", homeserver.authenticated(homeserver.handleJoin))
	mux.HandleFunc("POST /_matrix/client/v3/rooms/{roomID}/leave", homeserver.authenticated(homeserver.handleLeave))
	mux.HandleFunc("PUT /_matrix/client/v3/rooms/{roomID}/send/{eventType}/{txnID}", homeserver.authenticated(homeserver.handleSend))
	mux.HandleFunc("GET /_matrix/client/v3/directory/room/{alias}", homeserver.authenticated(homeserver.handleResolveAlias))

	homeserver.server = httptest.NewServer(mux)
	t.Cleanup(homeserver.server.Close)
	return homeserver
}

// URL returns the base URL to configure a client with.
func (h *Homeserver) URL() string { return h.server.URL }

// UserID returns the user ID the homeserver authenticates as.
func (h *Homeserver) UserID() string { return h.options.UserID }

// AccessToken returns the token the homeserver accepts.
func (h *Homeserver) AccessToken() string { return h.options.AccessToken }

// QueueSync appends scripted sync replies.
func (h *Homeserver) QueueSync(replies ...SyncReply) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.syncQueue = append(h.syncQueue, replies...)
}

// QueueSyncJSON appends a 200 reply with the given body.
func (h *Homeserver) QueueSyncJSON(body string) {
	h.QueueSync(SyncReply{Body: body})
}

// SyncRequests returns the query parameters of every sync received.
func (h *Homeserver) SyncRequests() []url.Values {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]url.Values(nil), h.syncRequests...)
}

// Sent returns every event sent so far, in arrival order.
func (h *Homeserver) Sent() []SentEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]SentEvent(nil), h.sent...)
}

// Joined returns the room IDs joined so far, in arrival order.
func (h *Homeserver) Joined() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.joined...)
}

// Left returns the room IDs left so far.
func (h *Homeserver) Left() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.left...)
}

// Logins returns the number of successful password logins.
func (h *Homeserver) Logins() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.logins
}

func (h *Homeserver) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Authorization") != "Bearer "+h.options.AccessToken {
			writeMatrixError(writer, http.StatusUnauthorized, "M_UNKNOWN_TOKEN", "Invalid access token")
			return
		}
		next(writer, request)
	}
}

func (h *Homeserver) handleLoginFlows(writer http.ResponseWriter, request *http.Request) {
	flows := make([]map[string]string, 0, len(h.options.LoginFlows))
	for _, flow := range h.options.LoginFlows {
		flows = append(flows, map[string]string{"type": flow})
	}
	writeJSON(writer, http.StatusOK, map[string]any{"flows": flows})
}

func (h *Homeserver) handleLogin(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Type       string `json:"type"`
		User       string `json:"user"`
		Identifier struct {
			User string `json:"user"`
		} `json:"identifier"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeMatrixError(writer, http.StatusBadRequest, "M_NOT_JSON", err.Error())
		return
	}
	if body.Type != "m.login.password" || body.Password != h.options.Password {
		writeMatrixError(writer, http.StatusForbidden, "M_FORBIDDEN", "Invalid username or password")
		return
	}

	h.mu.Lock()
	h.logins++
	h.mu.Unlock()

	writeJSON(writer, http.StatusOK, map[string]string{
		"user_id":      h.options.UserID,
		"access_token": h.options.AccessToken,
		"device_id":    "TESTDEVICE",
	})
}

func (h *Homeserver) handleWhoAmI(writer http.ResponseWriter, request *http.Request) {
	writeJSON(writer, http.StatusOK, map[string]string{
		"user_id":   h.options.UserID,
		"device_id": "TESTDEVICE",
	})
}

func (h *Homeserver) handleSync(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()

	h.mu.Lock()
	h.syncRequests = append(h.syncRequests, query)
	var reply SyncReply
	queued := len(h.syncQueue) > 0
	if queued {
		reply = h.syncQueue[0]
		h.syncQueue = h.syncQueue[1:]
	}
	h.mu.Unlock()

	if !queued {
		since := query.Get("since")
		if since == "" {
			since = "s0"
		}
		reply = SyncReply{Body: fmt.Sprintf(`{"next_batch":%q}`, since)}
	}

	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	io.WriteString(writer, reply.Body)
}

func (h *Homeserver) handleJoin(writer http.ResponseWriter, request *http.Request) {
	target := request.PathValue("target")
	roomID := target
	if strings.HasPrefix(target, "#") {
		resolved, ok := h.options.Aliases[target]
		if !ok {
			writeMatrixError(writer, http.StatusNotFound, "M_NOT_FOUND", "Room alias "+target+" not found")
			return
		}
		roomID = resolved
	}

	h.mu.Lock()
	h.joined = append(h.joined, roomID)
	h.mu.Unlock()

	writeJSON(writer, http.StatusOK, map[string]string{"room_id": roomID})
}

func (h *Homeserver) handleLeave(writer http.ResponseWriter, request *http.Request) {
	h.mu.Lock()
	h.left = append(h.left, request.PathValue("roomID"))
	h.mu.Unlock()
	writeJSON(writer, http.StatusOK, map[string]string{})
}

func (h *Homeserver) handleSend(writer http.ResponseWriter, request *http.Request) {
	content, err := io.ReadAll(request.Body)
	if err != nil {
		writeMatrixError(writer, http.StatusBadRequest, "M_UNKNOWN", err.Error())
		return
	}

	h.mu.Lock()
	h.eventCounter++
	eventID := fmt.Sprintf("$sent%d", h.eventCounter)
	h.sent = append(h.sent, SentEvent{
		RoomID:        request.PathValue("roomID"),
		EventType:     request.PathValue("eventType"),
		TransactionID: request.PathValue("txnID"),
		Content:       json.RawMessage(content),
	})
	h.mu.Unlock()

	writeJSON(writer, http.StatusOK, map[string]string{"event_id": eventID})
}

func (h *Homeserver) handleResolveAlias(writer http.ResponseWriter, request *http.Request) {
	alias := request.PathValue("alias")
	roomID, ok := h.options.Aliases[alias]
	if !ok {
		writeMatrixError(writer, http.StatusNotFound, "M_NOT_FOUND", "Room alias "+alias+" not found")
		return
	}
	writeJSON(writer, http.StatusOK, map[string]any{"room_id": roomID, "servers": []string{}})
}

func writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(value)
}

func writeMatrixError(writer http.ResponseWriter, status int, code, message string) {
	writeJSON(writer, status, map[string]string{"errcode": code, "error": message})
}
