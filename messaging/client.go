// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/lib/secret"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// HomeserverURL is the base URL of the Matrix homeserver (e.g., "https://matrix.example.org").
	HomeserverURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// DeviceDisplayName names the device created by password login.
	// Default "matrixbot".
	DeviceDisplayName string
}

// Client is an unauthenticated Matrix client. It holds the homeserver
// URL and HTTP transport, shared by every session, room, cursor, and
// invite scanner derived from it.
type Client struct {
	baseURL           string
	httpClient        *http.Client
	logger            *slog.Logger
	deviceDisplayName string
}

// NewClient creates a new unauthenticated Matrix client. A missing or
// unparseable URL is a *ConfigError.
func NewClient(config ClientConfig) (*Client, error) {
	if config.HomeserverURL == "" {
		return nil, &ConfigError{Field: "homeserver_url", Problem: "is required"}
	}

	// Request URLs are built by direct concatenation onto the string
	// form, which avoids url.URL re-encoding escaped path segments.
	parsed, err := url.Parse(config.HomeserverURL)
	if err != nil {
		return nil, &ConfigError{Field: "homeserver_url", Problem: err.Error()}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, &ConfigError{Field: "homeserver_url", Problem: fmt.Sprintf("%q is not an http or https URL", config.HomeserverURL)}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	deviceDisplayName := config.DeviceDisplayName
	if deviceDisplayName == "" {
		deviceDisplayName = "matrixbot"
	}

	return &Client{
		baseURL:           strings.TrimRight(config.HomeserverURL, "/"),
		httpClient:        httpClient,
		logger:            logger,
		deviceDisplayName: deviceDisplayName,
	}, nil
}

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's connection pool. Call this after a network disruption to
// force subsequent requests to establish fresh TCP connections instead
// of reusing a poisoned pooled connection.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// ServerVersions fetches /versions. It needs no token, which makes it
// a reachability probe.
func (c *Client) ServerVersions(ctx context.Context) (*ServerVersionsResponse, error) {
	return call[ServerVersionsResponse](ctx, c, apiRequest{method: http.MethodGet, path: "/_matrix/client/versions"}, "server versions")
}

// LoginFlows returns the login mechanisms the homeserver offers.
func (c *Client) LoginFlows(ctx context.Context) (*LoginFlowsResponse, error) {
	return call[LoginFlowsResponse](ctx, c, apiRequest{method: http.MethodGet, path: clientPath("login")}, "login flows")
}

// Login exchanges a username and password for a session. The password
// is only sent when the homeserver lists m.login.password among its
// flows. The caller keeps ownership of password.
func (c *Client) Login(ctx context.Context, username string, password *secret.Buffer) (*DirectSession, error) {
	switch {
	case username == "":
		return nil, &ConfigError{Field: "username", Problem: "is required for login"}
	case password == nil:
		return nil, &ConfigError{Field: "password", Problem: "is required for login"}
	}

	flows, err := c.LoginFlows(ctx)
	if err != nil {
		return nil, err
	}
	if !flows.Supports(LoginFlowPassword) {
		return nil, fmt.Errorf("messaging: homeserver does not offer %s login", LoginFlowPassword)
	}

	auth, err := call[AuthResponse](ctx, c, apiRequest{
		method: http.MethodPost,
		path:   clientPath("login"),
		body: LoginRequest{
			Type:                     LoginFlowPassword,
			Identifier:               LoginIdentifier{Type: "m.id.user", User: username},
			Password:                 password.String(),
			InitialDeviceDisplayName: c.deviceDisplayName,
		},
	}, "login as "+username)
	if err != nil {
		return nil, err
	}

	c.logger.Info("logged in",
		"user_id", auth.UserID,
		"device_id", auth.DeviceID,
	)
	return c.sessionFromAuth(auth)
}

// SessionFromToken creates a DirectSession from an existing access
// token. The token is copied into mmap-backed memory (locked against
// swap, excluded from core dumps); the caller keeps ownership of
// accessToken.
//
// This does NOT validate the token; the first API call will fail if it
// is invalid. userID may be zero, in which case UserID reports zero
// until the caller resolves it (Connect does this with WhoAmI).
//
// The caller must call Close on the returned DirectSession when done.
func (c *Client) SessionFromToken(userID ref.UserID, accessToken *secret.Buffer) (*DirectSession, error) {
	if accessToken == nil || accessToken.Len() == 0 {
		return nil, &ConfigError{Field: "access_token", Problem: "is empty"}
	}
	tokenCopy := make([]byte, accessToken.Len())
	copy(tokenCopy, accessToken.Bytes())
	tokenBuffer, err := secret.NewFromBytes(tokenCopy)
	if err != nil {
		return nil, fmt.Errorf("messaging: protecting access token: %w", err)
	}
	return &DirectSession{
		client:      c,
		accessToken: tokenBuffer,
		userID:      userID,
	}, nil
}

// Connect validates credentials and returns an authenticated session.
// With an access token, the session's user ID is taken from
// Credentials.UserID or, when that is zero, resolved with WhoAmI. With
// a username and password, Connect logs in.
func (c *Client) Connect(ctx context.Context, credentials Credentials) (*DirectSession, error) {
	if err := credentials.Validate(); err != nil {
		return nil, err
	}

	if credentials.Username != "" {
		return c.Login(ctx, credentials.Username, credentials.Password)
	}

	session, err := c.SessionFromToken(credentials.UserID, credentials.AccessToken)
	if err != nil {
		return nil, err
	}
	if session.userID.IsZero() {
		userID, err := session.WhoAmI(ctx)
		if err != nil {
			session.Close()
			return nil, err
		}
		session.userID = userID
	}
	return session, nil
}

func (c *Client) sessionFromAuth(auth *AuthResponse) (*DirectSession, error) {
	tokenBuffer, err := secret.NewFromString(auth.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("messaging: protecting access token: %w", err)
	}
	return &DirectSession{
		client:      c,
		accessToken: tokenBuffer,
		userID:      auth.UserID,
		deviceID:    auth.DeviceID,
	}, nil
}
