// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/matrixbot/lib/config"
	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/messaging"
)

// Connect builds a client for the configured homeserver and
// authenticates with whichever credential path the config names: an
// access token file, or a username with a password file (or a terminal
// prompt when password_file is empty). Secret buffers are closed
// before Connect returns; the session holds its own copy.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*messaging.DirectSession, error) {
	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Homeserver.URL,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	var credentials messaging.Credentials
	if cfg.Homeserver.UserID != "" {
		credentials.UserID, err = ref.ParseUserID(cfg.Homeserver.UserID)
		if err != nil {
			return nil, fmt.Errorf("homeserver.user_id: %w", err)
		}
	}

	if cfg.Homeserver.AccessTokenFile != "" {
		token, err := ReadSecret(cfg.Homeserver.AccessTokenFile, "")
		if err != nil {
			return nil, fmt.Errorf("access token: %w", err)
		}
		defer token.Close()
		credentials.AccessToken = token
	} else {
		password, err := ReadSecret(cfg.Homeserver.PasswordFile, "Password for "+cfg.Homeserver.Username+": ")
		if err != nil {
			return nil, fmt.Errorf("password: %w", err)
		}
		defer password.Close()
		credentials.Username = cfg.Homeserver.Username
		credentials.Password = password
	}

	session, err := client.Connect(ctx, credentials)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Homeserver.URL, err)
	}
	logger.Info("connected to homeserver",
		"homeserver", cfg.Homeserver.URL,
		"user_id", session.UserID(),
	)
	return session, nil
}
