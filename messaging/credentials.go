// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/lib/secret"
)

// Credentials selects one of the two ways to authenticate: an existing
// access token, or a username and password. Exactly one path must be
// complete; Validate reports anything else as a *ConfigError before a
// request is made.
//
// The buffers are read but not closed; the caller retains ownership.
type Credentials struct {
	// UserID is the account's user ID. Optional with AccessToken (it
	// is then resolved with whoami); ignored with a password login,
	// where the server reports it.
	UserID ref.UserID

	// AccessToken is an existing access token.
	AccessToken *secret.Buffer

	// Username and Password authenticate with a password login.
	Username string
	Password *secret.Buffer
}

// Validate checks that exactly one authentication path is complete.
func (c Credentials) Validate() error {
	hasToken := c.AccessToken != nil && c.AccessToken.Len() > 0
	hasUsername := c.Username != ""
	hasPassword := c.Password != nil && c.Password.Len() > 0

	switch {
	case hasToken && (hasUsername || hasPassword):
		return &ConfigError{Field: "credentials", Problem: "set either an access token or a username and password, not both"}
	case hasToken:
		return nil
	case hasUsername && !hasPassword:
		return &ConfigError{Field: "password", Problem: "is required with a username"}
	case hasPassword && !hasUsername:
		return &ConfigError{Field: "username", Problem: "is required with a password"}
	case hasUsername && hasPassword:
		return nil
	default:
		return &ConfigError{Field: "credentials", Problem: "one of an access token or a username and password is required"}
	}
}
