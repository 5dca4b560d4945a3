// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if time.Duration(cfg.Poll.Interval) != 10*time.Second {
		t.Errorf("expected interval=10s, got %s", time.Duration(cfg.Poll.Interval))
	}
	if len(cfg.Poll.TimelineTypes) != 1 || cfg.Poll.TimelineTypes[0] != "m.room.message" {
		t.Errorf("expected timeline_types=[m.room.message], got %v", cfg.Poll.TimelineTypes)
	}
	if !cfg.Poll.AutoJoinInvites {
		t.Error("expected auto_join_invites=true")
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "auto" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoad_RequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when MATRIXBOT_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "MATRIXBOT_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %q", err)
	}
}

func TestLoad_WithEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, "bot.yaml", `
homeserver:
  url: https://matrix.example.org
  access_token_file: /run/secrets/token
rooms:
  - "!abc:example.org"
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Homeserver.URL != "https://matrix.example.org" {
		t.Errorf("unexpected url: %s", cfg.Homeserver.URL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeConfig(t, "bot.yml", `
homeserver:
  url: http://localhost:8008
  username: echo
  password_file: /run/secrets/password
rooms:
  - "#lobby:example.org"
  - "!abc:example.org"
poll:
  interval: 2m30s
  timeline_types: [m.room.message, m.room.member]
  auto_join_invites: false
  state_file: /var/lib/echo/cursors.cbor
metrics:
  address: 127.0.0.1:9100
log:
  level: debug
  format: json
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if time.Duration(cfg.Poll.Interval) != 150*time.Second {
		t.Errorf("interval = %s, want 2m30s", time.Duration(cfg.Poll.Interval))
	}
	if cfg.Poll.AutoJoinInvites {
		t.Error("auto_join_invites should be false")
	}
	if got := cfg.TimelineEventTypes(); len(got) != 2 || got[1] != "m.room.member" {
		t.Errorf("TimelineEventTypes() = %v", got)
	}
	if cfg.Metrics.Address != "127.0.0.1:9100" {
		t.Errorf("metrics address = %q", cfg.Metrics.Address)
	}
	targets, err := cfg.RoomTargets()
	if err != nil {
		t.Fatalf("RoomTargets() failed: %v", err)
	}
	if len(targets) != 2 || targets[0].Alias.String() != "#lobby:example.org" || targets[1].ID.String() != "!abc:example.org" {
		t.Errorf("RoomTargets() = %+v", targets)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	path := writeConfig(t, "bot.jsonc", `{
  // Token path, not the token itself.
  "homeserver": {
    "url": "https://matrix.example.org",
    "access_token_file": "/run/secrets/token",
  },
  /* polled in order */
  "rooms": ["!abc:example.org", "!def:example.org",],
  "poll": {"interval": "5s"},
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if len(cfg.Rooms) != 2 {
		t.Errorf("rooms = %v", cfg.Rooms)
	}
	if time.Duration(cfg.Poll.Interval) != 5*time.Second {
		t.Errorf("interval = %s", time.Duration(cfg.Poll.Interval))
	}
	// Fields absent from the file keep their defaults.
	if !cfg.Poll.AutoJoinInvites || cfg.Poll.TimelineTypes[0] != "m.room.message" {
		t.Errorf("defaults lost: %+v", cfg.Poll)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeConfig(t, "bot.toml", `url = "x"`)
		_, err := LoadFile(path)
		if err == nil || !strings.Contains(err.Error(), "unsupported config file extension") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("bad duration", func(t *testing.T) {
		path := writeConfig(t, "bot.yaml", "poll:\n  interval: soon\n")
		if _, err := LoadFile(path); err == nil {
			t.Fatal("expected error for bad duration")
		}
	})
}

func TestEnvironmentDoesNotOverride(t *testing.T) {
	t.Setenv("HOMESERVER_URL", "https://evil.example.org")
	path := writeConfig(t, "bot.yaml", "homeserver:\n  url: https://matrix.example.org\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Homeserver.URL != "https://matrix.example.org" {
		t.Errorf("environment leaked into config: %s", cfg.Homeserver.URL)
	}
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("HOME", "/home/bot")
	t.Setenv("STATE_DIRECTORY", "")
	t.Setenv("SECRETS", "/run/secrets")
	path := writeConfig(t, "bot.yaml", `
homeserver:
  access_token_file: ${SECRETS}/token
  password_file: ${HOME}/.password
poll:
  state_file: ${STATE_DIRECTORY:-/var/lib/bot}/cursors.cbor
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Homeserver.AccessTokenFile != "/run/secrets/token" {
		t.Errorf("access_token_file = %q", cfg.Homeserver.AccessTokenFile)
	}
	if cfg.Homeserver.PasswordFile != "/home/bot/.password" {
		t.Errorf("password_file = %q", cfg.Homeserver.PasswordFile)
	}
	if cfg.Poll.StateFile != "/var/lib/bot/cursors.cbor" {
		t.Errorf("state_file = %q", cfg.Poll.StateFile)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("FROM_ENV", "env-value")
	vars := map[string]string{"LOCAL": "local-value"}

	tests := []struct {
		input string
		want  string
	}{
		{"${LOCAL}/x", "local-value/x"},
		{"${FROM_ENV}", "env-value"},
		{"${UNSET_VARIABLE_FOR_TEST:-fallback}", "fallback"},
		{"${UNSET_VARIABLE_FOR_TEST}", ""},
		{"no variables", "no variables"},
		{"$NOT_BRACED", "$NOT_BRACED"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Homeserver.URL = "https://matrix.example.org"
		cfg.Homeserver.AccessTokenFile = "/run/secrets/token"
		cfg.Rooms = []string{"!abc:example.org"}
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config failed validation: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing url", func(c *Config) { c.Homeserver.URL = "" }, "homeserver.url is required"},
		{"non-http url", func(c *Config) { c.Homeserver.URL = "ftp://example.org" }, "must be an http or https URL"},
		{"bad user id", func(c *Config) { c.Homeserver.UserID = "echo" }, "homeserver.user_id"},
		{"no credentials", func(c *Config) { c.Homeserver.AccessTokenFile = "" }, "one of access_token_file or username is required"},
		{"both credentials", func(c *Config) { c.Homeserver.Username = "echo" }, "not both"},
		{"bad room", func(c *Config) { c.Rooms = []string{"lobby"} }, "rooms[0]"},
		{"duplicate room", func(c *Config) { c.Rooms = []string{"!abc:example.org", "!abc:example.org"} }, "more than once"},
		{"zero interval", func(c *Config) { c.Poll.Interval = 0 }, "poll.interval must be positive"},
		{"empty timeline type", func(c *Config) { c.Poll.TimelineTypes = []string{" "} }, "poll.timeline_types[0] is empty"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", test.wantErr)
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error = %q, want substring %q", err, test.wantErr)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}
