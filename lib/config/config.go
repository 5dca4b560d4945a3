// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/matrixbot/lib/ref"
)

// EnvironmentVariable names the variable Load reads the config path from.
const EnvironmentVariable = "MATRIXBOT_CONFIG"

// Config is the complete configuration for a bot binary.
type Config struct {
	// Homeserver configures the connection and credentials.
	Homeserver HomeserverConfig `yaml:"homeserver" json:"homeserver"`

	// Rooms lists the rooms to join and poll, as room IDs
	// ("!opaque:server") or aliases ("#name:server"). Polled in the
	// order listed.
	Rooms []string `yaml:"rooms" json:"rooms"`

	// Poll configures the poll loop.
	Poll PollConfig `yaml:"poll" json:"poll"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log" json:"log"`
}

// HomeserverConfig configures the homeserver and one of two credential
// paths: an existing access token (AccessTokenFile), or a password
// login (Username plus PasswordFile).
type HomeserverConfig struct {
	// URL is the homeserver base URL (e.g., "https://matrix.example.org").
	URL string `yaml:"url" json:"url"`

	// UserID is the bot's full Matrix user ID. Optional with a token:
	// when empty it is resolved with whoami at startup.
	UserID string `yaml:"user_id" json:"user_id"`

	// AccessTokenFile holds an existing access token. "-" reads stdin.
	AccessTokenFile string `yaml:"access_token_file" json:"access_token_file"`

	// Username is the login name for password login.
	Username string `yaml:"username" json:"username"`

	// PasswordFile holds the password for password login. "-" reads
	// stdin. When Username is set and PasswordFile is empty, binaries
	// prompt on the terminal.
	PasswordFile string `yaml:"password_file" json:"password_file"`
}

// PollConfig configures the poll loop.
type PollConfig struct {
	// Interval is the fixed sleep between poll passes. Default 10s.
	Interval Duration `yaml:"interval" json:"interval"`

	// TimelineTypes restricts delivered events to these event types.
	// Default ["m.room.message"].
	TimelineTypes []string `yaml:"timeline_types" json:"timeline_types"`

	// AutoJoinInvites joins every room the bot is invited to and starts
	// polling it. Default true.
	AutoJoinInvites bool `yaml:"auto_join_invites" json:"auto_join_invites"`

	// StateFile, when set, persists each room's sync position so a
	// restarted bot resumes where it stopped instead of skipping the
	// backlog.
	StateFile string `yaml:"state_file" json:"state_file"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Address is the listen address for /metrics (e.g., "127.0.0.1:9100").
	// Empty disables the endpoint.
	Address string `yaml:"address" json:"address"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default info.
	Level string `yaml:"level" json:"level"`

	// Format is one of auto, text, json. "auto" picks text on a
	// terminal and JSON otherwise. Default auto.
	Format string `yaml:"format" json:"format"`
}

// Duration is a time.Duration that reads and writes Go duration
// strings ("10s", "1m30s") in both YAML and JSON.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(data []byte) error {
	parsed, err := time.ParseDuration(string(data))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the default configuration. Values from the config
// file are merged over it.
func Default() *Config {
	return &Config{
		Poll: PollConfig{
			Interval:        Duration(10 * time.Second),
			TimelineTypes:   []string{string(ref.EventTypeMessage)},
			AutoJoinInvites: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the file named by MATRIXBOT_CONFIG.
// There is no fallback search: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your bot config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The format
// follows the extension: .yaml and .yml are YAML; .json and .jsonc are
// JSON with comments and trailing commas allowed.
//
// Environment variables never override config values. The only
// expansion is ${VAR} and ${VAR:-default} in file path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.decode(path, data); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) decode(path string, data []byte) error {
	switch extension := strings.ToLower(filepath.Ext(path)); extension {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, c)
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		return fmt.Errorf("unsupported config file extension %q (want .yaml, .yml, .json, or .jsonc)", extension)
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Homeserver.AccessTokenFile = expandVars(c.Homeserver.AccessTokenFile, vars)
	c.Homeserver.PasswordFile = expandVars(c.Homeserver.PasswordFile, vars)
	c.Poll.StateFile = expandVars(c.Poll.StateFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, checking
// vars first and then the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Homeserver.URL == "" {
		errs = append(errs, fmt.Errorf("homeserver.url is required"))
	} else if parsed, err := url.Parse(c.Homeserver.URL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("homeserver.url %q must be an http or https URL", c.Homeserver.URL))
	}

	if c.Homeserver.UserID != "" {
		if _, err := ref.ParseUserID(c.Homeserver.UserID); err != nil {
			errs = append(errs, fmt.Errorf("homeserver.user_id: %w", err))
		}
	}

	hasToken := c.Homeserver.AccessTokenFile != ""
	hasLogin := c.Homeserver.Username != ""
	switch {
	case hasToken && hasLogin:
		errs = append(errs, fmt.Errorf("homeserver: set either access_token_file or username, not both"))
	case !hasToken && !hasLogin:
		errs = append(errs, fmt.Errorf("homeserver: one of access_token_file or username is required"))
	}

	if _, err := c.RoomTargets(); err != nil {
		errs = append(errs, err)
	}

	if c.Poll.Interval <= 0 {
		errs = append(errs, fmt.Errorf("poll.interval must be positive, got %s", time.Duration(c.Poll.Interval)))
	}
	for index, eventType := range c.Poll.TimelineTypes {
		if strings.TrimSpace(eventType) == "" {
			errs = append(errs, fmt.Errorf("poll.timeline_types[%d] is empty", index))
		}
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if !contains([]string{"auto", "text", "json"}, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: auto, text, json"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// RoomTargets parses Rooms into typed room IDs and aliases, preserving
// order. Duplicates are an error: a room polled twice per pass would
// have two cursors racing over one position.
func (c *Config) RoomTargets() ([]ref.RoomTarget, error) {
	targets := make([]ref.RoomTarget, 0, len(c.Rooms))
	seen := make(map[string]bool, len(c.Rooms))
	for index, raw := range c.Rooms {
		target, err := ref.ParseRoomTarget(raw)
		if err != nil {
			return nil, fmt.Errorf("rooms[%d]: %w", index, err)
		}
		if seen[raw] {
			return nil, fmt.Errorf("rooms[%d]: %q listed more than once", index, raw)
		}
		seen[raw] = true
		targets = append(targets, target)
	}
	return targets, nil
}

// TimelineEventTypes returns Poll.TimelineTypes as typed event types.
func (c *Config) TimelineEventTypes() []ref.EventType {
	types := make([]ref.EventType, len(c.Poll.TimelineTypes))
	for index, eventType := range c.Poll.TimelineTypes {
		types[index] = ref.EventType(eventType)
	}
	return types
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
