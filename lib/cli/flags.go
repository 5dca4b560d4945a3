// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/matrixbot/lib/config"
)

// CommonFlags are the flags every bot binary accepts. Values set on the
// command line override the config file.
type CommonFlags struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	Interval    time.Duration
	StateFile   string
	ShowVersion bool
}

// AddFlags registers the common flags on flagSet.
func (f *CommonFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&f.ConfigPath, "config", "c", "", "path to the bot config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn, or error (overrides log.level)")
	flagSet.StringVar(&f.LogFormat, "log-format", "", "log format: auto, text, or json (overrides log.format)")
	flagSet.DurationVar(&f.Interval, "interval", 0, "sleep between poll passes (overrides poll.interval)")
	flagSet.StringVar(&f.StateFile, "state-file", "", "file to persist room positions in (overrides poll.state_file)")
	flagSet.BoolVar(&f.ShowVersion, "version", false, "print version information and exit")
}

// LoadConfig loads the config file named by --config (or the
// environment), applies flag overrides, and validates the result.
func (f *CommonFlags) LoadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.ConfigPath != "" {
		cfg, err = config.LoadFile(f.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFormat != "" {
		cfg.Log.Format = f.LogFormat
	}
	if f.Interval != 0 {
		cfg.Poll.Interval = config.Duration(f.Interval)
	}
	if f.StateFile != "" {
		cfg.Poll.StateFile = f.StateFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UsageError is a command-line mistake. Binaries exit with status 2
// for it (see process.Fatal).
type UsageError struct {
	Err error
}

// Usage returns a *UsageError with a formatted message.
func Usage(format string, args ...any) *UsageError {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }
func (e *UsageError) ExitCode() int { return 2 }
