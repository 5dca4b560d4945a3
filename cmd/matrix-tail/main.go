// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// matrix-tail prints every event in the configured rooms to stdout, one
// line per event, until interrupted. Logs go to stderr, so the output
// can be piped.
//
//	matrix-tail --config tail.yaml --all-types
//
// By default only m.room.message events are shown (poll.timeline_types
// in the config). --all-types adds membership changes and redactions.
// --archive also records every printed event in a SQLite database.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/matrixbot/archive"
	"github.com/bureau-foundation/matrixbot/bot"
	"github.com/bureau-foundation/matrixbot/lib/cli"
	"github.com/bureau-foundation/matrixbot/lib/process"
	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var flags cli.CommonFlags
	var allTypes, utc bool
	var archivePath string
	flagSet := pflag.NewFlagSet("matrix-tail", pflag.ContinueOnError)
	flags.AddFlags(flagSet)
	flagSet.BoolVar(&allTypes, "all-types", false, "show membership changes and redactions as well as messages")
	flagSet.BoolVar(&utc, "utc", false, "print timestamps in UTC instead of local time")
	flagSet.StringVar(&archivePath, "archive", "", "also record events in this SQLite database")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &cli.UsageError{Err: err}
	}
	if flags.ShowVersion {
		version.Print("matrix-tail")
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return cli.Usage("unexpected argument: %s", args[0])
	}

	cfg, err := flags.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := cli.NewCommandLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logger = logger.With("bot", "tail")

	targets, err := cfg.RoomTargets()
	if err != nil {
		return err
	}
	if len(targets) == 0 && !cfg.Poll.AutoJoinInvites {
		return errors.New("nothing to tail: no rooms configured and poll.auto_join_invites is off")
	}

	timelineTypes := cfg.TimelineEventTypes()
	if allTypes {
		timelineTypes = []ref.EventType{ref.EventTypeMessage, ref.EventTypeMember, ref.EventTypeRedaction}
	}
	location := time.Local
	if utc {
		location = time.UTC
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := cli.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	var state *bot.StateStore
	if cfg.Poll.StateFile != "" {
		state = bot.NewStateStore(cfg.Poll.StateFile)
	}

	var eventArchive *archive.Archive
	if archivePath != "" {
		eventArchive, err = archive.Open(archive.Config{Path: archivePath, Logger: logger})
		if err != nil {
			return err
		}
		defer eventArchive.Close()
	}

	tail, err := bot.New(bot.Config{
		Session:         session,
		Rooms:           targets,
		Handler:         newTailHandler(newRenderer(os.Stdout, location), eventArchive),
		Interval:        time.Duration(cfg.Poll.Interval),
		TimelineTypes:   timelineTypes,
		AutoJoinInvites: cfg.Poll.AutoJoinInvites,
		State:           state,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	return tail.Run(ctx)
}
