// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// matrix-echo-bot answers "hi" with an "ahoi, <sender>!" notice in every
// room it polls. It joins the configured rooms at startup and, unless
// poll.auto_join_invites is false, every room it is invited to.
//
// Usage:
//
//	matrix-echo-bot --config /etc/matrixbot/echo.yaml
//
// With metrics.address set, Prometheus metrics are served on /metrics
// and a liveness probe on /health.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/matrixbot/bot"
	"github.com/bureau-foundation/matrixbot/lib/cli"
	"github.com/bureau-foundation/matrixbot/lib/metrics"
	"github.com/bureau-foundation/matrixbot/lib/process"
	"github.com/bureau-foundation/matrixbot/lib/version"
	"github.com/bureau-foundation/matrixbot/messaging"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var flags cli.CommonFlags
	flagSet := pflag.NewFlagSet("matrix-echo-bot", pflag.ContinueOnError)
	flags.AddFlags(flagSet)
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &cli.UsageError{Err: err}
	}
	if flags.ShowVersion {
		version.Print("matrix-echo-bot")
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
	logger = logger.With("bot", "echo")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := cli.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	registry := metrics.NewRegistry()
	botMetrics := messaging.NewMetrics(registry)
	metricsDone := make(chan error, 1)
	if cfg.Metrics.Address != "" {
		server := metrics.NewServer(metrics.ServerConfig{
			Address:  cfg.Metrics.Address,
			Registry: registry,
			Logger:   logger,
		})
		go func() { metricsDone <- server.Serve(ctx) }()
	} else {
		close(metricsDone)
	}

	targets, err := cfg.RoomTargets()
	if err != nil {
		return err
	}
	var state *bot.StateStore
	if cfg.Poll.StateFile != "" {
		state = bot.NewStateStore(cfg.Poll.StateFile)
	}

	echo, err := bot.New(bot.Config{
		Session:         session,
		Rooms:           targets,
		Handler:         newEchoHandler(logger),
		Interval:        time.Duration(cfg.Poll.Interval),
		TimelineTypes:   cfg.TimelineEventTypes(),
		AutoJoinInvites: cfg.Poll.AutoJoinInvites,
		State:           state,
		Logger:          logger,
		Metrics:         botMetrics,
	})
	if err != nil {
		return err
	}

	runErr := echo.Run(ctx)
	stop()
	if err := <-metricsDone; err != nil {
		logger.Error("metrics server failed", "error", err)
	}
	return runErr
}
