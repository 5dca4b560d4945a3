// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/bureau-foundation/matrixbot/archive"
	"github.com/bureau-foundation/matrixbot/bot"
	"github.com/bureau-foundation/matrixbot/messaging"
)

// newTailHandler prints every event and, when eventArchive is not nil,
// records it. A redelivered event is printed again but archived once.
func newTailHandler(output *renderer, eventArchive *archive.Archive) bot.Handler {
	return bot.HandlerFunc(func(ctx context.Context, room *messaging.Room, event messaging.RoomEvent) error {
		output.Print(room.ID(), event)
		if eventArchive == nil {
			return nil
		}
		_, err := eventArchive.Record(ctx, room.ID(), event)
		return err
	})
}
