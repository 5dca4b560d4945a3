// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/matrixbot/bot"
	"github.com/bureau-foundation/matrixbot/messaging"
)

// trigger is the exact text message body the bot answers.
const trigger = "hi"

// newEchoHandler returns the handler that logs every text message and
// replies to trigger with a notice. Notices are never answered, so two
// echo bots in one room do not loop.
func newEchoHandler(logger *slog.Logger) bot.Handler {
	return bot.MessageHandlerFunc(func(ctx context.Context, room *messaging.Room, message *messaging.MessageEvent) error {
		text, ok := message.Content.(messaging.TextContent)
		if !ok {
			return nil
		}
		logger.Info("message received",
			"room_id", room.ID(),
			"sender", message.Sender,
			"body", text.Body,
		)
		if text.Body != trigger {
			return nil
		}
		_, err := room.SendNotice(ctx, reply(message))
		return err
	})
}

func reply(message *messaging.MessageEvent) string {
	return "ahoi, " + message.Sender.String() + "!"
}
