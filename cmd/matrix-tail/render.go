// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/matrixbot/lib/ref"
	"github.com/bureau-foundation/matrixbot/messaging"
)

// renderer formats room events as single terminal lines. Colors are
// dropped automatically when the output is not a terminal.
type renderer struct {
	output   io.Writer
	location *time.Location

	timestamp lipgloss.Style
	room      lipgloss.Style
	sender    lipgloss.Style
	text      lipgloss.Style
	notice    lipgloss.Style
	emote     lipgloss.Style
	media     lipgloss.Style
	member    lipgloss.Style
	redaction lipgloss.Style
}

func newRenderer(output io.Writer, location *time.Location) *renderer {
	terminal := lipgloss.NewRenderer(output)
	return &renderer{
		output:    output,
		location:  location,
		timestamp: terminal.NewStyle().Faint(true),
		room:      terminal.NewStyle().Foreground(lipgloss.Color("6")),
		sender:    terminal.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		text:      terminal.NewStyle(),
		notice:    terminal.NewStyle().Foreground(lipgloss.Color("8")),
		emote:     terminal.NewStyle().Italic(true),
		media:     terminal.NewStyle().Foreground(lipgloss.Color("5")),
		member:    terminal.NewStyle().Foreground(lipgloss.Color("2")).Faint(true),
		redaction: terminal.NewStyle().Foreground(lipgloss.Color("1")).Strikethrough(true),
	}
}

// Print writes one line for event.
func (r *renderer) Print(roomID ref.RoomID, event messaging.RoomEvent) {
	fmt.Fprintln(r.output, r.Line(roomID, event))
}

// Line renders event without a trailing newline.
func (r *renderer) Line(roomID ref.RoomID, event messaging.RoomEvent) string {
	header := event.Header()
	var prefix strings.Builder
	if header.OriginServerTS != 0 {
		prefix.WriteString(r.timestamp.Render(header.Timestamp().In(r.location).Format(time.TimeOnly)))
		prefix.WriteByte(' ')
	}
	prefix.WriteString(r.room.Render(roomID.String()))
	prefix.WriteByte(' ')

	switch event := event.(type) {
	case *messaging.MessageEvent:
		return prefix.String() + r.message(event)
	case *messaging.MemberEvent:
		return prefix.String() + r.member.Render(membershipLine(event))
	case *messaging.RedactionEvent:
		line := event.Sender.String() + " redacted " + event.Redacts.String()
		if event.Reason != "" {
			line += " (" + event.Reason + ")"
		}
		return prefix.String() + r.redaction.Render(line)
	default:
		return prefix.String() + string(event.Type())
	}
}

func (r *renderer) message(event *messaging.MessageEvent) string {
	sender := r.sender.Render(event.Sender.String())
	switch content := event.Content.(type) {
	case messaging.TextContent:
		return sender + ": " + r.text.Render(content.Body)
	case messaging.NoticeContent:
		return sender + ": " + r.notice.Render(content.Body)
	case messaging.EmoteContent:
		return r.emote.Render("* ") + sender + " " + r.emote.Render(content.Body)
	case messaging.ImageContent:
		return sender + ": " + r.media.Render(attachment("image", content.Body, content.URL, content.Info))
	case messaging.VideoContent:
		return sender + ": " + r.media.Render(attachment("video", content.Body, content.URL, content.Info))
	case messaging.AudioContent:
		return sender + ": " + r.media.Render(attachment("audio", content.Body, content.URL, content.Info))
	case messaging.FileContent:
		name := content.Body
		if content.Filename != "" {
			name = content.Filename
		}
		return sender + ": " + r.media.Render(attachment("file", name, content.URL, content.Info))
	case messaging.LocationContent:
		return sender + ": " + r.media.Render("[location] "+content.Body+" "+content.GeoURI)
	default:
		return sender + ": " + event.Content.MessageBody()
	}
}

func attachment(kind, name, url string, info *messaging.MediaInfo) string {
	line := "[" + kind + "] " + name + " " + url
	if info == nil {
		return line
	}
	var details []string
	if info.MimeType != "" {
		details = append(details, info.MimeType)
	}
	if info.Size > 0 {
		details = append(details, formatSize(info.Size))
	}
	if len(details) > 0 {
		line += " (" + strings.Join(details, ", ") + ")"
	}
	return line
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	divisor, exponent := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		divisor *= unit
		exponent++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(divisor), "KMGTPE"[exponent])
}

func membershipLine(event *messaging.MemberEvent) string {
	subject := event.StateKey.String()
	actor := event.Sender.String()
	switch event.Membership {
	case messaging.MembershipJoin:
		if event.DisplayName != "" {
			return subject + " joined as " + event.DisplayName
		}
		return subject + " joined"
	case messaging.MembershipInvite:
		return actor + " invited " + subject
	case messaging.MembershipLeave:
		if actor != subject {
			return actor + " removed " + subject
		}
		return subject + " left"
	case messaging.MembershipBan:
		return actor + " banned " + subject
	case messaging.MembershipKnock:
		return subject + " knocked"
	default:
		return subject + " membership " + string(event.Membership)
	}
}
