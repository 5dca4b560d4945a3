// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdownConverterInstance is initialized once and reused. The
// goldmark converter keeps no per-call state.
var (
	markdownConverterInstance goldmark.Markdown
	markdownConverterOnce     sync.Once
)

func getMarkdownConverter() goldmark.Markdown {
	markdownConverterOnce.Do(func() {
		markdownConverterInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.Strikethrough,
				extension.Table,
				extension.Linkify,
			),
		)
	})
	return markdownConverterInstance
}

// renderMarkdown converts markdown source to the HTML subset clients
// accept in formatted_body. Raw HTML in the source is not passed
// through (goldmark omits it unless configured as unsafe).
func renderMarkdown(source string) (string, error) {
	var buffer bytes.Buffer
	if err := getMarkdownConverter().Convert([]byte(source), &buffer); err != nil {
		return "", fmt.Errorf("messaging: rendering markdown: %w", err)
	}
	return strings.TrimRight(buffer.String(), "\n"), nil
}

// NewMarkdownMessage creates an m.text message whose body is the
// markdown source and whose formatted_body is the rendered HTML.
// Clients that do not render HTML show the source, which reads
// naturally as plain text.
func NewMarkdownMessage(source string) (TextContent, error) {
	rendered, err := renderMarkdown(source)
	if err != nil {
		return TextContent{}, err
	}
	return TextContent{
		Body:          source,
		Format:        FormatHTML,
		FormattedBody: rendered,
	}, nil
}

// NewMarkdownNotice is NewMarkdownMessage for m.notice.
func NewMarkdownNotice(source string) (NoticeContent, error) {
	text, err := NewMarkdownMessage(source)
	if err != nil {
		return NoticeContent{}, err
	}
	return NoticeContent(text), nil
}
