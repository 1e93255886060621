package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/webtero/blockkit/pkg/richtext"
)

var helpMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify),
)

// HelpHTML renders a field's markdown help string to sanitized HTML. A
// conversion failure falls back to the raw text escaped by the sanitizer.
func HelpHTML(markdown string) string {
	if markdown == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := helpMarkdown.Convert([]byte(markdown), &buf); err != nil {
		return richtext.Strip(markdown)
	}
	return richtext.Sanitize(buf.String())
}
