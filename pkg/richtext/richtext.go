// Package richtext sanitizes the opaque formatted-text values carried by
// rich_text fields. Values pass through the editor untouched; sanitization
// happens at the storage and rendering boundaries.
package richtext

import "github.com/microcosm-cc/bluemonday"

var (
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

// Sanitize keeps the user-generated-content subset of markup: formatting,
// links, lists, images. Script and event-handler vectors are removed.
func Sanitize(html string) string {
	return ugc.Sanitize(html)
}

// Strip removes all markup, leaving plain text. Used for summaries and the
// terminal settings editor.
func Strip(html string) string {
	return strict.Sanitize(html)
}
