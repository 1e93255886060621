package widgets

import (
	"bytes"
	"strings"

	"github.com/webtero/blockkit/pkg/richtext"
	"github.com/webtero/blockkit/pkg/schema"
)

// renderRichText mounts the embedded formatted-text editor. The value is
// opaque markup; it is sanitized once here and otherwise passed through
// untouched. The data attributes drive the client-side mount/destroy
// lifecycle so the editor is constructed exactly once per mount.
func renderRichText(w *bytes.Buffer, field schema.Field, value any, _ Data) error {
	sanitized := richtext.Sanitize(asString(value))

	var b strings.Builder
	b.WriteString(`<div class="field-rich-text" data-editor="rich-text" data-mount="once"`)
	writeAttr(&b, "data-name", field.ID)
	b.WriteString(`><textarea class="rich-text-source" hidden`)
	writeAttr(&b, "id", field.ID)
	writeAttr(&b, "name", field.ID)
	b.WriteString(`>`)
	b.WriteString(escape(sanitized))
	b.WriteString(`</textarea><div class="rich-text-surface">`)
	b.WriteString(sanitized)
	b.WriteString(`</div></div>`)
	w.WriteString(b.String())
	return nil
}
