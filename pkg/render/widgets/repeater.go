package widgets

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/webtero/blockkit/pkg/repeater"
	"github.com/webtero/blockkit/pkg/schema"
)

// renderRepeater renders the ordered row list with per-row chrome (drag
// handle, collapse, move, remove) and the add control. Sub-fields render
// recursively through Data.RenderChild.
func renderRepeater(w *bytes.Buffer, field schema.Field, value any, data Data) error {
	if data.RenderChild == nil {
		return fmt.Errorf("widgets: repeater %q needs a child renderer", field.ID)
	}

	engine, err := repeater.New(field, value)
	if err != nil {
		return fmt.Errorf("widgets: repeater %q: %w", field.ID, err)
	}
	rows := engine.Rows()
	min, max, bounded := field.RowBounds()

	var b strings.Builder
	b.WriteString(`<div class="field-repeater"`)
	writeAttr(&b, "data-name", field.ID)
	writeAttr(&b, "data-min", strconv.Itoa(min))
	if bounded {
		writeAttr(&b, "data-max", strconv.Itoa(max))
	}
	b.WriteString(`><ul class="repeater-rows">`)

	for i, row := range rows {
		b.WriteString(`<li class="repeater-row repeater-row-width-`)
		b.WriteString(strconv.Itoa(row.Width()))
		b.WriteString(`"`)
		writeAttr(&b, "data-row-id", row.ID())
		b.WriteString(`><div class="repeater-row-head">`)
		b.WriteString(`<button type="button" class="row-collapse" aria-expanded="true">&#9662;</button>`)
		b.WriteString(`<button type="button" class="row-move-up"`)
		if i == 0 {
			b.WriteString(` disabled`)
		}
		b.WriteString(`>&uarr;</button><button type="button" class="row-move-down"`)
		if i == len(rows)-1 {
			b.WriteString(` disabled`)
		}
		b.WriteString(`>&darr;</button><button type="button" class="row-remove"`)
		if len(rows) <= min {
			b.WriteString(` disabled`)
		}
		b.WriteString(`>&times;</button></div><div class="repeater-row-body">`)

		for _, sub := range field.Fields {
			child, err := data.RenderChild(sub, row[sub.ID], nil)
			if err != nil {
				return fmt.Errorf("widgets: repeater %q row %d field %q: %w", field.ID, i, sub.ID, err)
			}
			b.WriteString(child)
		}

		b.WriteString(`</div></li>`)
	}

	b.WriteString(`</ul><div class="repeater-foot"><span class="repeater-count">`)
	b.WriteString(escape(engine.CountLabel()))
	b.WriteString(`</span><button type="button" class="repeater-add"`)
	if bounded && len(rows) >= max {
		b.WriteString(` disabled`)
	}
	b.WriteString(`>Add row</button></div></div>`)

	w.WriteString(b.String())
	return nil
}
