package widgets

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/webtero/blockkit/pkg/schema"
)

func renderText(w *bytes.Buffer, field schema.Field, value any, _ Data) error {
	var b strings.Builder
	b.WriteString(`<input type="text" class="field-control"`)
	writeAttr(&b, "id", field.ID)
	writeAttr(&b, "name", field.ID)
	writeAttr(&b, "value", asString(value))
	if field.Placeholder != "" {
		writeAttr(&b, "placeholder", field.Placeholder)
	}
	b.WriteString(`>`)
	w.WriteString(b.String())
	return nil
}

func renderTextarea(w *bytes.Buffer, field schema.Field, value any, _ Data) error {
	rows := field.Rows
	if rows <= 0 {
		rows = 4
	}
	var b strings.Builder
	b.WriteString(`<textarea class="field-control"`)
	writeAttr(&b, "id", field.ID)
	writeAttr(&b, "name", field.ID)
	writeAttr(&b, "rows", strconv.Itoa(rows))
	if field.Placeholder != "" {
		writeAttr(&b, "placeholder", field.Placeholder)
	}
	b.WriteString(`>`)
	b.WriteString(escape(asString(value)))
	b.WriteString(`</textarea>`)
	w.WriteString(b.String())
	return nil
}

func renderNumber(w *bytes.Buffer, field schema.Field, value any, _ Data) error {
	var b strings.Builder
	b.WriteString(`<input type="number" class="field-control"`)
	writeAttr(&b, "id", field.ID)
	writeAttr(&b, "name", field.ID)
	if v, ok := asFloat(value); ok {
		writeAttr(&b, "value", formatNumber(v))
	}
	writeNumericConstraints(&b, field)
	b.WriteString(`>`)
	w.WriteString(b.String())
	return nil
}

func renderRange(w *bytes.Buffer, field schema.Field, value any, _ Data) error {
	current, _ := asFloat(value)
	var b strings.Builder
	b.WriteString(`<div class="field-range-wrap"><input type="range" class="field-control"`)
	writeAttr(&b, "id", field.ID)
	writeAttr(&b, "name", field.ID)
	writeAttr(&b, "value", formatNumber(current))
	writeNumericConstraints(&b, field)
	b.WriteString(`><output`)
	writeAttr(&b, "for", field.ID)
	b.WriteString(`>`)
	b.WriteString(escape(formatNumber(current)))
	b.WriteString(`</output></div>`)
	w.WriteString(b.String())
	return nil
}

func renderColor(w *bytes.Buffer, field schema.Field, value any, _ Data) error {
	color := asString(value)
	if color == "" {
		color = "#000000"
	}
	var b strings.Builder
	b.WriteString(`<input type="color" class="field-control"`)
	writeAttr(&b, "id", field.ID)
	writeAttr(&b, "name", field.ID)
	writeAttr(&b, "value", color)
	b.WriteString(`>`)
	w.WriteString(b.String())
	return nil
}

func writeNumericConstraints(b *strings.Builder, field schema.Field) {
	if field.Min != nil {
		writeAttr(b, "min", formatNumber(*field.Min))
	}
	if field.Max != nil {
		writeAttr(b, "max", formatNumber(*field.Max))
	}
	if field.Step != nil {
		writeAttr(b, "step", formatNumber(*field.Step))
	}
}
