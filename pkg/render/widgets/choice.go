package widgets

import (
	"bytes"
	"strings"

	"github.com/webtero/blockkit/pkg/schema"
)

func renderRadio(w *bytes.Buffer, field schema.Field, value any, _ Data) error {
	current := asString(value)
	var b strings.Builder
	b.WriteString(`<fieldset class="field-radio-group"`)
	writeAttr(&b, "id", field.ID)
	b.WriteString(`>`)
	for _, opt := range field.Options {
		b.WriteString(`<label class="field-radio"><input type="radio"`)
		writeAttr(&b, "name", field.ID)
		writeAttr(&b, "value", opt.Value)
		if opt.Value == current {
			b.WriteString(` checked`)
		}
		b.WriteString(`>`)
		b.WriteString(escape(opt.Label))
		b.WriteString(`</label>`)
	}
	b.WriteString(`</fieldset>`)
	w.WriteString(b.String())
	return nil
}

func renderCheckbox(w *bytes.Buffer, field schema.Field, value any, _ Data) error {
	label := field.CheckboxLabel
	if label == "" {
		label = field.Label
	}
	var b strings.Builder
	b.WriteString(`<label class="field-checkbox"><input type="checkbox"`)
	writeAttr(&b, "id", field.ID)
	writeAttr(&b, "name", field.ID)
	if asBool(value) {
		b.WriteString(` checked`)
	}
	b.WriteString(`>`)
	b.WriteString(escape(label))
	b.WriteString(`</label>`)
	w.WriteString(b.String())
	return nil
}

func renderToggle(w *bytes.Buffer, field schema.Field, value any, _ Data) error {
	on := asBool(value)
	var b strings.Builder
	b.WriteString(`<label class="field-toggle"><input type="checkbox" role="switch"`)
	writeAttr(&b, "id", field.ID)
	writeAttr(&b, "name", field.ID)
	if field.LabelOn != "" {
		writeAttr(&b, "data-label-on", field.LabelOn)
	}
	if field.LabelOff != "" {
		writeAttr(&b, "data-label-off", field.LabelOff)
	}
	if on {
		b.WriteString(` checked`)
	}
	b.WriteString(`><span class="field-toggle-state">`)
	if on && field.LabelOn != "" {
		b.WriteString(escape(field.LabelOn))
	} else if !on && field.LabelOff != "" {
		b.WriteString(escape(field.LabelOff))
	}
	b.WriteString(`</span></label>`)
	w.WriteString(b.String())
	return nil
}

func renderButtonGroup(w *bytes.Buffer, field schema.Field, value any, _ Data) error {
	current := asString(value)
	var b strings.Builder
	b.WriteString(`<div class="field-button-group" role="group"`)
	writeAttr(&b, "id", field.ID)
	writeAttr(&b, "data-name", field.ID)
	b.WriteString(`>`)
	for _, opt := range field.Options {
		b.WriteString(`<button type="button"`)
		writeAttr(&b, "data-value", opt.Value)
		if opt.Value == current {
			b.WriteString(` aria-pressed="true"`)
		} else {
			b.WriteString(` aria-pressed="false"`)
		}
		b.WriteString(`>`)
		if opt.Icon != "" {
			b.WriteString(`<span class="icon icon-`)
			b.WriteString(escape(opt.Icon))
			b.WriteString(`"></span>`)
		}
		b.WriteString(escape(opt.Label))
		b.WriteString(`</button>`)
	}
	b.WriteString(`</div>`)
	w.WriteString(b.String())
	return nil
}

func renderSelect(w *bytes.Buffer, field schema.Field, value any, _ Data) error {
	var b strings.Builder
	b.WriteString(`<select class="field-control"`)
	writeAttr(&b, "id", field.ID)
	writeAttr(&b, "name", field.ID)
	if field.Multiple {
		b.WriteString(` multiple`)
	}
	b.WriteString(`>`)
	writeOptions(&b, field, value)
	b.WriteString(`</select>`)
	w.WriteString(b.String())
	return nil
}

func renderEnhancedSelect(w *bytes.Buffer, field schema.Field, value any, _ Data) error {
	var b strings.Builder
	b.WriteString(`<div class="field-enhanced-select" data-enhanced="true"`)
	if field.Searchable {
		b.WriteString(` data-searchable="true"`)
	}
	b.WriteString(`><select class="field-control"`)
	writeAttr(&b, "id", field.ID)
	writeAttr(&b, "name", field.ID)
	if field.Multiple {
		b.WriteString(` multiple`)
	}
	b.WriteString(`>`)
	writeOptions(&b, field, value)
	b.WriteString(`</select>`)
	if field.Multiple {
		// Selection order matters for multi-select; mirror it for the client.
		b.WriteString(`<ol class="field-selected-order">`)
		for _, item := range asList(value) {
			v := asString(item)
			b.WriteString(`<li`)
			writeAttr(&b, "data-value", v)
			b.WriteString(`>`)
			b.WriteString(escape(field.OptionLabel(v)))
			b.WriteString(`</li>`)
		}
		b.WriteString(`</ol>`)
	}
	b.WriteString(`</div>`)
	w.WriteString(b.String())
	return nil
}

// writeOptions emits option elements in schema insertion order, marking the
// current selection (single value or ordered list).
func writeOptions(b *strings.Builder, field schema.Field, value any) {
	selected := make(map[string]bool)
	if field.Multiple {
		for _, item := range asList(value) {
			selected[asString(item)] = true
		}
	} else if s := asString(value); s != "" {
		selected[s] = true
	}

	for _, opt := range field.Options {
		b.WriteString(`<option`)
		writeAttr(b, "value", opt.Value)
		if selected[opt.Value] {
			b.WriteString(` selected`)
		}
		b.WriteString(`>`)
		b.WriteString(escape(opt.Label))
		b.WriteString(`</option>`)
	}
}
