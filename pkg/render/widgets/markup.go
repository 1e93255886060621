package widgets

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/webtero/blockkit/pkg/render"
	"github.com/webtero/blockkit/pkg/schema"
)

// FieldMarkup wraps a rendered control in the shared field chrome: width
// class, label, description, inline errors, and markdown help.
func FieldMarkup(field schema.Field, control string, errors []string) string {
	var b strings.Builder
	b.Grow(len(control) + 256)

	b.WriteString(`<div class="field field-`)
	b.WriteString(html.EscapeString(string(field.Type)))
	b.WriteString(` field-width-`)
	b.WriteString(strconv.Itoa(field.EffectiveWidth()))
	b.WriteString(`" data-field-id="`)
	b.WriteString(html.EscapeString(field.ID))
	b.WriteString(`">`)

	if field.Label != "" && field.Type != schema.TypeCheckbox {
		b.WriteString(`<label class="field-label" for="`)
		b.WriteString(html.EscapeString(field.ID))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(field.Label))
		b.WriteString(`</label>`)
	}
	if field.Description != "" {
		b.WriteString(`<p class="field-description">`)
		b.WriteString(html.EscapeString(field.Description))
		b.WriteString(`</p>`)
	}

	b.WriteString(control)

	for _, msg := range errors {
		b.WriteString(`<p class="field-error" role="alert">`)
		b.WriteString(html.EscapeString(msg))
		b.WriteString(`</p>`)
	}
	if field.Help != "" {
		b.WriteString(`<div class="field-help">`)
		b.WriteString(render.HelpHTML(field.Help))
		b.WriteString(`</div>`)
	}

	b.WriteString(`</div>`)
	return b.String()
}

func escape(s string) string {
	return html.EscapeString(s)
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(html.EscapeString(value))
	b.WriteByte('"')
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1" || v == "on"
	case float64:
		return v != 0
	default:
		return false
	}
}

func asList(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case nil:
		return nil
	default:
		return []any{v}
	}
}

func asID(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}
