package widgets

import (
	"bytes"
	"strings"

	"github.com/webtero/blockkit/pkg/render"
	"github.com/webtero/blockkit/pkg/schema"
)

// RenderFields renders an ordered field list into the shared field chrome,
// wiring the repeater child path back through the registry. Host renderers
// wrap the result in their own surface chrome.
func (r *Registry) RenderFields(fields []schema.Field, options render.RenderOptions, data Data) (string, error) {
	if data.RenderChild == nil {
		data.RenderChild = func(sub schema.Field, value any, errs []string) (string, error) {
			var buf bytes.Buffer
			if err := r.Render(&buf, sub, value, data); err != nil {
				return "", err
			}
			return FieldMarkup(sub, buf.String(), errs), nil
		}
	}

	var b strings.Builder
	for _, field := range fields {
		var value any
		if options.Values != nil {
			value = options.Values[field.ID]
		}
		var buf bytes.Buffer
		if err := r.Render(&buf, field, value, data); err != nil {
			return "", err
		}
		b.WriteString(FieldMarkup(field, buf.String(), options.Errors[field.ID]))
	}
	return b.String(), nil
}
