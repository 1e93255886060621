// Package openapi imports block type definitions from the component schemas
// of an OpenAPI 3 document, so teams that already describe their content
// models as API schemas can reuse them as editor field lists.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/webtero/blockkit/pkg/schema"
)

// Import parses an OpenAPI document payload and converts every object schema
// under components/schemas into a BlockType. Schemas that cannot be expressed
// as field lists (non-objects, empty objects) are skipped.
func Import(ctx context.Context, payload []byte) ([]schema.BlockType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(payload)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if doc.Components == nil || len(doc.Components.Schemas) == 0 {
		return nil, errors.New("openapi: document has no component schemas")
	}

	names := make([]string, 0, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	var blocks []schema.BlockType
	for _, name := range names {
		ref := doc.Components.Schemas[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		fields := convertObject(ref.Value)
		if len(fields) == 0 {
			continue
		}
		block := schema.BlockType{
			Name:        blockName(name),
			Title:       titleOf(ref.Value, name),
			Description: ref.Value.Description,
			Fields:      fields,
		}
		if err := block.Validate(); err != nil {
			return nil, fmt.Errorf("openapi: schema %q: %w", name, err)
		}
		blocks = append(blocks, block)
	}
	if len(blocks) == 0 {
		return nil, errors.New("openapi: no object schemas convertible to block types")
	}
	return blocks, nil
}

func convertObject(src *openapi3.Schema) []schema.Field {
	if src == nil || len(src.Properties) == 0 {
		return nil
	}

	ids := make([]string, 0, len(src.Properties))
	for id := range src.Properties {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fields := make([]schema.Field, 0, len(ids))
	for _, id := range ids {
		ref := src.Properties[id]
		if ref == nil || ref.Value == nil {
			continue
		}
		field, ok := convertProperty(id, ref.Value)
		if !ok {
			continue
		}
		fields = append(fields, field)
	}
	return fields
}

func convertProperty(id string, src *openapi3.Schema) (schema.Field, bool) {
	field := schema.Field{
		ID:          id,
		Label:       titleOf(src, id),
		Description: src.Description,
		Default:     src.Default,
	}

	switch schemaType(src) {
	case "boolean":
		field.Type = schema.TypeToggle
	case "integer", "number":
		field.Type = schema.TypeNumber
		field.Min = src.Min
		field.Max = src.Max
	case "array":
		sub := arrayItemFields(src)
		if len(sub) == 0 {
			return schema.Field{}, false
		}
		field.Type = schema.TypeRepeater
		field.Fields = sub
		if src.MinItems > 0 {
			min := float64(src.MinItems)
			field.Min = &min
		}
		if src.MaxItems != nil {
			max := float64(*src.MaxItems)
			field.Max = &max
		}
	case "object":
		return schema.Field{}, false
	default: // string and untyped
		field.Type = stringFieldType(src)
		field.Options = enumOptions(src.Enum)
	}

	if field.Default != nil {
		if def, ok := field.Default.(int); ok {
			field.Default = float64(def)
		}
	}
	return field, true
}

func arrayItemFields(src *openapi3.Schema) []schema.Field {
	if src.Items == nil || src.Items.Value == nil {
		return nil
	}
	return convertObject(src.Items.Value)
}

func stringFieldType(src *openapi3.Schema) schema.FieldType {
	if len(src.Enum) > 0 {
		return schema.TypeSelect
	}
	switch strings.ToLower(src.Format) {
	case "textarea":
		return schema.TypeTextarea
	case "html", "richtext":
		return schema.TypeRichText
	case "color":
		return schema.TypeColor
	default:
		return schema.TypeText
	}
}

func enumOptions(values []any) []schema.Option {
	if len(values) == 0 {
		return nil
	}
	options := make([]schema.Option, 0, len(values))
	for _, value := range values {
		text := fmt.Sprint(value)
		options = append(options, schema.Option{Value: text, Label: text})
	}
	return options
}

func schemaType(src *openapi3.Schema) string {
	if src.Type == nil {
		return ""
	}
	values := src.Type.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func titleOf(src *openapi3.Schema, fallback string) string {
	if src != nil && strings.TrimSpace(src.Title) != "" {
		return src.Title
	}
	return labelFromID(fallback)
}

func labelFromID(id string) string {
	parts := strings.FieldsFunc(id, func(r rune) bool {
		return r == '_' || r == '-'
	})
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

func blockName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-"))
}
