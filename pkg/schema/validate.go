package schema

import (
	"fmt"
)

// ValidateFields checks a field list for structural problems: duplicate ids
// within one scope, unknown widths, defaults whose shape does not match the
// declared type, and repeater nesting issues. The scope argument names the
// enclosing context for error messages ("block hero", "repeater items", ...).
func ValidateFields(scope string, fields []Field) error {
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if field.ID == "" {
			return fmt.Errorf("schema: %s: field with empty id", scope)
		}
		if _, dup := seen[field.ID]; dup {
			return fmt.Errorf("schema: %s: duplicate field id %q", scope, field.ID)
		}
		seen[field.ID] = struct{}{}

		if field.Type == "" {
			return fmt.Errorf("schema: %s: field %q has no type", scope, field.ID)
		}
		if field.Width != 0 && !ValidWidth(field.Width) {
			return fmt.Errorf("schema: %s: field %q width %d not in %v", scope, field.ID, field.Width, AllowedWidths)
		}
		if err := validateDefault(scope, field); err != nil {
			return err
		}

		if field.Type == TypeRepeater {
			if len(field.Fields) == 0 {
				return fmt.Errorf("schema: %s: repeater %q declares no sub-fields", scope, field.ID)
			}
			subScope := fmt.Sprintf("%s: repeater %q", scope, field.ID)
			if err := ValidateFields(subScope, field.Fields); err != nil {
				return err
			}
		} else if len(field.Fields) > 0 {
			return fmt.Errorf("schema: %s: field %q is %s but declares sub-fields", scope, field.ID, field.Type)
		}
	}
	return nil
}

func validateDefault(scope string, field Field) error {
	if field.Default == nil {
		return nil
	}

	mismatch := func(want string) error {
		return fmt.Errorf("schema: %s: field %q default is %T, want %s", scope, field.ID, field.Default, want)
	}

	switch field.Type {
	case TypeNumber, TypeRange:
		if !isNumeric(field.Default) {
			return mismatch("number")
		}
	case TypeCheckbox, TypeToggle:
		if _, ok := field.Default.(bool); !ok {
			return mismatch("bool")
		}
	case TypeGallery:
		if !isList(field.Default) {
			return mismatch("list of ids")
		}
	case TypeRepeater:
		if !isRowList(field.Default) {
			return mismatch("list of row maps")
		}
	case TypeButtonGroup, TypeEnhancedSelect:
		if field.Multiple {
			if !isList(field.Default) {
				return mismatch("list of values")
			}
			return nil
		}
		if _, ok := field.Default.(string); !ok {
			return mismatch("string")
		}
	case TypeMedia, TypeFile, TypePostObject:
		if !isNumeric(field.Default) {
			if _, ok := field.Default.(string); !ok {
				return mismatch("asset id")
			}
		}
	default:
		if _, ok := field.Default.(string); !ok {
			return mismatch("string")
		}
	}
	return nil
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}

func isList(v any) bool {
	switch v.(type) {
	case []any, []string, []int, []float64:
		return true
	}
	return false
}

func isRowList(v any) bool {
	rows, ok := v.([]any)
	if !ok {
		if _, ok := v.([]map[string]any); ok {
			return true
		}
		return false
	}
	for _, row := range rows {
		if _, ok := row.(map[string]any); !ok {
			return false
		}
	}
	return true
}
