package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/webtero/blockkit/pkg/richtext"
	"github.com/webtero/blockkit/pkg/schema"
)

// Option configures an Editor.
type Option func(*Editor)

// WithDriver swaps the prompt driver, primarily for tests.
func WithDriver(driver PromptDriver) Option {
	return func(e *Editor) {
		if driver != nil {
			e.driver = driver
		}
	}
}

// Editor walks a field list prompting for each value. The result is the same
// nested value map the settings-page form would submit.
type Editor struct {
	driver PromptDriver
}

// NewEditor constructs an editor backed by the survey driver.
func NewEditor(options ...Option) *Editor {
	e := &Editor{driver: newSurveyDriver()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// Edit prompts for every field, seeding prompts with current values (or
// schema defaults) and returning the full updated value map.
func (e *Editor) Edit(ctx context.Context, fields []schema.Field, current map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		var value any
		if current != nil {
			value = current[field.ID]
		}
		if value == nil {
			value = field.DefaultValue()
		}
		edited, err := e.editField(ctx, field, value)
		if err != nil {
			return nil, err
		}
		out[field.ID] = edited
	}
	return out, nil
}

func (e *Editor) editField(ctx context.Context, field schema.Field, value any) (any, error) {
	message := field.Label
	if message == "" {
		message = field.ID
	}
	help := field.Help
	if help == "" {
		help = field.Description
	}

	switch field.Type {
	case schema.TypeText, schema.TypeColor:
		return e.driver.Input(ctx, InputConfig{Message: message, Default: toString(value), Help: help})

	case schema.TypeTextarea:
		return e.driver.TextArea(ctx, TextAreaConfig{Message: message, Default: toString(value), Help: help})

	case schema.TypeRichText:
		// Terminal editing works on stripped text; markup survives only when
		// the user leaves the value untouched.
		raw := toString(value)
		edited, err := e.driver.TextArea(ctx, TextAreaConfig{Message: message, Default: richtext.Strip(raw), Help: help})
		if err != nil {
			return nil, err
		}
		if edited == richtext.Strip(raw) {
			return raw, nil
		}
		return richtext.Sanitize(edited), nil

	case schema.TypeNumber, schema.TypeRange:
		return e.editNumber(ctx, field, message, help, value)

	case schema.TypeCheckbox, schema.TypeToggle:
		return e.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: toBool(value), Help: help})

	case schema.TypeRadio, schema.TypeSelect, schema.TypeButtonGroup, schema.TypeEnhancedSelect:
		return e.editChoice(ctx, field, message, help, value)

	case schema.TypeMedia, schema.TypeFile, schema.TypePostObject:
		return e.editAssetID(ctx, message, help, value)

	case schema.TypeGallery:
		return e.editIDList(ctx, message, help, value)

	case schema.TypeRepeater:
		return e.editRepeater(ctx, field, message, value)

	default:
		if err := e.driver.Info(ctx, fmt.Sprintf("skipping %s: unsupported field type %q", field.ID, field.Type)); err != nil {
			return nil, err
		}
		return value, nil
	}
}

func (e *Editor) editNumber(ctx context.Context, field schema.Field, message, help string, value any) (any, error) {
	answer, err := e.driver.Input(ctx, InputConfig{
		Message: message,
		Default: toString(value),
		Help:    help,
		Validator: func(s string) error {
			if s == "" {
				return nil
			}
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("not a number: %q", s)
			}
			if field.Min != nil && n < *field.Min {
				return fmt.Errorf("minimum is %v", *field.Min)
			}
			if field.Max != nil && n > *field.Max {
				return fmt.Errorf("maximum is %v", *field.Max)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	if answer == "" {
		return float64(0), nil
	}
	n, err := strconv.ParseFloat(answer, 64)
	if err != nil {
		return nil, fmt.Errorf("tui: parse number for %q: %w", field.ID, err)
	}
	return n, nil
}

func (e *Editor) editChoice(ctx context.Context, field schema.Field, message, help string, value any) (any, error) {
	labels := make([]string, len(field.Options))
	for i, opt := range field.Options {
		labels[i] = opt.Label
	}

	if field.Multiple {
		var defaults []int
		if list, ok := value.([]any); ok {
			for _, item := range list {
				for i, opt := range field.Options {
					if opt.Value == toString(item) {
						defaults = append(defaults, i)
					}
				}
			}
		}
		indices, err := e.driver.MultiSelect(ctx, SelectConfig{Message: message, Options: labels, Defaults: defaults, Help: help})
		if err != nil {
			return nil, err
		}
		out := make([]any, len(indices))
		for i, idx := range indices {
			out[i] = field.Options[idx].Value
		}
		return out, nil
	}

	defaultIndex := 0
	for i, opt := range field.Options {
		if opt.Value == toString(value) {
			defaultIndex = i
		}
	}
	idx, err := e.driver.Select(ctx, SelectConfig{Message: message, Options: labels, DefaultIndex: defaultIndex, Help: help})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(field.Options) {
		return nil, fmt.Errorf("tui: choice index %d out of range for %q", idx, field.ID)
	}
	return field.Options[idx].Value, nil
}

func (e *Editor) editAssetID(ctx context.Context, message, help string, value any) (any, error) {
	answer, err := e.driver.Input(ctx, InputConfig{
		Message:   message + " (asset id)",
		Default:   toString(value),
		Help:      help,
		Validator: validateID,
	})
	if err != nil {
		return nil, err
	}
	if answer == "" {
		return "", nil
	}
	n, err := strconv.ParseFloat(answer, 64)
	if err != nil {
		return nil, fmt.Errorf("tui: parse asset id: %w", err)
	}
	return n, nil
}

func (e *Editor) editIDList(ctx context.Context, message, help string, value any) (any, error) {
	var parts []string
	if list, ok := value.([]any); ok {
		for _, item := range list {
			parts = append(parts, toString(item))
		}
	}
	answer, err := e.driver.Input(ctx, InputConfig{
		Message: message + " (comma-separated asset ids)",
		Default: strings.Join(parts, ","),
		Help:    help,
		Validator: func(s string) error {
			for _, part := range strings.Split(s, ",") {
				if err := validateID(strings.TrimSpace(part)); err != nil {
					return err
				}
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	out := []any{}
	for _, part := range strings.Split(answer, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("tui: parse asset id %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (e *Editor) editRepeater(ctx context.Context, field schema.Field, message string, value any) (any, error) {
	rows, _ := value.([]any)
	out := make([]any, 0, len(rows))
	min, max, bounded := field.RowBounds()

	for i, item := range rows {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		keep := true
		if len(out)+len(rows)-i > min {
			var err error
			keep, err = e.driver.Confirm(ctx, ConfirmConfig{
				Message: fmt.Sprintf("%s: keep row %d?", message, i+1),
				Default: true,
			})
			if err != nil {
				return nil, err
			}
		}
		if !keep {
			continue
		}
		edited, err := e.editRow(ctx, field, row)
		if err != nil {
			return nil, err
		}
		out = append(out, edited)
	}

	for !bounded || len(out) < max {
		if len(out) >= min {
			add, err := e.driver.Confirm(ctx, ConfirmConfig{
				Message: fmt.Sprintf("%s: add a row?", message),
				Default: false,
			})
			if err != nil {
				return nil, err
			}
			if !add {
				break
			}
		}
		row := make(map[string]any, len(field.Fields))
		for _, sub := range field.Fields {
			row[sub.ID] = sub.DefaultValue()
		}
		edited, err := e.editRow(ctx, field, row)
		if err != nil {
			return nil, err
		}
		out = append(out, edited)
	}
	return out, nil
}

func (e *Editor) editRow(ctx context.Context, field schema.Field, row map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	for _, sub := range field.Fields {
		edited, err := e.editField(ctx, sub, out[sub.ID])
		if err != nil {
			return nil, err
		}
		out[sub.ID] = edited
	}
	return out, nil
}

func validateID(s string) error {
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return fmt.Errorf("not a numeric id: %q", s)
	}
	return nil
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
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

func toBool(value any) bool {
	b, _ := value.(bool)
	return b
}
