package schema

// FieldType enumerates the input kinds the rendering pipeline understands.
type FieldType string

const (
	TypeText           FieldType = "text"
	TypeTextarea       FieldType = "textarea"
	TypeNumber         FieldType = "number"
	TypeRange          FieldType = "range"
	TypeRadio          FieldType = "radio"
	TypeCheckbox       FieldType = "checkbox"
	TypeToggle         FieldType = "toggle"
	TypeButtonGroup    FieldType = "button_group"
	TypeColor          FieldType = "color"
	TypeSelect         FieldType = "select"
	TypeEnhancedSelect FieldType = "enhanced_select"
	TypeMedia          FieldType = "media"
	TypeFile           FieldType = "file"
	TypeGallery        FieldType = "gallery"
	TypePostObject     FieldType = "post_object"
	TypeRichText       FieldType = "rich_text"
	TypeRepeater       FieldType = "repeater"
)

// Known reports whether t names a built-in field type.
func (t FieldType) Known() bool {
	switch t {
	case TypeText, TypeTextarea, TypeNumber, TypeRange, TypeRadio, TypeCheckbox,
		TypeToggle, TypeButtonGroup, TypeColor, TypeSelect, TypeEnhancedSelect,
		TypeMedia, TypeFile, TypeGallery, TypePostObject, TypeRichText, TypeRepeater:
		return true
	}
	return false
}

// Option is one entry of a choice field. Options are kept as an ordered slice
// rather than a map so insertion order is also display order.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
	Icon  string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Widths a field or repeater row may occupy within its layout row, as a
// percentage share.
var AllowedWidths = []int{25, 33, 50, 66, 100}

// ValidWidth reports whether w is a member of AllowedWidths.
func ValidWidth(w int) bool {
	for _, allowed := range AllowedWidths {
		if w == allowed {
			return true
		}
	}
	return false
}

// Field is the declarative description of a single input. Fields are authored
// server-side (YAML definitions or code) and are immutable once registered.
type Field struct {
	ID          string    `json:"id" yaml:"id"`
	Type        FieldType `json:"type" yaml:"type"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Help        string    `json:"help,omitempty" yaml:"help,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`

	// Numeric constraints (number, range) and row bounds (repeater).
	Min  *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max  *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Step *float64 `json:"step,omitempty" yaml:"step,omitempty"`

	// Choice configuration (radio, select, enhanced_select, button_group).
	Options    []Option `json:"options,omitempty" yaml:"options,omitempty"`
	Multiple   bool     `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	Searchable bool     `json:"searchable,omitempty" yaml:"searchable,omitempty"`

	// Asset filters: MIME prefixes for file fields, content kinds for
	// post_object fields.
	AllowedTypes []string `json:"allowed_types,omitempty" yaml:"allowed_types,omitempty"`
	Kinds        []string `json:"kinds,omitempty" yaml:"kinds,omitempty"`

	// Layout share within the field row; zero means full width.
	Width int `json:"width,omitempty" yaml:"width,omitempty"`
	Rows  int `json:"rows,omitempty" yaml:"rows,omitempty"`

	CheckboxLabel string `json:"checkbox_label,omitempty" yaml:"checkbox_label,omitempty"`
	LabelOn       string `json:"label_on,omitempty" yaml:"label_on,omitempty"`
	LabelOff      string `json:"label_off,omitempty" yaml:"label_off,omitempty"`

	// Sub-field schemas, present only on repeater fields.
	Fields []Field `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// ZeroValue returns the type-appropriate empty value used when neither a
// stored value nor a default is available.
func (f Field) ZeroValue() any {
	switch f.Type {
	case TypeNumber, TypeRange:
		return float64(0)
	case TypeCheckbox, TypeToggle:
		return false
	case TypeGallery, TypeRepeater:
		return []any{}
	case TypeButtonGroup, TypeEnhancedSelect:
		if f.Multiple {
			return []any{}
		}
		return ""
	default:
		return ""
	}
}

// DefaultValue returns the declared default, falling back to ZeroValue.
func (f Field) DefaultValue() any {
	if f.Default != nil {
		return f.Default
	}
	return f.ZeroValue()
}

// EffectiveWidth normalises the declared width to a member of AllowedWidths,
// treating zero and out-of-set values as full width.
func (f Field) EffectiveWidth() int {
	if ValidWidth(f.Width) {
		return f.Width
	}
	return 100
}

// OptionLabel resolves the display label for an option value, returning the
// raw value when no option matches.
func (f Field) OptionLabel(value string) string {
	for _, opt := range f.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

// RowBounds returns the repeater's min/max row counts. Max of zero in the
// schema means unbounded and is reported as (bounded=false).
func (f Field) RowBounds() (min, max int, bounded bool) {
	if f.Min != nil && *f.Min > 0 {
		min = int(*f.Min)
	}
	if f.Max != nil && *f.Max > 0 {
		return min, int(*f.Max), true
	}
	return min, 0, false
}

// SubField looks up a repeater sub-field by id.
func (f Field) SubField(id string) (Field, bool) {
	for _, sub := range f.Fields {
		if sub.ID == id {
			return sub, true
		}
	}
	return Field{}, false
}
