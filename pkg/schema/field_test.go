package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFieldDefaultValue(t *testing.T) {
	cases := []struct {
		name  string
		field Field
		want  any
	}{
		{"declared default wins", Field{Type: TypeText, Default: "hi"}, "hi"},
		{"text zero", Field{Type: TypeText}, ""},
		{"number zero", Field{Type: TypeNumber}, float64(0)},
		{"toggle zero", Field{Type: TypeToggle}, false},
		{"gallery zero", Field{Type: TypeGallery}, []any{}},
		{"repeater zero", Field{Type: TypeRepeater}, []any{}},
		{"multi button group zero", Field{Type: TypeButtonGroup, Multiple: true}, []any{}},
		{"single button group zero", Field{Type: TypeButtonGroup}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.field.DefaultValue()
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("default mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFieldEffectiveWidth(t *testing.T) {
	if got := (Field{Width: 33}).EffectiveWidth(); got != 33 {
		t.Fatalf("expected 33, got %d", got)
	}
	if got := (Field{}).EffectiveWidth(); got != 100 {
		t.Fatalf("expected zero width to normalise to 100, got %d", got)
	}
	if got := (Field{Width: 40}).EffectiveWidth(); got != 100 {
		t.Fatalf("expected out-of-set width to normalise to 100, got %d", got)
	}
}

func TestFieldRowBounds(t *testing.T) {
	min, max := 1.0, 3.0

	field := Field{Type: TypeRepeater, Min: &min, Max: &max}
	gotMin, gotMax, bounded := field.RowBounds()
	if gotMin != 1 || gotMax != 3 || !bounded {
		t.Fatalf("unexpected bounds: min=%d max=%d bounded=%v", gotMin, gotMax, bounded)
	}

	open := Field{Type: TypeRepeater, Min: &min}
	gotMin, _, bounded = open.RowBounds()
	if gotMin != 1 || bounded {
		t.Fatalf("expected unbounded max, got min=%d bounded=%v", gotMin, bounded)
	}
}

func TestFieldOptionLabel(t *testing.T) {
	field := Field{
		Type: TypeSelect,
		Options: []Option{
			{Value: "a", Label: "Alpha"},
			{Value: "b", Label: "Beta"},
		},
	}
	if got := field.OptionLabel("b"); got != "Beta" {
		t.Fatalf("expected Beta, got %q", got)
	}
	if got := field.OptionLabel("missing"); got != "missing" {
		t.Fatalf("expected raw value fallback, got %q", got)
	}
}

func TestFieldTypeKnown(t *testing.T) {
	if !TypeEnhancedSelect.Known() {
		t.Fatal("enhanced_select should be known")
	}
	if FieldType("hologram").Known() {
		t.Fatal("hologram should not be known")
	}
}
