package widgets

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/webtero/blockkit/pkg/assets"
	"github.com/webtero/blockkit/pkg/schema"
)

type stubResolver struct {
	known map[int64]assets.Asset
}

func (r *stubResolver) Resolve(_ context.Context, id int64) (assets.Asset, error) {
	if a, ok := r.known[id]; ok {
		return a, nil
	}
	return assets.Asset{}, assets.ErrNotFound
}

func (r *stubResolver) Search(context.Context, assets.Query) ([]assets.Asset, error) {
	return nil, nil
}

func renderOne(t *testing.T, field schema.Field, value any, data Data) string {
	t.Helper()
	reg := NewRegistry()
	if data.RenderChild == nil {
		data.RenderChild = func(sub schema.Field, v any, errs []string) (string, error) {
			var buf bytes.Buffer
			if err := reg.Render(&buf, sub, v, data); err != nil {
				return "", err
			}
			return FieldMarkup(sub, buf.String(), errs), nil
		}
	}
	var buf bytes.Buffer
	if err := reg.Render(&buf, field, value, data); err != nil {
		t.Fatalf("render %s: %v", field.Type, err)
	}
	return buf.String()
}

func TestMissingValueRendersDefault(t *testing.T) {
	cases := []struct {
		name  string
		field schema.Field
		want  string
	}{
		{"text default", schema.Field{ID: "heading", Type: schema.TypeText, Default: "Untitled"}, `value="Untitled"`},
		{"text empty", schema.Field{ID: "heading", Type: schema.TypeText}, `value=""`},
		{"number default", schema.Field{ID: "count", Type: schema.TypeNumber, Default: 4.0}, `value="4"`},
		{"toggle default on", schema.Field{ID: "on", Type: schema.TypeToggle, Default: true}, `checked`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := renderOne(t, tc.field, nil, Data{})
			if !strings.Contains(got, tc.want) {
				t.Fatalf("markup missing %q:\n%s", tc.want, got)
			}
		})
	}
}

func TestUnknownTypeRendersDiagnostic(t *testing.T) {
	got := renderOne(t, schema.Field{ID: "odd", Type: schema.FieldType("holograph")}, nil, Data{})
	if !strings.Contains(got, "field-diagnostic") || !strings.Contains(got, "holograph") {
		t.Fatalf("expected diagnostic naming the type:\n%s", got)
	}
}

func TestSelectOptionsKeepInsertionOrder(t *testing.T) {
	field := schema.Field{
		ID:   "tone",
		Type: schema.TypeSelect,
		Options: []schema.Option{
			{Value: "z", Label: "Zulu"},
			{Value: "a", Label: "Alpha"},
			{Value: "m", Label: "Mike"},
		},
	}
	got := renderOne(t, field, "a", Data{})

	zi := strings.Index(got, "Zulu")
	ai := strings.Index(got, "Alpha")
	mi := strings.Index(got, "Mike")
	if zi < 0 || ai < 0 || mi < 0 || !(zi < ai && ai < mi) {
		t.Fatalf("options out of insertion order:\n%s", got)
	}
	if !strings.Contains(got, `value="a" selected`) {
		t.Fatalf("current value not selected:\n%s", got)
	}
}

func TestEnhancedSelectMultipleKeepsSelectionOrder(t *testing.T) {
	field := schema.Field{
		ID:         "tags",
		Type:       schema.TypeEnhancedSelect,
		Multiple:   true,
		Searchable: true,
		Options: []schema.Option{
			{Value: "a", Label: "Alpha"},
			{Value: "b", Label: "Bravo"},
			{Value: "c", Label: "Charlie"},
		},
	}
	got := renderOne(t, field, []any{"c", "a"}, Data{})

	if !strings.Contains(got, `data-searchable="true"`) {
		t.Fatalf("searchable flag missing:\n%s", got)
	}
	order := got[strings.Index(got, "field-selected-order"):]
	ci := strings.Index(order, `data-value="c"`)
	ai := strings.Index(order, `data-value="a"`)
	if ci < 0 || ai < 0 || ci > ai {
		t.Fatalf("selection order not preserved:\n%s", order)
	}
}

func TestMediaResolvedAndUnresolved(t *testing.T) {
	data := Data{Resolver: &stubResolver{known: map[int64]assets.Asset{
		7: {ID: 7, Title: "Sunset", URL: "/media/sunset.jpg"},
	}}}
	field := schema.Field{ID: "image", Type: schema.TypeMedia}

	resolved := renderOne(t, field, 7.0, data)
	if !strings.Contains(resolved, `src="/media/sunset.jpg"`) {
		t.Fatalf("resolved media missing preview:\n%s", resolved)
	}

	unresolved := renderOne(t, field, 99.0, data)
	if !strings.Contains(unresolved, "asset-unresolved") || !strings.Contains(unresolved, "#99") {
		t.Fatalf("unresolved media must show the raw id:\n%s", unresolved)
	}
}

func TestGalleryItemsKeyedByAssetID(t *testing.T) {
	data := Data{Resolver: &stubResolver{known: map[int64]assets.Asset{
		1: {ID: 1, URL: "/a.jpg"},
		2: {ID: 2, URL: "/b.jpg"},
	}}}
	field := schema.Field{ID: "shots", Type: schema.TypeGallery}

	got := renderOne(t, field, []any{2.0, 1.0}, data)
	first := strings.Index(got, `data-asset-id="2"`)
	second := strings.Index(got, `data-asset-id="1"`)
	if first < 0 || second < 0 || first > second {
		t.Fatalf("gallery items must track ids in list order:\n%s", got)
	}
}

func TestRichTextSanitizesValue(t *testing.T) {
	field := schema.Field{ID: "body", Type: schema.TypeRichText}
	got := renderOne(t, field, `<p>ok</p><script>alert(1)</script>`, Data{})
	if strings.Contains(got, "<script>") {
		t.Fatalf("script must be sanitized:\n%s", got)
	}
	if !strings.Contains(got, "<p>ok</p>") {
		t.Fatalf("formatting must survive:\n%s", got)
	}
}

func TestRepeaterRendersRowsAndBounds(t *testing.T) {
	max := 2.0
	field := schema.Field{
		ID:   "faqs",
		Type: schema.TypeRepeater,
		Max:  &max,
		Fields: []schema.Field{
			{ID: "question", Type: schema.TypeText},
		},
	}
	value := []any{
		map[string]any{"_rowId": "row_a", "question": "Why?", "_width": 50.0},
		map[string]any{"_rowId": "row_b", "question": "How?"},
	}

	got := renderOne(t, field, value, Data{})
	if !strings.Contains(got, `data-row-id="row_a"`) || !strings.Contains(got, `data-row-id="row_b"`) {
		t.Fatalf("row ids missing:\n%s", got)
	}
	if !strings.Contains(got, "repeater-row-width-50") {
		t.Fatalf("row width class missing:\n%s", got)
	}
	if !strings.Contains(got, `value="Why?"`) {
		t.Fatalf("sub-field values missing:\n%s", got)
	}
	if !strings.Contains(got, ">2/2<") {
		t.Fatalf("count label missing:\n%s", got)
	}
	if !strings.Contains(got, `class="repeater-add" disabled`) {
		t.Fatalf("add control must be disabled at max:\n%s", got)
	}
}

func TestFieldMarkupChrome(t *testing.T) {
	field := schema.Field{
		ID:          "heading",
		Type:        schema.TypeText,
		Label:       "Heading",
		Description: "Shown above the fold",
		Help:        "Use **plain** language",
		Width:       50,
	}
	got := FieldMarkup(field, `<input>`, []string{"required"})

	for _, want := range []string{
		"field-width-50",
		`<label class="field-label" for="heading">Heading</label>`,
		"Shown above the fold",
		`<p class="field-error" role="alert">required</p>`,
		"<strong>plain</strong>",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("chrome missing %q:\n%s", want, got)
		}
	}
}
