package modal

import (
	"context"
	"strings"
	"testing"

	"github.com/webtero/blockkit/pkg/render"
	"github.com/webtero/blockkit/pkg/schema"
)

func TestRenderModalChrome(t *testing.T) {
	r := New()
	form := render.Form{
		BlockType: "faq",
		Title:     "FAQ",
		Instance:  "doc-1:2",
		Fields: []schema.Field{
			{ID: "title", Type: schema.TypeText, Label: "Title"},
		},
	}

	out, err := r.Render(context.Background(), form, render.RenderOptions{
		Errors: map[string][]string{"title": {"title is required"}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got := string(out)

	for _, want := range []string{
		`<dialog class="block-modal"`,
		`data-block-type="faq"`,
		`class="modal-apply"`,
		`class="modal-cancel"`,
		`class="field-error" role="alert">title is required`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("markup missing %q:\n%s", want, got)
		}
	}
}

func TestName(t *testing.T) {
	if New().Name() != "modal" {
		t.Fatalf("name = %q", New().Name())
	}
}
