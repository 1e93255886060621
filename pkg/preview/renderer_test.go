package preview

import (
	"context"
	"strings"
	"testing"
)

func TestRenderHero(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	out, err := r.Render(context.Background(), "hero", map[string]any{
		"heading":       "Welcome",
		"heading_color": "#222222",
		"content":       "<p>Hi there</p>",
		"alignment":     "center",
		"show_cta":      true,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"hero-align-center",
		"<h1 style=\"color: #222222\">Welcome</h1>",
		"<p>Hi there</p>",
		"hero-cta",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmptyValuesShowsEmptyState(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	out, err := r.Render(context.Background(), "hero", map[string]any{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "preview-empty") {
		t.Fatalf("expected explicit empty state:\n%s", out)
	}
}

func TestRenderFAQRows(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	out, err := r.Render(context.Background(), "faq", map[string]any{
		"title": "FAQ",
		"items": []any{
			map[string]any{"_rowId": "row_a", "question": "Why?", "answer": "<p>Because</p>", "open_by_default": true},
			map[string]any{"_rowId": "row_b", "question": "How?", "answer": "<p>Like so</p>"},
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if !strings.Contains(out, "<dt>Why?</dt>") || !strings.Contains(out, "<dt>How?</dt>") {
		t.Fatalf("rows missing:\n%s", out)
	}
	if !strings.Contains(out, "faq-open") {
		t.Fatalf("open row flag missing:\n%s", out)
	}
}

func TestRenderUnknownBlockType(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := r.Render(context.Background(), "mystery", nil); err == nil {
		t.Fatal("expected error for unknown block type")
	}
}

func TestEmbedDepthCap(t *testing.T) {
	// A document embedding itself must stop at the depth cap instead of
	// recursing forever.
	source := func(ctx context.Context, id int64) (string, map[string]any, error) {
		return "embed", map[string]any{"document": float64(id)}, nil
	}
	r, err := New(WithEmbedSource(source))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	out, err := r.Render(context.Background(), "embed", map[string]any{"document": 5.0})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if !strings.Contains(out, "embed-depth-capped") {
		t.Fatalf("expected depth-cap placeholder:\n%s", out)
	}
	if got := strings.Count(out, "embedded-document"); got >= DefaultMaxDepth+1 {
		t.Fatalf("recursion exceeded cap: %d nested documents\n%s", got, out)
	}
}

func TestModeStore(t *testing.T) {
	s := NewModeStore()

	if got := s.Get("doc-1", 0); got != ModeEdit {
		t.Fatalf("default mode = %s", got)
	}

	if got := s.Toggle("doc-1", 0); got != ModePreview {
		t.Fatalf("toggle = %s", got)
	}
	if got := s.Get("doc-1", 0); got != ModePreview {
		t.Fatalf("mode after toggle = %s", got)
	}

	// Other documents and other positions are unaffected.
	if got := s.Get("doc-2", 0); got != ModeEdit {
		t.Fatalf("mode leaked across documents: %s", got)
	}
	if got := s.Get("doc-1", 1); got != ModeEdit {
		t.Fatalf("mode leaked across positions: %s", got)
	}

	if got := s.Toggle("doc-1", 0); got != ModeEdit {
		t.Fatalf("second toggle = %s", got)
	}
}
