package schema

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	block := BlockType{
		Name:   "hero",
		Title:  "Hero",
		Fields: []Field{{ID: "heading", Type: TypeText}},
	}
	if err := registry.Register(block); err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := registry.Get("hero")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(block, got); diff != "" {
		t.Fatalf("block mismatch (-want +got):\n%s", diff)
	}

	if err := registry.Register(block); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if _, err := registry.Get("missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRegistryListSorted(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		registry.MustRegister(BlockType{Name: name, Fields: []Field{{ID: "x", Type: TypeText}}})
	}

	want := []string{"alpha", "mid", "zeta"}
	if diff := cmp.Diff(want, registry.List()); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryReplace(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(BlockType{Name: "hero", Fields: []Field{{ID: "a", Type: TypeText}}})

	updated := BlockType{Name: "hero", Fields: []Field{{ID: "b", Type: TypeText}}}
	if err := registry.Replace(updated); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := registry.Get("hero")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Fields[0].ID != "b" {
		t.Fatalf("expected replaced fields, got %q", got.Fields[0].ID)
	}
}
