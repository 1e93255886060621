// Package render defines the host-context renderer contract and the registry
// the server resolves renderers from.
package render

import (
	"context"

	theme "github.com/goliatone/go-theme"

	"github.com/webtero/blockkit/pkg/schema"
)

// Context names the host surface a form renders into. It affects chrome and
// layout only; every context binds controls to the same per-field change
// contract.
type Context string

const (
	ContextEditor   Context = "editor-canvas"
	ContextModal    Context = "modal"
	ContextSettings Context = "settings-page"
)

// Form is the renderable unit: one block type's ordered field list plus the
// instance identity the controls post back to.
type Form struct {
	BlockType string
	Title     string
	Instance  string
	Fields    []schema.Field
}

// RenderOptions carry per-request data into a renderer without touching the
// form itself.
type RenderOptions struct {
	// Values holds the instance's current values keyed by field id. Fields
	// absent here render their schema default.
	Values map[string]any
	// Errors surfaces validation feedback keyed by field id, rendered as
	// inline messages next to the owning control.
	Errors map[string][]string
	// Theme selects partials, tokens, and CSS variables for the chrome.
	Theme *theme.RendererConfig
}

// Renderer converts a Form into a byte representation for one host context.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, form Form, options RenderOptions) ([]byte, error)
}
