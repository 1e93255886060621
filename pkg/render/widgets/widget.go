// Package widgets implements the per-type field controls shared by every
// host-context renderer. A widget writes only its control markup; field
// chrome (label, help, errors, width) is assembled around it.
package widgets

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"sync"

	"github.com/webtero/blockkit/pkg/assets"
	"github.com/webtero/blockkit/pkg/render"
	"github.com/webtero/blockkit/pkg/schema"
)

// Data carries the collaborators a widget may need while rendering.
type Data struct {
	// Ctx bounds asset lookups performed during rendering.
	Ctx context.Context
	// Host is the surface being rendered into; widgets only use it for
	// minor presentation switches, never for value semantics.
	Host render.Context
	// Resolver backs the asynchronous media/file/gallery/post_object types.
	// A nil resolver renders every reference as unresolved.
	Resolver assets.Resolver
	// RenderChild renders one sub-field of a repeater row.
	RenderChild func(field schema.Field, value any, errors []string) (string, error)
}

// Renderer writes one field's control markup for the given current value.
type Renderer func(w *bytes.Buffer, field schema.Field, value any, data Data) error

// Registry maps field types to widget renderers.
type Registry struct {
	mu      sync.RWMutex
	widgets map[schema.FieldType]Renderer
}

// NewRegistry constructs a registry with every built-in widget registered.
func NewRegistry() *Registry {
	r := &Registry{widgets: make(map[schema.FieldType]Renderer)}
	r.registerBuiltins()
	return r
}

// Register adds a widget for a field type. Duplicate registrations return an
// error; use Replace to override a built-in.
func (r *Registry) Register(t schema.FieldType, renderer Renderer) error {
	if renderer == nil {
		return fmt.Errorf("widgets: renderer is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.widgets[t]; exists {
		return fmt.Errorf("widgets: widget for %q already registered", t)
	}
	r.widgets[t] = renderer
	return nil
}

// Replace installs a widget for a field type, overriding any existing one.
func (r *Registry) Replace(t schema.FieldType, renderer Renderer) {
	if renderer == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.widgets[t] = renderer
}

// Render writes the control for field. A type with no registered widget
// renders an inline diagnostic naming the type; it never fails the form.
func (r *Registry) Render(w *bytes.Buffer, field schema.Field, value any, data Data) error {
	r.mu.RLock()
	renderer, ok := r.widgets[field.Type]
	r.mu.RUnlock()
	if !ok {
		renderDiagnostic(w, field)
		return nil
	}
	return renderer(w, field, effective(field, value), data)
}

func (r *Registry) registerBuiltins() {
	r.widgets[schema.TypeText] = renderText
	r.widgets[schema.TypeTextarea] = renderTextarea
	r.widgets[schema.TypeNumber] = renderNumber
	r.widgets[schema.TypeRange] = renderRange
	r.widgets[schema.TypeColor] = renderColor
	r.widgets[schema.TypeRadio] = renderRadio
	r.widgets[schema.TypeCheckbox] = renderCheckbox
	r.widgets[schema.TypeToggle] = renderToggle
	r.widgets[schema.TypeButtonGroup] = renderButtonGroup
	r.widgets[schema.TypeSelect] = renderSelect
	r.widgets[schema.TypeEnhancedSelect] = renderEnhancedSelect
	r.widgets[schema.TypeMedia] = renderMedia
	r.widgets[schema.TypeFile] = renderFile
	r.widgets[schema.TypeGallery] = renderGallery
	r.widgets[schema.TypePostObject] = renderPostObject
	r.widgets[schema.TypeRichText] = renderRichText
	r.widgets[schema.TypeRepeater] = renderRepeater
}

func renderDiagnostic(w *bytes.Buffer, field schema.Field) {
	w.WriteString(`<div class="field-diagnostic" role="alert">Unsupported field type &quot;`)
	w.WriteString(html.EscapeString(string(field.Type)))
	w.WriteString(`&quot; for field &quot;`)
	w.WriteString(html.EscapeString(field.ID))
	w.WriteString(`&quot;</div>`)
}

// effective applies the missing-value fallback chain: explicit value, then
// schema default, then the type-appropriate empty value.
func effective(field schema.Field, value any) any {
	if value == nil {
		return field.DefaultValue()
	}
	return value
}
