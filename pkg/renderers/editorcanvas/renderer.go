// Package editorcanvas renders block forms inline on the editor canvas, with
// the preview/edit toggle in the block toolbar.
package editorcanvas

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/webtero/blockkit/pkg/assets"
	"github.com/webtero/blockkit/pkg/render"
	"github.com/webtero/blockkit/pkg/render/widgets"
)

// Option configures the renderer.
type Option func(*Renderer)

// WithResolver wires the asset registry used by media and content fields.
func WithResolver(resolver assets.Resolver) Option {
	return func(r *Renderer) { r.resolver = resolver }
}

// WithWidgets overrides the widget registry.
func WithWidgets(registry *widgets.Registry) Option {
	return func(r *Renderer) {
		if registry != nil {
			r.widgets = registry
		}
	}
}

// Renderer is the editor-canvas surface: block chrome with a toolbar and the
// field form inline in the document flow.
type Renderer struct {
	widgets  *widgets.Registry
	resolver assets.Resolver
}

// New constructs the editor-canvas renderer.
func New(options ...Option) *Renderer {
	r := &Renderer{widgets: widgets.NewRegistry()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

func (r *Renderer) Name() string {
	return "editor-canvas"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

func (r *Renderer) Render(ctx context.Context, form render.Form, options render.RenderOptions) ([]byte, error) {
	body, err := r.widgets.RenderFields(form.Fields, options, widgets.Data{
		Ctx:      ctx,
		Host:     render.ContextEditor,
		Resolver: r.resolver,
	})
	if err != nil {
		return nil, fmt.Errorf("editorcanvas: render %q: %w", form.BlockType, err)
	}

	themeCtx := render.BuildThemeContext(options.Theme)

	var b strings.Builder
	b.Grow(len(body) + 512)
	if themeCtx.CSSVarsStyle != "" {
		b.WriteString(`<style>`)
		b.WriteString(themeCtx.CSSVarsStyle)
		b.WriteString(`</style>`)
	}
	b.WriteString(`<div class="block-canvas`)
	if themeCtx.Name != "" {
		b.WriteString(` theme-`)
		b.WriteString(html.EscapeString(themeCtx.Name))
	}
	b.WriteString(`" data-block-type="`)
	b.WriteString(html.EscapeString(form.BlockType))
	b.WriteString(`" data-instance="`)
	b.WriteString(html.EscapeString(form.Instance))
	b.WriteString(`"><div class="block-toolbar"><span class="block-title">`)
	b.WriteString(html.EscapeString(form.Title))
	b.WriteString(`</span><button type="button" class="block-mode-toggle" data-mode="edit">Preview</button>`)
	b.WriteString(`<span class="block-save-status" data-status="idle"></span></div>`)
	b.WriteString(`<div class="block-fields">`)
	b.WriteString(body)
	b.WriteString(`</div></div>`)

	return []byte(b.String()), nil
}
