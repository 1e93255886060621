// Package modal renders block forms in an overlay dialog, used when a block
// is edited away from its canvas position.
package modal

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

// Renderer is the modal surface: dialog chrome with explicit apply and
// cancel controls around the same field form.
type Renderer struct {
	widgets  *widgets.Registry
	resolver assets.Resolver
}

// New constructs the modal renderer.
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
	return "modal"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

func (r *Renderer) Render(ctx context.Context, form render.Form, options render.RenderOptions) ([]byte, error) {
	body, err := r.widgets.RenderFields(form.Fields, options, widgets.Data{
		Ctx:      ctx,
		Host:     render.ContextModal,
		Resolver: r.resolver,
	})
	if err != nil {
		return nil, fmt.Errorf("modal: render %q: %w", form.BlockType, err)
	}

	themeCtx := render.BuildThemeContext(options.Theme)

	var b strings.Builder
	b.Grow(len(body) + 512)
	if themeCtx.CSSVarsStyle != "" {
		b.WriteString(`<style>`)
		b.WriteString(themeCtx.CSSVarsStyle)
		b.WriteString(`</style>`)
	}
	b.WriteString(`<dialog class="block-modal`)
	if themeCtx.Name != "" {
		b.WriteString(` theme-`)
		b.WriteString(html.EscapeString(themeCtx.Name))
	}
	b.WriteString(`" data-block-type="`)
	b.WriteString(html.EscapeString(form.BlockType))
	b.WriteString(`" data-instance="`)
	b.WriteString(html.EscapeString(form.Instance))
	b.WriteString(`" open><header class="modal-head"><h2>`)
	b.WriteString(html.EscapeString(form.Title))
	b.WriteString(`</h2><button type="button" class="modal-close" aria-label="Close">&times;</button></header>`)
	b.WriteString(`<div class="modal-fields">`)
	b.WriteString(body)
	b.WriteString(`</div><footer class="modal-foot">`)
	b.WriteString(`<button type="button" class="modal-cancel">Cancel</button>`)
	b.WriteString(`<button type="button" class="modal-apply">Apply</button></footer></dialog>`)

	return []byte(b.String()), nil
}
