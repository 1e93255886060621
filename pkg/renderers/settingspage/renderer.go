// Package settingspage renders full-page settings forms that submit to the
// versioned settings endpoints.
package settingspage

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

// Renderer is the settings-page surface: a standalone form posting the whole
// nested value map, with an explicit save action instead of autosave.
type Renderer struct {
	widgets  *widgets.Registry
	resolver assets.Resolver
}

// New constructs the settings-page renderer.
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
	return "settings-page"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

func (r *Renderer) Render(ctx context.Context, form render.Form, options render.RenderOptions) ([]byte, error) {
	body, err := r.widgets.RenderFields(form.Fields, options, widgets.Data{
		Ctx:      ctx,
		Host:     render.ContextSettings,
		Resolver: r.resolver,
	})
	if err != nil {
		return nil, fmt.Errorf("settingspage: render %q: %w", form.BlockType, err)
	}

	themeCtx := render.BuildThemeContext(options.Theme)

	var b strings.Builder
	b.Grow(len(body) + 512)
	if themeCtx.CSSVarsStyle != "" {
		b.WriteString(`<style>`)
		b.WriteString(themeCtx.CSSVarsStyle)
		b.WriteString(`</style>`)
	}
	b.WriteString(`<form class="settings-page`)
	if themeCtx.Name != "" {
		b.WriteString(` theme-`)
		b.WriteString(html.EscapeString(themeCtx.Name))
	}
	b.WriteString(`" method="post" action="/admin/settings/`)
	b.WriteString(html.EscapeString(form.Instance))
	b.WriteString(`"><h1>`)
	b.WriteString(html.EscapeString(form.Title))
	b.WriteString(`</h1><div class="settings-fields">`)
	b.WriteString(body)
	b.WriteString(`</div><footer class="settings-foot">`)
	b.WriteString(`<button type="submit" class="settings-save">Save settings</button></footer></form>`)

	return []byte(b.String()), nil
}
