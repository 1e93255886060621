// Package preview renders a block instance's value map through its display
// template, backing the preview side of the edit/preview toggle.
package preview

import (
	"context"
	"fmt"
	"html"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// DefaultMaxDepth caps recursive embed rendering.
const DefaultMaxDepth = 3

// EmbedSource resolves an embedded content id to its block type and values,
// used by templates that nest other documents.
type EmbedSource func(ctx context.Context, id int64) (blockType string, values map[string]any, err error)

// Option configures a Renderer.
type Option func(*config)

type config struct {
	templatesFS fs.FS
	maxDepth    int
	embedSource EmbedSource
}

// WithTemplatesFS supplies the display template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) { cfg.templatesFS = files }
}

// WithTemplatesDir loads display templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path != "" {
			cfg.templatesFS = os.DirFS(path)
		}
	}
}

// WithMaxDepth overrides the embed recursion cap.
func WithMaxDepth(depth int) Option {
	return func(cfg *config) {
		if depth > 0 {
			cfg.maxDepth = depth
		}
	}
}

// WithEmbedSource wires the resolver for embedded content ids.
func WithEmbedSource(source EmbedSource) Option {
	return func(cfg *config) { cfg.embedSource = source }
}

// Renderer executes one display template per block type. Templates are
// looked up as "<block-type>.html" in the configured bundle.
type Renderer struct {
	mu          sync.Mutex
	set         *pongo2.TemplateSet
	cache       map[string]*pongo2.Template
	maxDepth    int
	embedSource EmbedSource
}

// New constructs a preview renderer from the given options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templatesFS: TemplatesFS(), maxDepth: DefaultMaxDepth}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.templatesFS == nil {
		return nil, fmt.Errorf("preview: template bundle is required")
	}

	return &Renderer{
		set:         pongo2.NewSet("preview", pongo2.NewFSLoader(cfg.templatesFS)),
		cache:       make(map[string]*pongo2.Template),
		maxDepth:    cfg.maxDepth,
		embedSource: cfg.embedSource,
	}, nil
}

// Render runs values through the block's display template. Whitespace-only
// output yields the explicit empty state instead of a blank panel.
func (r *Renderer) Render(ctx context.Context, blockType string, values map[string]any) (string, error) {
	return r.renderDepth(ctx, blockType, values, 0)
}

func (r *Renderer) renderDepth(ctx context.Context, blockType string, values map[string]any, depth int) (string, error) {
	tmpl, err := r.template(blockType)
	if err != nil {
		return "", err
	}

	tctx := make(pongo2.Context, len(values)+1)
	for key, value := range values {
		tctx[key] = value
	}
	tctx["embed"] = r.embedFunc(ctx, depth)

	out, err := tmpl.Execute(tctx)
	if err != nil {
		return "", fmt.Errorf("preview: render %q: %w", blockType, err)
	}
	if strings.TrimSpace(out) == "" {
		return EmptyState(blockType), nil
	}
	return out, nil
}

// embedFunc renders another document inline. Depth past the cap renders a
// placeholder; resolution or render failures surface inline rather than
// failing the outer preview.
func (r *Renderer) embedFunc(ctx context.Context, depth int) func(id *pongo2.Value) *pongo2.Value {
	return func(id *pongo2.Value) *pongo2.Value {
		if depth+1 >= r.maxDepth {
			return pongo2.AsSafeValue(`<div class="embed-depth-capped">Embedded content not expanded</div>`)
		}
		if r.embedSource == nil {
			return pongo2.AsSafeValue(embedError("no embed source configured"))
		}
		blockType, values, err := r.embedSource(ctx, int64(id.Integer()))
		if err != nil {
			return pongo2.AsSafeValue(embedError(err.Error()))
		}
		out, err := r.renderDepth(ctx, blockType, values, depth+1)
		if err != nil {
			return pongo2.AsSafeValue(embedError(err.Error()))
		}
		return pongo2.AsSafeValue(out)
	}
}

func (r *Renderer) template(blockType string) (*pongo2.Template, error) {
	name := blockType + ".html"

	r.mu.Lock()
	defer r.mu.Unlock()
	if tmpl, ok := r.cache[name]; ok {
		return tmpl, nil
	}
	tmpl, err := r.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("preview: load template for %q: %w", blockType, err)
	}
	r.cache[name] = tmpl
	return tmpl, nil
}

// EmptyState is the markup shown when a display template produces no output.
func EmptyState(blockType string) string {
	return `<div class="preview-empty" data-block-type="` + html.EscapeString(blockType) +
		`">Nothing to preview yet. Add some content in edit mode.</div>`
}

func embedError(msg string) string {
	return `<div class="embed-error">` + html.EscapeString(msg) + `</div>`
}
