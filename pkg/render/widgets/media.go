package widgets

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/webtero/blockkit/pkg/assets"
	"github.com/webtero/blockkit/pkg/schema"
)

// resolve looks up one asset id, degrading to "unresolved" instead of
// failing the form when the resolver is absent or the id is unknown.
func resolve(data Data, id int64) (assets.Asset, bool) {
	if data.Resolver == nil {
		return assets.Asset{}, false
	}
	ctx := data.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	asset, err := data.Resolver.Resolve(ctx, id)
	if err != nil {
		return assets.Asset{}, false
	}
	return asset, true
}

func writeUnresolved(b *strings.Builder, id int64) {
	b.WriteString(`<span class="asset-unresolved" title="asset could not be resolved">#`)
	b.WriteString(strconv.FormatInt(id, 10))
	b.WriteString(` (unresolved)</span>`)
}

func renderMedia(w *bytes.Buffer, field schema.Field, value any, data Data) error {
	var b strings.Builder
	b.WriteString(`<div class="field-media"`)
	writeAttr(&b, "data-name", field.ID)
	if len(field.AllowedTypes) > 0 {
		writeAttr(&b, "data-allowed-types", strings.Join(field.AllowedTypes, ","))
	}
	b.WriteString(`>`)

	if id, ok := asID(value); ok && id != 0 {
		b.WriteString(`<input type="hidden"`)
		writeAttr(&b, "name", field.ID)
		writeAttr(&b, "value", strconv.FormatInt(id, 10))
		b.WriteString(`>`)
		if asset, ok := resolve(data, id); ok {
			b.WriteString(`<figure class="media-preview"><img`)
			writeAttr(&b, "src", asset.URL)
			writeAttr(&b, "alt", asset.Title)
			b.WriteString(`><figcaption>`)
			b.WriteString(escape(asset.Title))
			b.WriteString(`</figcaption></figure>`)
		} else {
			writeUnresolved(&b, id)
		}
		b.WriteString(`<button type="button" class="media-remove">Remove</button>`)
	} else {
		b.WriteString(`<button type="button" class="media-select">Select media</button>`)
	}

	b.WriteString(`</div>`)
	w.WriteString(b.String())
	return nil
}

func renderFile(w *bytes.Buffer, field schema.Field, value any, data Data) error {
	var b strings.Builder
	b.WriteString(`<div class="field-file"`)
	writeAttr(&b, "data-name", field.ID)
	if len(field.AllowedTypes) > 0 {
		writeAttr(&b, "data-allowed-types", strings.Join(field.AllowedTypes, ","))
	}
	b.WriteString(`>`)

	if id, ok := asID(value); ok && id != 0 {
		b.WriteString(`<input type="hidden"`)
		writeAttr(&b, "name", field.ID)
		writeAttr(&b, "value", strconv.FormatInt(id, 10))
		b.WriteString(`>`)
		if asset, ok := resolve(data, id); ok {
			b.WriteString(`<a class="file-link"`)
			writeAttr(&b, "href", asset.URL)
			b.WriteString(`>`)
			name := asset.Filename
			if name == "" {
				name = asset.Title
			}
			b.WriteString(escape(name))
			b.WriteString(`</a>`)
		} else {
			writeUnresolved(&b, id)
		}
		b.WriteString(`<button type="button" class="file-remove">Remove</button>`)
	} else {
		b.WriteString(`<button type="button" class="file-select">Select file</button>`)
	}

	b.WriteString(`</div>`)
	w.WriteString(b.String())
	return nil
}

func renderGallery(w *bytes.Buffer, field schema.Field, value any, data Data) error {
	items := asList(value)
	var b strings.Builder
	b.WriteString(`<div class="field-gallery"`)
	writeAttr(&b, "data-name", field.ID)
	b.WriteString(`><ul class="gallery-items">`)

	for i, item := range items {
		id, ok := asID(item)
		if !ok {
			continue
		}
		// Item identity tracks the asset id, not the position, so reorders
		// never reuse stale entries.
		b.WriteString(`<li class="gallery-item"`)
		writeAttr(&b, "data-asset-id", strconv.FormatInt(id, 10))
		b.WriteString(`>`)
		if asset, ok := resolve(data, id); ok {
			b.WriteString(`<img`)
			writeAttr(&b, "src", asset.URL)
			writeAttr(&b, "alt", asset.Title)
			b.WriteString(`>`)
		} else {
			writeUnresolved(&b, id)
		}
		b.WriteString(`<input type="hidden"`)
		writeAttr(&b, "name", field.ID+"[]")
		writeAttr(&b, "value", strconv.FormatInt(id, 10))
		b.WriteString(`>`)

		b.WriteString(`<button type="button" class="gallery-move-left"`)
		if i == 0 {
			b.WriteString(` disabled`)
		}
		b.WriteString(`>&larr;</button><button type="button" class="gallery-move-right"`)
		if i == len(items)-1 {
			b.WriteString(` disabled`)
		}
		b.WriteString(`>&rarr;</button><button type="button" class="gallery-remove">&times;</button></li>`)
	}

	b.WriteString(`</ul><button type="button" class="gallery-add">Add images</button></div>`)
	w.WriteString(b.String())
	return nil
}

func renderPostObject(w *bytes.Buffer, field schema.Field, value any, data Data) error {
	var b strings.Builder
	b.WriteString(`<div class="field-post-object" data-searchable="true"`)
	writeAttr(&b, "data-name", field.ID)
	if len(field.Kinds) > 0 {
		writeAttr(&b, "data-kinds", strings.Join(field.Kinds, ","))
	}
	b.WriteString(`>`)

	if id, ok := asID(value); ok && id != 0 {
		b.WriteString(`<input type="hidden"`)
		writeAttr(&b, "name", field.ID)
		writeAttr(&b, "value", strconv.FormatInt(id, 10))
		b.WriteString(`>`)
		if asset, ok := resolve(data, id); ok {
			b.WriteString(`<span class="post-object-title">`)
			b.WriteString(escape(asset.Title))
			b.WriteString(`</span>`)
		} else {
			writeUnresolved(&b, id)
		}
	}
	b.WriteString(`<input type="search" class="post-object-search" placeholder="Search content">`)
	b.WriteString(`</div>`)
	w.WriteString(b.String())
	return nil
}
