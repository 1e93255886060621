package settingspage

import (
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/webtero/blockkit/pkg/versions"
)

// VersionPanel renders the snapshot manager shown beside the settings form:
// one row per snapshot, newest first, with restore and delete actions.
// Delete is withheld for the active snapshot and when only one snapshot
// exists, mirroring the store's own guards.
func VersionPanel(instance string, snapshots []versions.Snapshot, active int64) string {
	// Actions must be absolute: the page is served without a trailing
	// slash, so a relative "restore" would resolve against /admin/settings/
	// and hit the wrong route.
	base := "/admin/settings/" + url.PathEscape(instance)

	var b strings.Builder
	b.WriteString(`<aside class="version-panel" data-instance="`)
	b.WriteString(html.EscapeString(instance))
	b.WriteString(`"><h2>Versions</h2><ul class="version-list">`)

	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		ts := strconv.FormatInt(snap.Timestamp, 10)

		b.WriteString(`<li class="version-item`)
		if snap.Timestamp == active {
			b.WriteString(` version-active`)
		}
		b.WriteString(`" data-timestamp="`)
		b.WriteString(ts)
		b.WriteString(`"><span class="version-date">`)
		b.WriteString(html.EscapeString(snap.CreatedAt.UTC().Format(time.RFC3339)))
		b.WriteString(`</span><span class="version-author">`)
		b.WriteString(html.EscapeString(snap.Author))
		b.WriteString(`</span>`)

		if snap.Timestamp == active {
			b.WriteString(`<span class="version-badge">active</span>`)
		} else {
			b.WriteString(`<form method="post" action="`)
			b.WriteString(html.EscapeString(base))
			b.WriteString(`/restore"><input type="hidden" name="timestamp" value="`)
			b.WriteString(ts)
			b.WriteString(`"><button type="submit">Restore</button></form>`)
			if len(snapshots) > 1 {
				b.WriteString(`<form method="post" action="`)
				b.WriteString(html.EscapeString(base))
				b.WriteString(`/delete"><input type="hidden" name="timestamp" value="`)
				b.WriteString(ts)
				b.WriteString(`"><button type="submit" class="version-delete">Delete</button></form>`)
			}
		}
		b.WriteString(`</li>`)
	}

	b.WriteString(`</ul>`)
	if len(snapshots) > 1 {
		b.WriteString(`<form method="post" action="`)
		b.WriteString(html.EscapeString(base))
		b.WriteString(`/prune"><button type="submit" class="version-prune">Delete all but active</button></form>`)
	}
	b.WriteString(`</aside>`)
	return b.String()
}
