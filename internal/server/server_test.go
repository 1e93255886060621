package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webtero/blockkit/internal/config"
	"github.com/webtero/blockkit/pkg/store"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, http.Handler) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, srv.Routes(ctx)
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBlockListIncludesEmbeddedDefinitions(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/blocks", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var blocks []blockSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &blocks))

	names := make([]string, len(blocks))
	for i, b := range blocks {
		names[i] = b.Name
	}
	assert.Contains(t, names, "hero")
	assert.Contains(t, names, "faq")
}

func TestBlockFieldsUnknownType(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/blocks/nope/fields", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBlockFormRendersEditorCanvas(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/blocks/hero/form", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `class="block-canvas"`)
	assert.Contains(t, body, `data-block-type="hero"`)
	assert.Contains(t, body, `data-field-id="heading"`)
}

func TestBlockFormUnknownContext(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/blocks/hero/form?context=billboard", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The error names the registered surfaces.
	body := rec.Body.String()
	for _, name := range []string{"editor-canvas", "modal", "settings-page"} {
		assert.Contains(t, body, name)
	}
}

func TestInstanceSaveAndLoadRoundTrip(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/instances/home-hero?type=hero", map[string]any{
		"values": map[string]any{"heading": "Welcome"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/instances/home-hero?type=hero", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var values map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &values))
	assert.Equal(t, "Welcome", values["heading"])
	// Unset fields resolve to their schema defaults.
	assert.Equal(t, "#1a1a1a", values["heading_color"])
}

func TestInstanceSaveRejectsUnknownField(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/instances/home-hero?type=hero", map[string]any{
		"values": map[string]any{"bogus": 1},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLegacyRowsGainStableIdentifiers(t *testing.T) {
	srv, h := newTestServer(t, nil)
	ctx := context.Background()

	// Rows stored before identifiers existed carry no _rowId.
	legacy := map[string]string{
		"items": `[{"question":"Why?","answer":"","open_by_default":false}]`,
	}
	require.NoError(t, srv.instances.Save(ctx, "faq-1", store.EncodingPerField, legacy))

	rowID := func() string {
		rec := doJSON(t, h, http.MethodGet, "/api/instances/faq-1?type=faq", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var values map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &values))
		row := values["items"].([]any)[0].(map[string]any)
		id, _ := row["_rowId"].(string)
		return id
	}

	first := rowID()
	require.NotEmpty(t, first)

	// The repaired value was written back, so identity is stable across
	// loads instead of a fresh id per render.
	assert.Equal(t, first, rowID())

	_, attrs, err := srv.instances.Load(ctx, "faq-1")
	require.NoError(t, err)
	assert.Contains(t, attrs["items"], first)
}

func TestPreviewRendersTemplate(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/blocks/hero/preview", map[string]any{
		"values": map[string]any{"heading": "Big Launch"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Contains(t, payload["html"], "Big Launch")
}

func TestPreviewEmptyValuesYieldPlaceholder(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/blocks/hero/preview", map[string]any{
		"values": map[string]any{},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Contains(t, payload["html"], "preview-empty")
}

func TestPreviewRateLimit(t *testing.T) {
	_, h := newTestServer(t, func(cfg *config.Config) {
		cfg.Preview.RPS = 0.01
		cfg.Preview.Burst = 1
	})

	body := map[string]any{"values": map[string]any{"heading": "x"}}
	rec := doJSON(t, h, http.MethodPost, "/api/blocks/hero/preview", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/blocks/hero/preview", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestModeToggleFlipsPerBlock(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/documents/page-1/blocks/0/mode", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "preview"))

	// A different block index keeps its own mode.
	rec = doJSON(t, h, http.MethodPost, "/api/documents/page-1/blocks/1/mode", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "preview"))

	rec = doJSON(t, h, http.MethodPost, "/api/documents/page-1/blocks/0/mode", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "edit"))
}

func TestSettingsLifecycle(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/admin/settings/hero", map[string]any{
		"values": map[string]any{"heading": "First"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Timestamp int64 `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	first := created.Timestamp

	// Snapshots are keyed by second, so a distinct timestamp needs a beat.
	time.Sleep(1100 * time.Millisecond)
	rec = doJSON(t, h, http.MethodPost, "/admin/settings/hero", map[string]any{
		"values": map[string]any{"heading": "Second"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// The active snapshot cannot be deleted.
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	rec = doJSON(t, h, http.MethodPost, "/admin/settings/hero/delete", map[string]any{
		"timestamp": created.Timestamp,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/admin/settings/hero/restore", map[string]any{
		"timestamp": first,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/admin/settings/hero", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `class="settings-page"`)
	assert.Contains(t, body, "version-item")
	assert.Contains(t, body, "First")
}

func TestSettingsRestoreUnknownTimestamp(t *testing.T) {
	_, h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/admin/settings/hero/restore", map[string]any{
		"timestamp": 12345,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
