package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/webtero/blockkit/pkg/assets"
	"github.com/webtero/blockkit/pkg/render"
	"github.com/webtero/blockkit/pkg/renderers/settingspage"
	"github.com/webtero/blockkit/pkg/schema"
	"github.com/webtero/blockkit/pkg/store"
	"github.com/webtero/blockkit/pkg/versions"
)

func newValueStore(block schema.BlockType) *store.Store {
	return store.New(block.Fields)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type blockSummary struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

func (s *Server) handleBlockList(w http.ResponseWriter, r *http.Request) {
	blocks := s.registry.All()
	out := make([]blockSummary, len(blocks))
	for i, block := range blocks {
		out[i] = blockSummary{
			Name:        block.Name,
			Title:       block.Title,
			Description: block.Description,
			Icon:        block.Icon,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBlockFields(w http.ResponseWriter, r *http.Request) {
	block, err := s.registry.Get(r.PathValue("type"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, block.Fields)
}

// handleBlockForm renders a block's field form for one host context.
func (s *Server) handleBlockForm(w http.ResponseWriter, r *http.Request) {
	blockType := r.PathValue("type")
	block, err := s.registry.Get(blockType)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	rendererName := r.URL.Query().Get("context")
	if rendererName == "" {
		rendererName = string(render.ContextEditor)
	}
	renderer, err := s.renderers.Get(rendererName)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("unknown context %q, valid contexts: %s",
				rendererName, strings.Join(s.renderers.List(), ", ")))
		return
	}

	instance := r.URL.Query().Get("instance")
	values := map[string]any{}
	if instance != "" {
		values, err = s.loadInstanceValues(r.Context(), instance, blockType)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	out, err := renderer.Render(r.Context(), render.Form{
		BlockType: block.Name,
		Title:     block.Title,
		Instance:  instance,
		Fields:    block.Fields,
	}, render.RenderOptions{Values: values, Theme: s.themeCfg})
	if err != nil {
		s.log.Errorw("form render failed", "block", blockType, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "form render failed")
		return
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.Write(out)
}

func (s *Server) handleAssetSearch(w http.ResponseWriter, r *http.Request) {
	q := assets.Query{
		Text: r.URL.Query().Get("q"),
	}
	if kinds := r.URL.Query().Get("kinds"); kinds != "" {
		q.Kinds = strings.Split(kinds, ",")
	}
	if types := r.URL.Query().Get("types"); types != "" {
		q.Types = strings.Split(types, ",")
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			q.Limit = n
		}
	}

	results, err := s.library.Search(r.Context(), q)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []assets.Asset{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleAssetResolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	asset, err := s.library.Resolve(r.Context(), id)
	if errors.Is(err, assets.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// handlePostSearch backs the post_object widget: content lookup restricted
// to document kinds.
func (s *Server) handlePostSearch(w http.ResponseWriter, r *http.Request) {
	q := assets.Query{
		Text:  r.URL.Query().Get("q"),
		Kinds: []string{"page", "global-block"},
	}
	if kinds := r.URL.Query().Get("kinds"); kinds != "" {
		q.Kinds = strings.Split(kinds, ",")
	}

	results, err := s.library.Search(r.Context(), q)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []assets.Asset{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleInstanceLoad(w http.ResponseWriter, r *http.Request) {
	blockType := r.URL.Query().Get("type")
	if blockType == "" {
		writeJSONError(w, http.StatusBadRequest, "type query parameter is required")
		return
	}
	if !s.registry.Has(blockType) {
		writeJSONError(w, http.StatusNotFound, "block type not found")
		return
	}
	values, err := s.loadInstanceValues(r.Context(), r.PathValue("instance"), blockType)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, values)
}

type instanceSavePayload struct {
	Values map[string]any `json:"values"`
}

// handleInstanceSave merges a batch of field values into a block instance,
// writing back in the instance's own encoding.
func (s *Server) handleInstanceSave(w http.ResponseWriter, r *http.Request) {
	instance := r.PathValue("instance")
	blockType := r.URL.Query().Get("type")
	if blockType == "" {
		writeJSONError(w, http.StatusBadRequest, "type query parameter is required")
		return
	}
	block, err := s.registry.Get(blockType)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	var payload instanceSavePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	encoding, attrs, err := s.instances.Load(r.Context(), instance)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	st := newValueStore(block)
	if err := st.Deserialize(encoding, attrs); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := st.SetAll(payload.Values); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := st.Serialize(encoding)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.instances.Save(r.Context(), instance, encoding, out); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

type previewPayload struct {
	Values map[string]any `json:"values"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	blockType := r.PathValue("type")
	if !s.registry.Has(blockType) {
		writeJSONError(w, http.StatusNotFound, "block type not found")
		return
	}

	var payload previewPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	html, err := s.preview.Render(r.Context(), blockType, payload.Values)
	if err != nil {
		s.log.Errorw("preview render failed", "block", blockType, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "preview render failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"html": html})
}

func (s *Server) handleModeToggle(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid block index")
		return
	}
	mode := s.modes.Toggle(r.PathValue("doc"), index)
	writeJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})
}

func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	instance := r.PathValue("instance")
	blockType := r.URL.Query().Get("type")
	if blockType == "" {
		blockType = instance
	}
	block, err := s.registry.Get(blockType)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	values, err := s.versions.ActiveValues(r.Context(), instance)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	snapshots, err := s.versions.List(r.Context(), instance)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	active, _, err := s.versions.Active(r.Context(), instance)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	renderer, err := s.renderers.Get("settings-page")
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out, err := renderer.Render(r.Context(), render.Form{
		BlockType: block.Name,
		Title:     block.Title,
		Instance:  instance,
		Fields:    block.Fields,
	}, render.RenderOptions{Values: values, Theme: s.themeCfg})
	if err != nil {
		s.log.Errorw("settings render failed", "instance", instance, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "settings render failed")
		return
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.Write(out)
	w.Write([]byte(settingspage.VersionPanel(instance, snapshots, active)))
}

type settingsSavePayload struct {
	Values map[string]any `json:"values"`
}

func (s *Server) handleSettingsSave(w http.ResponseWriter, r *http.Request) {
	instance := r.PathValue("instance")

	var payload settingsSavePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	author := r.Header.Get("X-Author")
	if author == "" {
		author = "unknown"
	}

	snap, err := s.versions.Save(r.Context(), instance, payload.Values, author)
	if errors.Is(err, versions.ErrInvalidOperation) {
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"timestamp": snap.Timestamp})
}

func (s *Server) settingsTimestamp(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.FormValue("timestamp")
	if raw == "" {
		var payload struct {
			Timestamp int64 `json:"timestamp"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
			return payload.Timestamp, true
		}
		writeJSONError(w, http.StatusBadRequest, "timestamp is required")
		return 0, false
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid timestamp")
		return 0, false
	}
	return ts, true
}

func writeVersionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, versions.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, versions.ErrInvalidOperation):
		writeJSONError(w, http.StatusConflict, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleSettingsRestore(w http.ResponseWriter, r *http.Request) {
	ts, ok := s.settingsTimestamp(w, r)
	if !ok {
		return
	}
	if err := s.versions.Restore(r.Context(), r.PathValue("instance"), ts); err != nil {
		writeVersionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func (s *Server) handleSettingsDelete(w http.ResponseWriter, r *http.Request) {
	ts, ok := s.settingsTimestamp(w, r)
	if !ok {
		return
	}
	if err := s.versions.Delete(r.Context(), r.PathValue("instance"), ts); err != nil {
		writeVersionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSettingsPrune(w http.ResponseWriter, r *http.Request) {
	removed, err := s.versions.PruneAllButActive(r.Context(), r.PathValue("instance"))
	if err != nil {
		writeVersionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}
