// Package server exposes the block engine over HTTP: schema fetch, asset
// lookup, preview rendering, versioned settings, and the autosave channel.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	theme "github.com/goliatone/go-theme"
	"go.uber.org/zap"

	"github.com/webtero/blockkit/internal/config"
	"github.com/webtero/blockkit/pkg/assets"
	"github.com/webtero/blockkit/pkg/preview"
	"github.com/webtero/blockkit/pkg/render"
	"github.com/webtero/blockkit/pkg/renderers/editorcanvas"
	"github.com/webtero/blockkit/pkg/renderers/modal"
	"github.com/webtero/blockkit/pkg/renderers/settingspage"
	"github.com/webtero/blockkit/pkg/repeater"
	"github.com/webtero/blockkit/pkg/schema"
	"github.com/webtero/blockkit/pkg/store"
	"github.com/webtero/blockkit/pkg/versions"
)

// Server wires the engine packages behind the HTTP surface.
type Server struct {
	cfg       *config.Config
	log       *zap.SugaredLogger
	registry  *schema.Registry
	library   *assets.Library
	versions  versions.Store
	instances *InstanceStore
	preview   *preview.Renderer
	modes     *preview.ModeStore
	renderers *render.Registry
	hub       *Hub
	watcher   *schema.Watcher
	themeCfg  *theme.RendererConfig
}

// New builds a server from configuration, opening its data stores and
// loading block definitions.
func New(cfg *config.Config) (*Server, error) {
	log := zap.S()

	registry := schema.NewRegistry()
	if cfg.DefinitionsDir != "" {
		if err := schema.LoadFS(os.DirFS(cfg.DefinitionsDir), registry); err != nil {
			return nil, fmt.Errorf("server: load definitions: %w", err)
		}
	} else {
		if err := schema.LoadFS(schema.EmbeddedDefinitions(), registry); err != nil {
			return nil, fmt.Errorf("server: load embedded definitions: %w", err)
		}
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("server: create data dir: %w", err)
	}
	library, err := assets.OpenLibrary(filepath.Join(cfg.DataDir, "assets.db"))
	if err != nil {
		return nil, err
	}
	versionStore, err := versions.NewSQLiteStore(filepath.Join(cfg.DataDir, "options.db"))
	if err != nil {
		library.Close()
		return nil, err
	}
	instanceStore, err := OpenInstanceStore(filepath.Join(cfg.DataDir, "instances.db"))
	if err != nil {
		library.Close()
		versionStore.Close()
		return nil, err
	}

	previewOpts := []preview.Option{}
	if cfg.TemplatesDir != "" {
		previewOpts = append(previewOpts, preview.WithTemplatesDir(cfg.TemplatesDir))
	}
	s := &Server{
		cfg:       cfg,
		log:       log,
		registry:  registry,
		library:   library,
		versions:  versionStore,
		instances: instanceStore,
		modes:     preview.NewModeStore(),
		renderers: render.NewRegistry(),
	}
	previewOpts = append(previewOpts, preview.WithEmbedSource(s.embedSource))
	previewRenderer, err := preview.New(previewOpts...)
	if err != nil {
		s.closeStores()
		return nil, err
	}
	s.preview = previewRenderer

	if cfg.Theme.Name != "" {
		s.themeCfg = &theme.RendererConfig{
			Theme:   cfg.Theme.Name,
			Variant: cfg.Theme.Variant,
			CSSVars: cfg.Theme.CSSVars,
		}
	}

	s.renderers.MustRegister(editorcanvas.New(editorcanvas.WithResolver(library)))
	s.renderers.MustRegister(modal.New(modal.WithResolver(library)))
	s.renderers.MustRegister(settingspage.New(settingspage.WithResolver(library)))

	s.hub = NewHub(s, cfg.Autosave.Debounce, cfg.Autosave.SavedHold)

	if cfg.DefinitionsDir != "" {
		watcher, err := schema.NewWatcher(cfg.DefinitionsDir, registry, func(name string, err error) {
			if err != nil {
				log.Warnw("definition reload failed", "file", name, "error", err)
				return
			}
			log.Infow("definition reloaded", "file", name)
		})
		if err != nil {
			log.Warnw("definition watcher unavailable", "error", err)
		} else {
			s.watcher = watcher
		}
	}

	return s, nil
}

// Routes returns the HTTP handler with all endpoints mounted.
func (s *Server) Routes(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/blocks", s.handleBlockList)
	mux.HandleFunc("GET /api/blocks/{type}/fields", s.handleBlockFields)
	mux.HandleFunc("GET /api/blocks/{type}/form", s.handleBlockForm)
	mux.HandleFunc("GET /api/assets", s.handleAssetSearch)
	mux.HandleFunc("GET /api/assets/{id}", s.handleAssetResolve)
	mux.HandleFunc("GET /api/posts", s.handlePostSearch)
	mux.HandleFunc("GET /api/instances/{instance}", s.handleInstanceLoad)
	mux.HandleFunc("POST /api/instances/{instance}", s.handleInstanceSave)
	mux.HandleFunc("POST /api/documents/{doc}/blocks/{index}/mode", s.handleModeToggle)

	previewLimiter := newRateLimiter(ctx, s.cfg.Preview.RPS, s.cfg.Preview.Burst)
	mux.Handle("POST /api/blocks/{type}/preview", previewLimiter(http.HandlerFunc(s.handlePreview)))

	mux.HandleFunc("GET /admin/settings/{instance}", s.handleSettingsPage)
	mux.HandleFunc("POST /admin/settings/{instance}", s.handleSettingsSave)
	mux.HandleFunc("POST /admin/settings/{instance}/restore", s.handleSettingsRestore)
	mux.HandleFunc("POST /admin/settings/{instance}/delete", s.handleSettingsDelete)
	mux.HandleFunc("POST /admin/settings/{instance}/prune", s.handleSettingsPrune)

	mux.HandleFunc("GET /ws/autosave/{instance}", s.hub.handleConnection)

	return s.logRequests(mux)
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Routes(ctx),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Close()
		return err
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close releases the server's resources.
func (s *Server) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
	if s.hub != nil {
		s.hub.Close()
	}
	s.closeStores()
}

func (s *Server) closeStores() {
	if s.library != nil {
		s.library.Close()
	}
	if closer, ok := s.versions.(*versions.SQLiteStore); ok {
		closer.Close()
	}
	if s.instances != nil {
		s.instances.Close()
	}
}

// embedSource resolves an embedded content id to a renderable block. The
// asset's kind names the block type; its stored instance carries the values.
func (s *Server) embedSource(ctx context.Context, id int64) (string, map[string]any, error) {
	asset, err := s.library.Resolve(ctx, id)
	if err != nil {
		return "", nil, err
	}
	values, err := s.loadInstanceValues(ctx, fmt.Sprintf("doc-%d", id), asset.Kind)
	if err != nil {
		return "", nil, err
	}
	return asset.Kind, values, nil
}

// loadInstanceValues loads an instance's resolved value map against its
// block type's schema.
func (s *Server) loadInstanceValues(ctx context.Context, instance, blockType string) (map[string]any, error) {
	block, err := s.registry.Get(blockType)
	if err != nil {
		return nil, err
	}
	encoding, attrs, err := s.instances.Load(ctx, instance)
	if err != nil {
		return nil, err
	}
	st := newValueStore(block)
	if err := st.Deserialize(encoding, attrs); err != nil {
		return nil, err
	}
	if st.Corrupt() {
		s.log.Warnw("malformed stored value, treating as empty", "instance", instance)
	}

	repaired, err := repairRowIdentity(block, st)
	if err != nil {
		return nil, err
	}
	if repaired {
		out, err := st.Serialize(encoding)
		if err != nil {
			return nil, err
		}
		if err := s.instances.Save(ctx, instance, encoding, out); err != nil {
			return nil, err
		}
		s.log.Infow("assigned identifiers to legacy rows", "instance", instance)
	}
	return st.Resolved(), nil
}

// repairRowIdentity runs each stored repeater value through the row engine
// so legacy rows gain stable identifiers. Reports whether any value changed
// and must be persisted; without the write-back every load would mint fresh
// ids and row identity would drift between renders.
func repairRowIdentity(block schema.BlockType, st *store.Store) (bool, error) {
	repaired := false
	explicit := st.Values()
	for _, field := range block.Fields {
		if field.Type != schema.TypeRepeater {
			continue
		}
		value, ok := explicit[field.ID]
		if !ok {
			continue
		}
		engine, err := repeater.New(field, value)
		if err != nil {
			return false, err
		}
		if !engine.NeedsResave() {
			continue
		}
		if err := st.Set(field.ID, engine.Value()); err != nil {
			return false, err
		}
		repaired = true
	}
	return repaired, nil
}
