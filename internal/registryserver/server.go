// Package registryserver publishes a component registry over HTTP in the
// layout read by registry.HTTPSource:
//
//	GET /registry.json      manifest as JSON
//	GET /registry.yaml      manifest as YAML
//	GET /files/{path}       component file contents
//	GET /healthz            liveness
//	GET /metrics            Prometheus metrics
package registryserver

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/fiberui-dev/fiberui/internal/errors"
	"github.com/fiberui-dev/fiberui/internal/logging"
	"github.com/fiberui-dev/fiberui/internal/registry"
	"github.com/fiberui-dev/fiberui/internal/telemetry"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. A nil logger uses slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics records requests and registry loads in m and serves m on /metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// Server serves one registry source.
type Server struct {
	src     registry.Source
	logger  *slog.Logger
	metrics *telemetry.Metrics
	router  chi.Router

	state atomic.Pointer[snapshot]
}

// snapshot is an immutable, pre-encoded view of a loaded registry.
type snapshot struct {
	store    *registry.Store
	json     []byte
	yaml     []byte
	loadedAt time.Time
}

// New loads src and returns a server for it.
func New(ctx context.Context, src registry.Source, opts ...Option) (*Server, error) {
	s := &Server{src: src}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger)

	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store returns the registry currently served.
func (s *Server) Store() *registry.Store {
	return s.state.Load().store
}

// Reload reads and validates the manifest again. On failure the
// previously loaded registry keeps being served.
func (s *Server) Reload(ctx context.Context) error {
	store, err := registry.Load(ctx, s.src, s.metrics)
	if err != nil {
		return err
	}

	manifest := store.Manifest()
	jsonData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errors.FromError(err, errors.CodeInvalidManifest)
	}
	yamlData, err := yaml.Marshal(manifest)
	if err != nil {
		return errors.FromError(err, errors.CodeInvalidManifest)
	}

	s.state.Store(&snapshot{
		store:    store,
		json:     jsonData,
		yaml:     yamlData,
		loadedAt: time.Now().UTC(),
	})
	s.logger.Info("registry loaded",
		"location", s.src.Location(),
		"name", store.Name(),
		"version", store.Version(),
		"components", store.Len())
	return nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	r.Use(tracing)

	r.Get("/registry.json", s.handleManifest("application/json", func(sn *snapshot) []byte { return sn.json }))
	r.Get("/registry.yaml", s.handleManifest("application/yaml", func(sn *snapshot) []byte { return sn.yaml }))
	r.Get("/files/*", s.handleFile)
	r.Get("/healthz", s.handleHealth)

	if g := s.metrics.Gatherer(); g != nil {
		r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) handleManifest(contentType string, body func(*snapshot) []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sn := s.state.Load()
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Last-Modified", sn.loadedAt.Format(http.TimeFormat))
		w.Write(body(sn))
	}
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "*")
	if err := registry.ValidatePath(file); err != nil {
		http.Error(w, "invalid file path", http.StatusBadRequest)
		return
	}

	rc, err := s.src.Open(r.Context(), file)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) || errors.HasCode(err, errors.CodeSourceFileMissing) {
			http.NotFound(w, r)
			return
		}
		s.logger.Warn("open registry file", "file", file, "error", err)
		http.Error(w, "registry file unavailable", http.StatusBadGateway)
		return
	}
	defer rc.Close()

	ct := mime.TypeByExtension(path.Ext(file))
	if ct == "" {
		ct = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", ct)
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Debug("write file response", "file", file, "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sn := s.state.Load()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":     "ok",
		"registry":   sn.store.Name(),
		"version":    sn.store.Version(),
		"components": sn.store.Len(),
		"loadedAt":   sn.loadedAt.Format(time.RFC3339),
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("registry server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
