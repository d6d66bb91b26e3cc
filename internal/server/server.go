// Package server exposes templates and runs over an HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/javajack/xltransform"
	"github.com/javajack/xltransform/internal/logging"
	"github.com/javajack/xltransform/internal/store"
)

// maxImportBytes bounds the size of an import payload.
const maxImportBytes = 10 << 20

// Server is the HTTP API server.
type Server struct {
	store      store.Store
	runOpts    []xltransform.Option
	runTimeout time.Duration
	dataDir    string
	router     *chi.Mux
	server     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithRunOptions sets engine options applied to every run.
func WithRunOptions(opts ...xltransform.Option) Option {
	return func(s *Server) { s.runOpts = append(s.runOpts, opts...) }
}

// WithRunTimeout bounds each run started through the API (default: 10m).
func WithRunTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.runTimeout = d
		}
	}
}

// WithDataDir confines run input and output paths to dir (default: the
// working directory). Request paths are taken relative to it.
func WithDataDir(dir string) Option {
	return func(s *Server) {
		if dir != "" {
			s.dataDir = dir
		}
	}
}

// New creates a Server backed by st.
func New(st store.Store, opts ...Option) *Server {
	s := &Server{
		store:      st,
		runTimeout: 10 * time.Minute,
		dataDir:    ".",
		router:     chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if abs, err := filepath.Abs(s.dataDir); err == nil {
		s.dataDir = abs
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/templates", func(r chi.Router) {
		r.Get("/", s.handleListTemplates)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		r.Get("/{id}", s.handleGetTemplate)
		r.Get("/{id}/validate", s.handleValidateTemplate)
	})

	s.router.Post("/runs", s.handleRun)
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.runTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// resolvePath maps a request path into the data directory. Absolute paths
// and paths that climb out of the directory are rejected.
func (s *Server) resolvePath(p string) (string, error) {
	if filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return "", fmt.Errorf("path %q must be relative to the data directory", p)
	}
	full := filepath.Join(s.dataDir, p)
	rel, err := filepath.Rel(s.dataDir, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the data directory", p)
	}
	return full, nil
}

// requestLogger logs one structured line per request, tagged with the
// chi request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logging.FromContext(r.Context()).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	code := errorCode(err, status)
	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"status", status,
		"code", code,
		"error", err,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error(), Code: code})
}

func errorCode(err error, status int) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, xltransform.ErrConfiguration):
		return string(xltransform.KindConfiguration)
	case errors.Is(err, xltransform.ErrIO):
		return string(xltransform.KindIO)
	case status == http.StatusBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
