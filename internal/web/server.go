// Package web provides the HTTP server for parsing, browsing and exporting
// efile documents.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/JonMunkholm/efile/internal/config"
	"github.com/JonMunkholm/efile/internal/core"
	"github.com/JonMunkholm/efile/internal/logging"
	"github.com/JonMunkholm/efile/internal/metrics"
	mw "github.com/JonMunkholm/efile/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP server of the efile service.
type Server struct {
	service *core.Service
	cfg     *config.Config
	metrics *metrics.Registry
	health  func(context.Context) error
	router  *chi.Mux
	server  *http.Server

	// stops the rate limiter cleanup goroutines
	stop context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck adds fn to /healthz, typically the store's Ping.
func WithHealthCheck(fn func(context.Context) error) Option {
	return func(s *Server) { s.health = fn }
}

// NewServer creates a Server. m may be nil, in which case /metrics is not
// served.
func NewServer(service *core.Service, cfg *config.Config, m *metrics.Registry, opts ...Option) *Server {
	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		service: service,
		cfg:     cfg,
		metrics: m,
		router:  chi.NewRouter(),
		stop:    stop,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware(ctx)
	s.setupRoutes(ctx)
	return s
}

func (s *Server) setupMiddleware(ctx context.Context) {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger(s.metrics))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(mw.SecurityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		limiter := mw.NewRateLimiter(ctx, s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.Handler)
	}
}

func (s *Server) setupRoutes(ctx context.Context) {
	// uploads get their own, tighter limit
	upload := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled {
		upload = mw.NewRateLimiter(ctx, s.cfg.Rate.UploadLimit, time.Minute).Handler
	}

	// Pages
	s.router.Get("/", s.handleDashboard)
	s.router.With(upload).Post("/upload", s.handleUploadForm)
	s.router.Get("/documents/{id}", s.handleDocumentPage)
	s.router.Post("/documents/{id}/save", s.handleSaveForm)
	s.router.Get("/stored/{id}", s.handleStoredPage)

	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.Security))

		r.Get("/format", s.handleFormat)
		r.Get("/status", s.handleStatus)
		r.With(upload).Post("/parse", s.handleParse)

		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Delete("/documents/{id}", s.handleForgetDocument)
		r.Get("/documents/{id}/export", s.handleExportDocument)
		r.Get("/documents/{id}/tables/{name}", s.handleGetTable)
		r.Get("/documents/{id}/tables/{name}/export", s.handleExportTable)
		r.Post("/documents/{id}/save", s.handleSaveDocument)

		r.Get("/stored", s.handleListStored)
		r.Get("/stored/{id}", s.handleLoadStored)
		r.Delete("/stored/{id}", s.handleDeleteStored)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, errNotFound)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	logging.FromContext(context.Background()).Info("server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the chi router, for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON encodes v with status. Encoding errors are logged since the
// header is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Warn("json encode error", "error", err)
	}
}
