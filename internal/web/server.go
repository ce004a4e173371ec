// Package web provides the HTTP server and handlers for CSV note imports.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/cardimport/internal/config"
	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/JonMunkholm/cardimport/internal/metrics"
	"github.com/JonMunkholm/cardimport/internal/store"
	mw "github.com/JonMunkholm/cardimport/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// Server is the HTTP server for the import application.
type Server struct {
	cfg      *config.Config
	store    store.Store
	importer *core.Importer
	limiter  *core.ImportLimiter
	metrics  *metrics.Metrics
	validate *validator.Validate

	router      *chi.Mux
	server      *http.Server
	rateLimiter *rateLimiter
	importRate  *rateLimiter
}

// NewServer creates a Server importing into st.
func NewServer(st store.Store, cfg *config.Config, m *metrics.Metrics) *Server {
	detector := core.NewDetector(cfg.Import.SniffSample, cfg.Import.FallbackLines)
	importer := core.NewImporter(st, detector)
	importer.OnPhase(m.ObservePhase)

	limiter := core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
	m.WatchLimiter(limiter)

	s := &Server{
		cfg:      cfg,
		store:    st,
		importer: importer,
		limiter:  limiter,
		metrics:  m,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger(s.metrics))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.rateLimiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute)
		s.router.Use(s.rateLimiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/notetypes", s.handleListNoteTypes)

		r.Get("/decks", s.handleListDecks)
		r.Post("/decks", s.handleCreateDeck)

		r.Post("/analyze", s.handleAnalyze)

		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				s.importRate = newRateLimiter(s.cfg.Rate.ImportLimit)
				r.Use(s.importRate.middleware)
			}
			r.Post("/import", s.handleImport)
		})
		r.Get("/import/status", s.handleImportStatus)

		r.Get("/preferences/last-directory", s.handleGetLastDirectory)
		r.Put("/preferences/last-directory", s.handleSetLastDirectory)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown waits for running imports, then gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if st := s.limiter.Status(); st.Active > 0 {
		slog.Info("waiting for imports to complete", "active", st.Active)
		if err := s.limiter.Drain(ctx); err != nil {
			slog.Warn("imports did not complete in time", "error", err)
		}
	}
	s.rateLimiter.stop()
	s.importRate.stop()

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Importer returns the importer used by the handlers.
func (s *Server) Importer() *core.Importer {
	return s.importer
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; form-action 'self'")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON renders v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
