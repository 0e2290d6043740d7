// Package web provides the HTTP API for bulk item imports.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/config"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/metrics"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/service"
	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/web/middleware"
)

// maxJSONBody caps JSON request bodies. Reviewed item lists are small.
const maxJSONBody = 1 << 20

// Server is the HTTP server for the import API.
type Server struct {
	service *service.Service
	cfg     *config.Config
	metrics *metrics.Metrics
	router  *chi.Mux
	server  *http.Server

	limiter       *ipRateLimiter
	importLimiter *ipRateLimiter
}

// NewServer creates a new Server instance. m may be nil.
func NewServer(svc *service.Service, cfg *config.Config, m *metrics.Metrics) *Server {
	s := &Server{
		service: svc,
		cfg:     cfg,
		metrics: m,
		router:  chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.limiter = newIPRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute)
		s.importLimiter = newIPRateLimiter(cfg.Rate.ImportLimit, time.Minute)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}

	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.limiter != nil {
		s.router.Use(s.limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		r.Get("/import/status", s.handleImportStatus)

		r.Route("/residents/{residentID}", func(r chi.Router) {
			r.Post("/items/duplicate-check", s.handleDuplicateCheck)

			r.Route("/imports", func(r chi.Router) {
				if s.importLimiter != nil {
					r.Use(s.importLimiter.middleware)
				}

				r.Post("/spreadsheet/preview", s.handlePreviewSpreadsheet)
				r.Post("/spreadsheet", s.handleImportSpreadsheet)

				r.Post("/sheets/preview", s.handlePreviewSheet)
				r.Post("/sheets", s.handleImportSheet)

				r.Post("/image/preview", s.handlePreviewImage)
				r.Post("/items", s.handleImportItems)
			})
		})
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

// Shutdown gracefully stops the server and the rate limiter janitors.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.stop()
	s.importLimiter.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				// JSON only; nothing here should ever load sub-resources.
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
