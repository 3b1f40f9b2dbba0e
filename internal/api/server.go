package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/leetease/catalog-engine/internal/catalog"
	"github.com/leetease/catalog-engine/internal/config"
	"github.com/leetease/catalog-engine/internal/health"
	"github.com/leetease/catalog-engine/internal/importer"
	"github.com/leetease/catalog-engine/internal/progress"
	"github.com/leetease/catalog-engine/internal/reconcile"
	"github.com/leetease/catalog-engine/internal/stats"
)

// Services are the domain services the API exposes
type Services struct {
	Catalog  *catalog.Service
	Progress *progress.Service
	Stats    *stats.Service
	Sync     *reconcile.Scheduler
	Importer *importer.Importer
	Health   *health.Registry
}

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	svc            Services
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, auth config.AuthConfig, svc Services) *Server {
	if svc.Health == nil {
		svc.Health = health.NewRegistry(0)
	}

	s := &Server{
		config:         cfg,
		svc:            svc,
		authMiddleware: NewAuthMiddleware(auth),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	timeout := s.config.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", s.authMiddleware.header},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// Companies
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", s.handleListCompanies)

			r.Route("/{company}", func(r chi.Router) {
				r.Get("/buckets", s.handleListBuckets)
				r.Get("/buckets/{bucket}/questions", s.handleListQuestions)
				r.Get("/topics", s.handleTopics)
				r.Get("/progress", s.handleCompanyProgress)
			})
		})

		// Questions
		r.Route("/questions", func(r chi.Router) {
			r.Get("/suggestions", s.handleSuggestions)
			r.Post("/progress/batch", s.handleBatchProgress)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetQuestion)
				r.Patch("/", s.handleUpdateProgress)
				r.Get("/companies", s.handleQuestionCompanies)
			})
		})

		r.Get("/stats", s.handleGlobalStats)

		// External judge profile
		r.Route("/profile/judge", func(r chi.Router) {
			r.Post("/", s.handleSaveJudgeProfile)
			r.Post("/sync", s.handleSyncJudge)
		})

		r.Post("/events/login", s.handleLoginEvent)

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware.RequireAdmin)
			r.Post("/import", s.handleImport)
			r.Post("/backfill-tags", s.handleBackfillTags)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
