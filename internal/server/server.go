// Package server provides the HTTP server and routing for the screener.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/screener/internal/config"
	"github.com/aristath/screener/internal/di"
	screeninghandlers "github.com/aristath/screener/internal/modules/screening/handlers"
	"github.com/aristath/screener/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
	Jobs      *di.JobInstances
	Scheduler *scheduler.Scheduler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	jobs           *di.JobInstances
	scheduler      *scheduler.Scheduler
	systemHandlers *SystemHandlers
	backupHandlers *BackupHandlers
	jobHandlers    *JobHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		container:      cfg.Container,
		jobs:           cfg.Jobs,
		scheduler:      cfg.Scheduler,
		systemHandlers: NewSystemHandlers(cfg.Container.DB, cfg.Log),
		jobHandlers:    NewJobHandlers(cfg.Scheduler, cfg.Jobs, cfg.Log),
	}
	// A nil *BackupService must stay a nil interface.
	if cfg.Container.BackupService != nil {
		s.backupHandlers = NewBackupHandlers(cfg.Container.BackupService, cfg.Log)
	} else {
		s.backupHandlers = NewBackupHandlers(nil, cfg.Log)
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the verdict stream is long-lived; per-route timeouts apply instead
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// Live verdict stream (websocket) - no timeout, no compression
		stream := NewVerdictStreamHandler(s.container.EventBus, s.log)
		r.Get("/verdicts/stream", stream.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(120 * time.Second))
			if !s.cfg.DevMode {
				r.Use(middleware.Compress(5))
			}

			r.Get("/system/stats", s.systemHandlers.HandleSystemStats)

			r.Get("/backups", s.backupHandlers.HandleListBackups)
			r.Post("/backups", s.backupHandlers.HandleTriggerBackup)

			r.Post("/jobs/rescreen", s.jobHandlers.HandleTriggerRescreen)

			screening := screeninghandlers.NewHandler(
				s.container.Registry,
				s.container.Calculator,
				s.container.FilingsRepo,
				s.container.VerdictRepo,
				s.container.ScreeningService,
				s.container.EventManager,
				s.log,
			)
			screening.RegisterRoutes(r)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
