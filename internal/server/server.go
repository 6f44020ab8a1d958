package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"playkeeper/internal/api"
	"playkeeper/internal/config"
	"playkeeper/internal/metrics"
)

type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	httpServer *http.Server
	router     *chi.Mux
	handler    *api.Handler
	metrics    *metrics.Metrics
}

func New(cfg *config.Config, logger zerolog.Logger, handler *api.Handler, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		handler: handler,
		metrics: m,
	}

	s.router = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(CORSMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handler.Health)

		r.Get("/session", s.handler.GetSession)
		r.Post("/session/load", s.handler.LoadSession)
		r.Post("/session/stop", s.handler.StopSession)
		r.Post("/session/quality", s.handler.SetQuality)
		r.Put("/session/sponsor", s.handler.SetSponsor)
		r.Get("/session/resume", s.handler.GetResume)
		r.Get("/session/history", s.handler.GetHistory)

		// The player frontend reports engine signals here.
		r.Post("/engine/error", s.handler.ReportError)
		r.Post("/engine/position", s.handler.ReportPosition)
		r.Post("/engine/bandwidth", s.handler.ReportBandwidth)
		r.Post("/engine/buffering", s.handler.ReportBuffering)

		r.Get("/events", s.handler.Events)
	})

	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
}

func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Msg("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
