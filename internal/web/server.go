package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/library-kiosk/internal/capture"
	"github.com/kozaktomas/library-kiosk/internal/circulation"
	"github.com/kozaktomas/library-kiosk/internal/config"
	"github.com/kozaktomas/library-kiosk/internal/constants"
	"github.com/kozaktomas/library-kiosk/internal/metrics"
	"github.com/kozaktomas/library-kiosk/internal/web/middleware"
	"github.com/rs/zerolog"
)

// Server represents the kiosk HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	kiosk      *circulation.Kiosk
	metrics    *metrics.Metrics
	embedder   capture.FaceEmbedder
	decoder    capture.SymbolDecoder
	log        zerolog.Logger
}

// Options carries the optional collaborators of the server.
type Options struct {
	Metrics  *metrics.Metrics
	Embedder capture.FaceEmbedder
	Decoder  capture.SymbolDecoder
	Logger   zerolog.Logger
}

// NewServer creates a new web server
func NewServer(cfg config.WebConfig, kiosk *circulation.Kiosk, opts Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:   r,
		kiosk:    kiosk,
		metrics:  opts.Metrics,
		embedder: opts.Embedder,
		decoder:  opts.Decoder,
		log:      opts.Logger.With().Str("component", "web").Logger(),
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	for _, mw := range middleware.AccessLog(s.log) {
		r.Use(mw)
	}
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(constants.RequestTimeout))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  constants.ReadTimeout,
		WriteTimeout: constants.WriteTimeout,
		IdleTimeout:  constants.IdleTimeout,
	}

	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("starting web server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
