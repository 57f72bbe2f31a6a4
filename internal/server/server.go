// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package server exposes the graph, search, summaries, suggestions and sync
// over a huma REST API on a chi router.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	moserr "github.com/arc-dev/mos/pkg/errors"
)

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    RateLimitConfig
	Version      string
}

// Server wraps a chi router with the huma API.
type Server struct {
	router chi.Router
	api    huma.API
	cfg    Config
	svc    *Services
	logger *slog.Logger
	done   chan struct{}
}

// New builds the router, middleware and every route. svc.Graph is required.
func New(cfg Config, svc *Services) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, moserr.New(moserr.CodeServerConfigInvalid, "listen address is required")
	}
	if err := svc.validate(); err != nil {
		return nil, err
	}
	if err := cfg.RateLimit.Validate(); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	// Summaries and crib sheets wait on the chat model.
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 120 * time.Second
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		cfg:    cfg,
		svc:    svc,
		logger: svc.logger(),
		done:   make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(s.metricsMiddleware)
	r.Use(rateLimitMiddleware(cfg.RateLimit, s.done, s.logger))
	r.Use(userMiddleware)

	if svc.Metrics != nil {
		r.Handle("/metrics", svc.Metrics.Handler())
	}

	humaConfig := huma.DefaultConfig("mos", cfg.Version)
	humaConfig.Info.Description = "Personal knowledge graph API"
	s.api = humachi.New(r, humaConfig)
	s.router = r

	s.registerHealthRoute()
	s.registerGraphRoutes()
	s.registerKnowledgeRoutes()

	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the huma API, mainly for OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background goroutines. It is safe to call more than once.
func (s *Server) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	defer func() { _ = s.Close() }()

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return moserr.Wrapf(err, moserr.CodeServerStartFailure, "listening on %s", s.cfg.ListenAddr)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.InfoContext(ctx, "http server listening", slog.String("addr", ln.Addr().String()))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return moserr.Wrap(err, moserr.CodeServerStartFailure, "serving http")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return moserr.Wrap(err, moserr.CodeServerShutdownFailure, "shutting down")
	}
	return <-errCh
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", UserHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// metricsMiddleware records one observation per request, labelled with the
// chi route pattern so ids do not explode label cardinality.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.svc.Metrics.ObserveHTTP(r.Method, route, status, time.Since(start))
	})
}
