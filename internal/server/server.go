// Package server exposes the hub over HTTP: registry management,
// query execution, schema introspection and catalog search, JSON in
// and out.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/dbmux-labs/dbmux/internal/config"
	"github.com/dbmux-labs/dbmux/internal/hub"
)

// Server serves the dbmux HTTP API.
type Server struct {
	registry *hub.Registry
	router   *hub.Router
	cfg      config.ServerConfig
	logger   *slog.Logger
}

// New creates a server over a registry and its router.
// If logger is nil, a discard logger is used.
func New(registry *hub.Registry, router *hub.Router, cfg config.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		registry: registry,
		router:   router,
		cfg:      cfg,
		logger:   logger,
	}
}

// Handler builds the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(s.logger),
		middleware.Recoverer,
	)

	r.Get("/api/health", s.handleServiceHealth)

	r.Route("/api/databases", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleAdd)
		r.Get("/schemas", s.handleAllSchemas)
		r.Post("/query", s.handleQuery)
		r.Post("/query/all", s.handleQueryAll)
		r.Post("/search", s.handleSearch)

		r.Route("/{name}", func(r chi.Router) {
			r.Delete("/", s.handleRemove)
			r.Get("/schema", s.handleSchema)
			r.Get("/tables", s.handleTables)
			r.Get("/health", s.handleHealth)
		})
	})

	return r
}

// Serve starts the HTTP server and blocks until the context is
// cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	eg, egctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		s.logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
