// Package api exposes the DataLink services over a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"datalink/internal/logger"
	"datalink/internal/service"
)

// Deps holds the services the API dispatches to.
type Deps struct {
	Connections *service.ConnectionService
	Queries     *service.QueryService
	Schema      *service.SchemaService
	Settings    *service.SettingsService
	Dashboard   *service.DashboardService
	Export      *service.ExportService
	Log         *logger.Logger
	Version     string
}

// Config holds listener settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP front end.
type Server struct {
	cfg  Config
	deps Deps
	h    http.Handler
}

// NewServer builds the router.
func NewServer(cfg Config, deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	s := &Server{cfg: cfg, deps: deps}
	s.h = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.h }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.deps.Log.Middleware,
		middleware.Recoverer,
	)

	h := &handlers{Deps: s.deps}
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Route("/connections", func(r chi.Router) {
			r.Get("/", h.listConnections)
			r.Post("/", h.createConnection)
			r.Post("/test", h.testConnection)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getConnection)
				r.Patch("/", h.updateConnection)
				r.Delete("/", h.deleteConnection)
				r.Post("/activate", h.activateConnection)
				r.Post("/deactivate", h.deactivateConnection)
				r.Post("/test", h.testSavedConnection)
				r.Get("/dsn", h.connectionDSN)
			})
		})

		r.Route("/queries", func(r chi.Router) {
			r.Get("/", h.listQueries)
			r.Post("/", h.saveQuery)
			r.Post("/execute", h.executeQuery)
			r.Get("/{id}", h.getQuery)
			r.Delete("/{id}", h.deleteQuery)
			r.Patch("/{id}/metrics", h.updateQueryMetrics)
			r.Get("/{id}/export", h.exportQuery)
		})

		r.Post("/format", h.formatSQL)

		r.Route("/schema/{connectionId}", func(r chi.Router) {
			r.Get("/", h.getSchema)
			r.Post("/refresh", h.refreshSchema)
			r.Get("/tables/{table}", h.getTable)
		})

		r.Get("/settings", h.getSettings)
		r.Put("/settings", h.saveSettings)
		r.Delete("/settings", h.resetSettings)

		r.Get("/dashboard", h.dashboard)
	})
	return r
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		// In-flight requests outlive ctx so shutdown can drain them.
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Log.With().Str("addr", ln.Addr().String()).Logger().Info("http server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.deps.Log.Debug("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if s.deps.Queries != nil {
		s.deps.Queries.WaitRunning(shutdownCtx)
	}
	return <-errCh
}
