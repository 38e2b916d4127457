// Package server exposes the dashboard builder over HTTP.
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

	"github.com/leapstack-labs/leapdash/internal/state"
	"github.com/leapstack-labs/leapdash/pkg/builder"
	"github.com/leapstack-labs/leapdash/pkg/layout"
	"github.com/leapstack-labs/leapdash/pkg/templates"
)

// maxBodyBytes bounds request bodies; row samples are the largest payloads.
const maxBodyBytes = 4 << 20

// Config holds everything the server needs. Store may be nil, in which case
// the saved-dashboard endpoints answer 503.
type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	Builder           *builder.Builder
	Registry          *templates.Registry
	Constraints       layout.Constraints
	Store             state.Store
	Logger            *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	cfg     Config
	hub     *Hub
	metrics *Metrics
	handler http.Handler
	logger  *slog.Logger
}

// New creates a server and builds its routes.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Registry == nil {
		cfg.Registry = templates.NewRegistry()
		templates.RegisterBuiltins(cfg.Registry)
	}
	if cfg.Builder == nil {
		cfg.Builder = builder.New(cfg.Registry, builder.WithConstraints(cfg.Constraints), builder.WithLogger(cfg.Logger))
	}

	s := &Server{cfg: cfg, hub: NewHub(), logger: cfg.Logger}
	s.metrics = NewMetrics(func() float64 { return float64(s.hub.Len()) })
	s.handler = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

func (s *Server) routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		s.metrics.instrument,
		middleware.Recoverer,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/search", s.handleSearchTemplates)
		r.Get("/templates/{name}", s.handleShowTemplate)

		r.Post("/dashboards", s.handleBuildDashboard)
		r.Post("/schema", s.handleSchema)
		r.Post("/recommend", s.handleRecommend)
		r.Post("/layout", s.handleLayout)
		r.Post("/pipeline", s.handlePipeline)

		r.Route("/saved", func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/", s.handleListSaved)
			r.Post("/", s.handleSaveDashboard)
			r.Get("/{id}", s.handleGetSaved)
			r.Delete("/{id}", s.handleDeleteSaved)
		})
		r.With(s.requireStore).Get("/events", s.handleEvents)
	})
	return r
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	s.logger.Info("starting server", slog.String("addr", ln.Addr().String()))

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down server")
		s.hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Store == nil {
			writeError(w, http.StatusServiceUnavailable, errors.New("saved dashboards are not available"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
