package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adfharrison1/go-filestore/pkg/api"
	"github.com/adfharrison1/go-filestore/pkg/config"
	"github.com/adfharrison1/go-filestore/pkg/connection"
	"github.com/adfharrison1/go-filestore/pkg/metrics"
	"github.com/adfharrison1/go-filestore/pkg/storage"
)

// Server wires the backend, the connection pool and the HTTP router together.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	router  *mux.Router
	backend storage.Backend
	pool    *connection.Pool
	httpSrv *http.Server
}

// NewServer creates a server over backend using cfg
func NewServer(cfg *config.Config, backend storage.Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		router:  mux.NewRouter(),
		backend: backend,
		pool:    connection.NewPool(backend, connection.WithRegexCacheSize(cfg.Query.RegexCacheSize)),
	}

	api.NewHandler(s.pool, logger).RegisterRoutes(s.router)
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.router.Use(s.requestLoggerMiddleware)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Warn("no route found", "method", r.Method, "path", r.URL.Path)
		http.NotFound(w, r)
	})

	// shared by Start and Shutdown; never reassigned
	s.httpSrv = &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: s.router,
	}

	return s
}

// NewBackend builds the storage backend selected by cfg
func NewBackend(cfg config.DatabaseConfig, logger *slog.Logger) (storage.Backend, error) {
	opts := []storage.BackendOption{
		storage.WithCompression(cfg.Compress),
		storage.WithLogger(logger),
	}
	if cfg.AutosaveInterval > 0 {
		opts = append(opts, storage.WithBackgroundSave(cfg.AutosaveInterval))
	} else {
		opts = append(opts, storage.WithTransactionSave(cfg.SaveOnWrite))
	}

	switch cfg.Backend {
	case "file":
		return storage.NewFileBackend(cfg.Path, opts...), nil
	case "sqlite":
		return storage.NewSQLiteBackend(cfg.Path, opts...), nil
	case "memory":
		return storage.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}

// Pool exposes the connection pool
func (s *Server) Pool() *connection.Pool {
	return s.pool
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLoggerMiddleware logs and measures every request by its route template.
func (s *Server) requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.RequestTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", elapsed)
	})
}

// Start listens on the configured port until Shutdown is called. Calling Shutdown
// first makes Start return nil immediately.
func (s *Server) Start() error {
	s.logger.Info("starting go-filestore server", "port", s.cfg.Server.Port, "backend", s.cfg.Database.Backend)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, then flushes every namespace
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := s.httpSrv.Shutdown(ctx)

	if err := s.pool.Close(ctx); err != nil {
		s.logger.Error("could not save databases", "error", err)
		return err
	}
	s.logger.Info("saved databases")
	return httpErr
}
