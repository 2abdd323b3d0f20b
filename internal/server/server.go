// Package server is the HTTP boundary in front of the sanitizer. It accepts
// lab order uploads at POST /SanitizeLabOrder and also serves /health and
// /metrics.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redactyl/labscrub/internal/audit"
	"github.com/redactyl/labscrub/internal/metrics"
	"github.com/redactyl/labscrub/internal/sanitize"
)

// Config holds listener settings.
type Config struct {
	Listen          string
	MaxUploadBytes  int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Deps are the collaborators the server hands requests to. Sink and
// Sanitizer are required; the rest may be nil.
type Deps struct {
	Sink      sanitize.Sink
	Sanitizer *sanitize.Sanitizer
	Audit     *audit.AuditLog
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}

type Server struct {
	cfg        Config
	sink       sanitize.Sink
	sanitizer  *sanitize.Sanitizer
	audit      *audit.AuditLog
	metrics    *metrics.Collector
	log        *slog.Logger
	httpServer *http.Server

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.Mutex
	isRunning    bool
	addr         net.Addr
}

func New(cfg Config, deps Deps) *Server {
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	san := deps.Sanitizer
	if san == nil {
		san = &sanitize.Sanitizer{}
	}
	return &Server{
		cfg:          cfg,
		sink:         deps.Sink,
		sanitizer:    san,
		audit:        deps.Audit,
		metrics:      deps.Metrics,
		log:          log.With("component", "server"),
		shutdownChan: make(chan struct{}),
	}
}

// Handler returns the routed handler with its middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /SanitizeLabOrder", s.handleSanitize)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	var h http.Handler = mux
	h = requestIDMiddleware(h)
	h = loggingMiddleware(s.log)(h)
	h = recoveryMiddleware(s.log)(h)
	return h
}

// Addr returns the bound address once Start is listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start serves until ctx is cancelled, SIGINT/SIGTERM arrives, Shutdown is
// called or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	s.isRunning = true
	s.addr = ln.Addr()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("starting server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.log.Info("context cancelled, initiating shutdown")
		return s.shutdown()
	case sig := <-sigChan:
		s.log.Info("received shutdown signal", "signal", sig.String())
		return s.shutdown()
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.shutdown()
	}
}

// Shutdown asks a running Start to stop gracefully.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.shutdownChan:
	default:
		close(s.shutdownChan)
	}
}

func (s *Server) shutdown() error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.log.Info("initiating graceful shutdown", "timeout", s.cfg.ShutdownTimeout.String())
		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		s.log.Info("server stopped")
	})
	return shutdownErr
}
