// Package api provides the HTTP surface for LeadPipe.
//
// It exposes the Green API webhook endpoint plus a small management surface:
// the bot kill switch, the recorded leads and a health probe.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/arenaleads/leadpipe/internal/bot"
	"github.com/arenaleads/leadpipe/internal/store"
)

// Constants for API server configuration
const (
	// DefaultAddr is the default listen address
	DefaultAddr = ":8080"
	// DefaultShutdownTimeout bounds graceful shutdown on termination
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultReadHeaderTimeout bounds slow header reads
	DefaultReadHeaderTimeout = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address (e.g. ":8080").
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server hosts the webhook and management endpoints.
type Server struct {
	store      store.Store
	dispatcher *bot.Dispatcher
	addr       string
	startedAt  time.Time
}

// NewServer creates an API server over the given store and dispatcher.
func NewServer(st store.Store, dispatcher *bot.Dispatcher, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	slog.Debug("Server created", "addr", addr)
	return &Server{
		store:      st,
		dispatcher: dispatcher,
		addr:       addr,
		startedAt:  time.Now(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.rootHandler)
	mux.HandleFunc("/webhook/greenapi", s.webhookHandler)
	mux.HandleFunc("/bot/enabled", s.enabledHandler)
	mux.HandleFunc("/leads", s.leadsHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("API server shutdown failed", "error", err)
			return err
		}
		slog.Info("API server stopped")
		return nil
	}
}
