// Package server exposes ingestion and question answering over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"docrag/config"
	"docrag/internal/adapter/metrics"
	"docrag/internal/port"
	"docrag/internal/usecase"
)

// Deps are the long-lived services the handlers use. Metrics may be nil.
type Deps struct {
	Ingest   *usecase.IngestUseCase
	Retrieve *usecase.RetrieveUseCase
	Answer   *usecase.AnswerUseCase
	Store    port.VectorStore
	Catalog  port.DocumentCatalog
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
	Version  string
}

type Server struct {
	cfg     config.ServerConfig
	deps    Deps
	mux     *http.ServeMux
	handler http.Handler
	started time.Time
	log     zerolog.Logger
}

func New(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		cfg:     cfg,
		deps:    deps,
		mux:     http.NewServeMux(),
		started: time.Now(),
		log:     deps.Logger.With().Str("component", "http").Logger(),
	}
	s.routes()
	s.handler = s.middleware(s.mux)
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /ingest/upload", s.handleUpload)
	s.mux.HandleFunc("DELETE /ingest/clear", s.handleClear)
	s.mux.HandleFunc("GET /documents", s.handleDocuments)
	s.mux.HandleFunc("POST /query/ask", s.handleAsk)
	s.mux.HandleFunc("POST /query/debug", s.handleDebug)
	if s.cfg.Metrics && s.deps.Metrics != nil {
		s.mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}
}

// Handler returns the full handler chain, ready for httptest or a listener.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on cfg.Addr until ctx is cancelled, then drains in-flight
// requests for up to cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
