// Package server exposes the invoice extractor over HTTP.
//
// Routes:
//   - GET  /health          service status and remote settings
//   - GET  /logs            most recent log entries (JSON array)
//   - POST /extract         multipart upload, field "fatura"
//   - POST /extract-local   same as /extract with remote completion off
//
// Any extraction failure is answered with 500 and a generic message; details
// only go to the log.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/brzcapital/extract-equatorialRender-V1/internal/logger"
	"github.com/brzcapital/extract-equatorialRender-V1/pkg/services"
)

// Version is reported by /health.
const Version = "v1"

// Info describes the remote settings reported by /health.
type Info struct {
	UseGPT         bool
	RemoteProvider string
	PrimaryModel   string
	FallbackModel  string
}

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins []string
	Info           Info
	Ring           *logger.RingBuffer // nil serves an empty /logs
}

// Server wires the extractor into a chi router.
type Server struct {
	extractor services.InvoiceExtractor
	opts      Options
	log       zerolog.Logger
}

// New creates a server around extractor.
func New(extractor services.InvoiceExtractor, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		extractor: extractor,
		opts:      opts,
		log:       logger.WithComponent("http"),
	}
}

// Handler returns the router with all middleware installed.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/logs", s.handleLogs)
	r.Post("/extract", s.handleExtract)
	r.Post("/extract-local", s.handleExtractLocal)

	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Remote completion may take two model calls.
		WriteTimeout: 3 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
