// Package api exposes the question-answering backend over HTTP.
//
// Routes:
//
//	GET  /health        liveness probe
//	GET  /ready         readiness probe (database ping)
//	POST /api/question  answer a question against the knowledge store
//	POST /api/feedback  record feedback for a previous answer
//	POST /api/ingest    ingest the document directory
//
// Middleware stack (outermost first):
// Recovery, RequestID, Logging, CORS, RateLimit, Routes. Health probes
// bypass the stack so orchestrator checks never hit the rate limiter.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Answer      answerer // Required
	Ingest      ingester // Optional: nil disables POST /api/ingest
	DataDir     string   // Default ingestion root for POST /api/ingest
	Pool        pinger   // Optional: nil disables database ping in /ready
	RatePerSec  float64  // Token refill rate per IP (0 = default 5)
	RateBurst   int      // Rate limiter burst size per IP (0 = default 10)
	TrustProxy  bool     // Trust X-Real-IP/X-Forwarded-For headers
	CORSOrigins []string // Allowed origins for CORS
}

// Server is the JSON API HTTP server.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Answer == nil {
		return nil, errors.New("answer pipeline is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	qh := &questionHandler{pipeline: cfg.Answer, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/question", qh.ask)
	mux.HandleFunc("POST /api/feedback", qh.feedback)

	if cfg.Ingest != nil {
		ih := &ingestHandler{pipeline: cfg.Ingest, dataDir: cfg.DataDir, logger: logger}
		mux.HandleFunc("POST /api/ingest", ih.run)
	}

	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 5
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 10
	}
	rl := newRateLimiter(perSec, burst)

	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux, logger: logger}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	return Serve(ctx, addr, s.mux, s.logger)
}

// Serve runs an HTTP server with sane timeouts and graceful shutdown on
// context cancellation. Shared with the embedding service server.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("http server shutting down", "addr", addr)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
