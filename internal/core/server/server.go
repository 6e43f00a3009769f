// Package server serves the metrics and health endpoints while a command runs.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/mohammed-shakir/nz-lidar-aoi/internal/core/middleware"
	"github.com/mohammed-shakir/nz-lidar-aoi/internal/health"
)

type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger
	done   chan struct{}
}

func Router(metrics http.Handler, metricsPath string, progress *health.Progress, logger *slog.Logger) http.Handler {
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(mw.Recover(logger))
	r.Use(mw.Logging(logger))
	r.Get("/healthz", health.Liveness())
	if progress != nil {
		r.Get("/progress", progress.Handler())
	}
	r.Method(http.MethodGet, metricsPath, metrics)
	return r
}

// Start listens on addr and serves h in the background until Shutdown.
func Start(addr string, h http.Handler, logger *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		srv: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ln:     ln,
		logger: logger,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		logger.Info("metrics listen", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server exited", "err", err)
		}
	}()
	return s, nil
}

func (s *Server) Addr() string { return s.ln.Addr().String() }

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := s.srv.Shutdown(shutdownCtx)
	<-s.done
	return err
}
