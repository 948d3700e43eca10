package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/axoncore/axoncore/internal/config"
)

// BackgroundFunc runs alongside the HTTP server until its context is
// cancelled.
type BackgroundFunc func(ctx context.Context) error

type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

func New(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      cfg.WriteTimeoutOrDefault(),
			IdleTimeout:       60 * time.Second,
		},
		shutdownTimeout: 30 * time.Second,
	}
}

// Start serves until SIGINT/SIGTERM or a server error, then drains
// in-flight requests and stops the background jobs.
func (s *Server) Start(background ...BackgroundFunc) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx, background...)
}

// Run is Start with a caller-owned context.
func (s *Server) Run(ctx context.Context, background ...BackgroundFunc) error {
	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	var wg sync.WaitGroup
	for _, fn := range background {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(bgCtx); err != nil {
				slog.Error("background job stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("server shutdown: %w", err)
	}

	cancelBg()
	wg.Wait()

	if runErr == nil {
		slog.Info("server stopped gracefully")
	}
	return runErr
}
