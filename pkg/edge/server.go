package edge

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/vingest/vingest/internal/logger"
)

// Server is the edge router process: the proxy listener plus the health
// check loop.
type Server struct {
	server       *http.Server
	checker      *HealthChecker
	config       Config
	pool         *Pool
	shutdownOnce sync.Once
}

// NewServer creates an edge router from the given configuration. em may
// be nil to run without metrics.
func NewServer(config Config, em EdgeMetrics) (*Server, error) {
	config.applyDefaults()

	pool, err := NewPool(config.Backends)
	if err != nil {
		return nil, err
	}

	proxy := NewProxy(pool, config.RequestTimeout, em)
	checker := NewHealthChecker(pool, config.Health, em)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      proxy,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server:  server,
		checker: checker,
		config:  config,
		pool:    pool,
	}, nil
}

// Start runs the router and its health checker until the context is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	checkCtx, stopChecker := context.WithCancel(ctx)
	defer stopChecker()
	go s.checker.Run(checkCtx)

	errChan := make(chan error, 1)

	go func() {
		logger.Info("Edge router listening",
			"addr", s.server.Addr,
			"backends", len(s.config.Backends),
		)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Edge router shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("edge router failed: %w", err)
	}
}

// Stop initiates a graceful shutdown. It is safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		logger.Debug("Edge router shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("edge router shutdown error: %w", err)
			logger.Error("Edge router shutdown error", logger.Err(err))
		} else {
			logger.Info("Edge router stopped gracefully")
		}
	})

	return shutdownErr
}

// Pool exposes the backend pool, mainly for status reporting.
func (s *Server) Pool() *Pool {
	return s.pool
}

// Port returns the TCP port the router is configured to listen on.
func (s *Server) Port() int {
	return s.config.Port
}
