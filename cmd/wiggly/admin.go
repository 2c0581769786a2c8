package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/vyrodovalexey/wiggly/internal/config"
	"github.com/vyrodovalexey/wiggly/internal/health"
	"github.com/vyrodovalexey/wiggly/internal/observability"
)

// adminServer serves metrics and health endpoints on their own port.
type adminServer struct {
	addr     string
	server   *http.Server
	listener net.Listener
	logger   observability.Logger
	// bound is closed once listener is set.
	bound chan struct{}
}

func newAdminServer(
	cfg config.MetricsConfig,
	metrics *observability.Metrics,
	checker *health.Checker,
	logger observability.Logger,
) *adminServer {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler())
	checker.Register(mux)

	return &adminServer{
		addr:   net.JoinHostPort(cfg.Bind, strconv.Itoa(cfg.Port)),
		logger: logger,
		bound:  make(chan struct{}),
		server: &http.Server{
			Handler:           mux,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
	}
}

// listen binds the admin port.
func (s *adminServer) listen(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind admin server on %s: %w", s.addr, err)
	}
	s.listener = ln
	close(s.bound)
	s.logger.Info("admin server listening",
		observability.String("address", ln.Addr().String()),
	)
	return nil
}

// serve blocks until the server is shut down.
func (s *adminServer) serve() error {
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin server: %w", err)
	}
	return nil
}

// Addr returns the bound address, or the configured one before listen.
func (s *adminServer) Addr() string {
	select {
	case <-s.bound:
		return s.listener.Addr().String()
	default:
		return s.addr
	}
}

func (s *adminServer) shutdown(ctx context.Context) error {
	select {
	case <-s.bound:
		return s.server.Shutdown(ctx)
	default:
		return nil
	}
}
