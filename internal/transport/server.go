package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/util"
)

// server runs an http.Server on a listener it binds itself; the engine
// only decides how the handler is wrapped.
type server struct {
	kind    Kind
	config  Config
	logger  observability.Logger
	wrap    func(http.Handler) http.Handler
	running atomic.Bool

	mu     sync.Mutex
	srv    *http.Server
	addr   string
	served chan struct{}
}

func newServer(kind Kind, cfg Config) *server {
	return &server{
		kind:   kind,
		config: cfg,
		logger: observability.NopLogger(),
	}
}

// Kind returns the engine kind.
func (s *server) Kind() Kind {
	return s.kind
}

// Addr returns the bound address, or the configured one before Start.
func (s *server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr != "" {
		return s.addr
	}
	return s.config.Address()
}

// Start starts the transport.
func (s *server) Start(ctx context.Context, handler http.Handler) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("transport %s is already running: %w", s.kind, util.ErrInvalidState)
	}

	addr := s.config.Address()

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		s.running.Store(false)
		return util.NewTransportError(string(s.kind), addr, err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.wrap(handler),
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		MaxHeaderBytes:    s.config.MaxHeaderBytes,
	}

	s.mu.Lock()
	s.srv = srv
	s.addr = ln.Addr().String()
	s.served = make(chan struct{})
	served := s.served
	s.mu.Unlock()

	s.logger.Info("transport started",
		observability.String("kind", string(s.kind)),
		observability.String("address", ln.Addr().String()),
	)

	go s.serve(srv, ln, served)

	return nil
}

func (s *server) serve(srv *http.Server, ln net.Listener, served chan struct{}) {
	defer close(served)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("transport error",
			observability.String("kind", string(s.kind)),
			observability.Error(err),
		)
	}
}

// Stop stops the transport gracefully, closing remaining connections
// when ctx expires first.
func (s *server) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}

	s.mu.Lock()
	srv, served := s.srv, s.served
	s.mu.Unlock()

	s.logger.Info("stopping transport", observability.String("kind", string(s.kind)))

	var result error
	if err := srv.Shutdown(ctx); err != nil {
		if closeErr := srv.Close(); closeErr != nil {
			result = fmt.Errorf("failed to close transport: %w", closeErr)
		} else {
			result = fmt.Errorf("failed to shutdown transport gracefully: %w", err)
		}
	}
	<-served
	s.running.Store(false)

	s.logger.Info("transport stopped", observability.String("kind", string(s.kind)))
	return result
}
