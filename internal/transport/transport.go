// Package transport serves an http.Handler over a TCP listener using one
// of the supported HTTP engines.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/util"
)

// Kind selects the HTTP engine.
type Kind string

// Supported kinds.
const (
	KindChi Kind = "chi"
	KindGin Kind = "gin"
)

// ParseKind parses a transport kind, case-insensitively. "a" and "b" are
// accepted as aliases for chi and gin.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "chi", "a":
		return KindChi, nil
	case "gin", "b":
		return KindGin, nil
	default:
		return "", fmt.Errorf("unknown transport %q: %w", s, util.ErrInvalidInput)
	}
}

// Transport accepts connections and hands every request to a handler.
type Transport interface {
	// Start binds the listener and begins serving in the background.
	// Bind failures are returned as *util.TransportError.
	Start(ctx context.Context, handler http.Handler) error
	// Stop stops accepting connections and drains in-flight requests
	// until ctx expires.
	Stop(ctx context.Context) error
	// Addr returns the bound address once started.
	Addr() string
	Kind() Kind
}

// Config configures a transport.
type Config struct {
	Bind              string
	Port              int
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
}

// DefaultConfig returns the default server timeouts on port 8080.
func DefaultConfig() Config {
	return Config{
		Port:              8080,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}
}

// Address returns the listen address.
func (c Config) Address() string {
	bind := c.Bind
	if bind == "" {
		bind = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", bind, c.Port)
}

// Option is a functional option for configuring a transport.
type Option func(*server)

// WithLogger sets the logger for the transport.
func WithLogger(logger observability.Logger) Option {
	return func(s *server) {
		s.logger = logger
	}
}

// New creates a transport of the given kind.
func New(kind Kind, cfg Config, opts ...Option) (Transport, error) {
	s := newServer(kind, cfg)
	for _, opt := range opts {
		opt(s)
	}

	switch kind {
	case KindChi:
		s.wrap = chiHandler
	case KindGin:
		s.wrap = ginHandler
	default:
		return nil, fmt.Errorf("unknown transport %q: %w", kind, util.ErrInvalidInput)
	}
	return s, nil
}
