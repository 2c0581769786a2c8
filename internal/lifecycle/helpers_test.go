package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/router"
	"github.com/vyrodovalexey/wiggly/internal/routetree"
	"github.com/vyrodovalexey/wiggly/internal/transport"
	"github.com/vyrodovalexey/wiggly/internal/util"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// testRegistry registers:
//
//	index  -> "index"
//	user   -> "user <id>"
//	named  -> "<route pattern>"
//	fail   -> error before writing
//	late   -> 201 then error
//	mw     -> sets X-Middleware
func testRegistry() *routetree.Registry {
	reg := routetree.NewRegistry()
	reg.Handle("index", func(c *router.Context) error {
		return c.Text(http.StatusOK, "index")
	})
	reg.Handle("user", func(c *router.Context) error {
		return c.Text(http.StatusOK, "user "+c.Param("id"))
	})
	reg.Handle("named", func(c *router.Context) error {
		return c.Text(http.StatusOK, c.Route().Pattern.String())
	})
	reg.Handle("fail", func(_ *router.Context) error {
		return errors.New("boom")
	})
	reg.Handle("late", func(c *router.Context) error {
		_ = c.Text(http.StatusCreated, "partial")
		return errors.New("late failure")
	})
	reg.Use("mw", func(c *router.Context, next router.Next) error {
		c.Writer.Header().Set("X-Middleware", "yes")
		return next()
	})
	return reg
}

func observedLogger() (observability.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return observability.NewZapLogger(zap.New(core)), logs
}

func request(m http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

// fakeTransport records Start and Stop without binding a socket.
type fakeTransport struct {
	kind     transport.Kind
	startErr error
	started  atomic.Bool
	stopped  atomic.Int32
	handler  http.Handler
}

func (f *fakeTransport) Start(_ context.Context, h http.Handler) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.handler = h
	f.started.Store(true)
	return nil
}

func (f *fakeTransport) Stop(context.Context) error {
	f.stopped.Add(1)
	return nil
}

func (f *fakeTransport) Addr() string        { return "fake:0" }
func (f *fakeTransport) Kind() transport.Kind { return f.kind }

func fakeFactory(f *fakeTransport) TransportFactory {
	return func(kind transport.Kind, _ transport.Config) (transport.Transport, error) {
		f.kind = kind
		return f, nil
	}
}

// gatedLoader blocks handler loading while armed until the gate opens.
type gatedLoader struct {
	routetree.Loader
	armed   atomic.Bool
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func newGatedLoader(inner routetree.Loader) *gatedLoader {
	return &gatedLoader{
		Loader:  inner,
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
}

func (g *gatedLoader) LoadHandlers(ctx context.Context, f routetree.File) (router.HandlerSet, error) {
	if g.armed.Load() {
		g.once.Do(func() { close(g.entered) })
		select {
		case <-g.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.Loader.LoadHandlers(ctx, f)
}

func newTestManager(t *testing.T, routes, middleware string, loader routetree.Loader, opts ...Option) (*Manager, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	if loader == nil {
		loader = routetree.NewManifestLoader(testRegistry(), nil)
	}
	base := []Option{
		WithTransportFactory(fakeFactory(ft)),
		WithWatch(false),
	}
	m := New(routes, middleware, loader, append(base, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Stop(ctx)
	})
	return m, ft
}

var errBind = util.NewTransportError("fake", "fake:0", errors.New("address already in use"))
