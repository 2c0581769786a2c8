package lifecycle

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/wiggly/internal/router"
	"github.com/vyrodovalexey/wiggly/internal/routetree"
	"github.com/vyrodovalexey/wiggly/internal/transport"
	"github.com/vyrodovalexey/wiggly/internal/util"
)

func TestManager_ServeAndStop(t *testing.T) {
	t.Parallel()

	routes := t.TempDir()
	writeFiles(t, routes, map[string]string{
		"index.yaml":     "get: index\n",
		"user/[id].yaml": "get: user\n",
	})

	m, ft := newTestManager(t, routes, "", nil)
	assert.Equal(t, StateUninitialized, m.State())
	assert.Nil(t, m.Snapshot())
	assert.Zero(t, m.Generation())

	require.NoError(t, m.Serve(context.Background(), ServeConfig{Port: 8080, Transport: transport.KindGin}))
	assert.Equal(t, StateServing, m.State())
	assert.Equal(t, uint64(1), m.Generation())
	assert.Equal(t, 2, m.Snapshot().Len())
	assert.True(t, ft.started.Load())
	assert.Equal(t, transport.KindGin, ft.kind)
	assert.Equal(t, "fake:0", m.Addr())

	rec := request(m, http.MethodGet, "/user/42")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user 42", rec.Body.String())

	err := m.Serve(context.Background(), ServeConfig{})
	assert.ErrorIs(t, err, util.ErrInvalidState)

	require.NoError(t, m.Stop(context.Background()))
	assert.Equal(t, StateStopped, m.State())
	assert.Equal(t, int32(1), ft.stopped.Load())

	require.NoError(t, m.Stop(context.Background()))
	assert.Equal(t, int32(1), ft.stopped.Load())

	assert.ErrorIs(t, m.Serve(context.Background(), ServeConfig{}), util.ErrInvalidState)
}

func TestManager_InitialConflictIsFatal(t *testing.T) {
	t.Parallel()

	routes := t.TempDir()
	writeFiles(t, routes, map[string]string{
		"user/[id].yaml":   "get: user\n",
		"user/[name].yaml": "get: named\n",
	})

	m, ft := newTestManager(t, routes, "", nil)

	err := m.Serve(context.Background(), ServeConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrRouteConflict)
	assert.Equal(t, StateStopped, m.State())
	assert.False(t, ft.started.Load())
	assert.Nil(t, m.Snapshot())
}

func TestManager_InitialInvalidPatternIsFatal(t *testing.T) {
	t.Parallel()

	routes := t.TempDir()
	writeFiles(t, routes, map[string]string{
		"files/[...path]/more.yaml": "get: named\n",
	})

	m, _ := newTestManager(t, routes, "", nil)

	err := m.Serve(context.Background(), ServeConfig{})
	assert.ErrorIs(t, err, util.ErrInvalidPattern)
	assert.Equal(t, StateStopped, m.State())
}

func TestManager_NonStructuralFailureServesEmpty(t *testing.T) {
	t.Parallel()

	// A routes root that is a file cannot be walked.
	routes := filepath.Join(t.TempDir(), "routes")
	require.NoError(t, os.WriteFile(routes, []byte("x"), 0o644))

	logger, logs := observedLogger()
	m, ft := newTestManager(t, routes, "", nil, WithLogger(logger))

	require.NoError(t, m.Serve(context.Background(), ServeConfig{}))
	assert.Equal(t, StateServing, m.State())
	assert.True(t, ft.started.Load())
	assert.Equal(t, 0, m.Snapshot().Len())
	assert.Equal(t, 1, logs.FilterMessage("initial build failed, serving no routes").Len())

	assert.Equal(t, http.StatusNotFound, request(m, http.MethodGet, "/").Code)
}

func TestManager_MissingRoutesRootServesEmpty(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, filepath.Join(t.TempDir(), "missing"), "", nil)

	require.NoError(t, m.Serve(context.Background(), ServeConfig{}))
	assert.Equal(t, 0, m.Snapshot().Len())
}

func TestManager_TransportFailure(t *testing.T) {
	t.Parallel()

	routes := t.TempDir()
	writeFiles(t, routes, map[string]string{"index.yaml": "get: index\n"})

	ft := &fakeTransport{startErr: errBind}
	m := New(routes, "", routetree.NewManifestLoader(testRegistry(), nil),
		WithTransportFactory(fakeFactory(ft)),
		WithWatch(false),
	)

	err := m.Serve(context.Background(), ServeConfig{})
	assert.ErrorIs(t, err, util.ErrTransport)
	assert.Equal(t, StateStopped, m.State())
	assert.NoError(t, m.Stop(context.Background()))
}

func TestManager_InvalidBasePath(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, t.TempDir(), "", nil)
	err := m.Serve(context.Background(), ServeConfig{BasePath: "/api?x=1"})
	assert.ErrorIs(t, err, util.ErrInvalidInput)
	assert.Equal(t, StateStopped, m.State())
}

func TestManager_RebuildKeepsLastKnownGood(t *testing.T) {
	t.Parallel()

	routes := t.TempDir()
	writeFiles(t, routes, map[string]string{"user/[id].yaml": "get: user\n"})

	logger, logs := observedLogger()
	m, _ := newTestManager(t, routes, "", nil, WithLogger(logger))
	require.NoError(t, m.Serve(context.Background(), ServeConfig{}))
	first := m.Snapshot()

	writeFiles(t, routes, map[string]string{"user/[name].yaml": "get: named\n"})
	m.Rebuild()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("rebuild failed, keeping previous routes").Len() == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return m.State() == StateServing }, time.Second, 5*time.Millisecond)

	assert.Equal(t, uint64(1), m.Generation())
	assert.Same(t, first, m.Snapshot())
	assert.Equal(t, "user 9", request(m, http.MethodGet, "/user/9").Body.String())

	require.NoError(t, os.Remove(filepath.Join(routes, "user", "[name].yaml")))
	writeFiles(t, routes, map[string]string{"user/settings.yaml": "get: named\n"})
	m.Rebuild()

	require.Eventually(t, func() bool { return m.Generation() == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "/user/settings", request(m, http.MethodGet, "/user/settings").Body.String())
	assert.Equal(t, "user 9", request(m, http.MethodGet, "/user/9").Body.String())
}

func TestManager_RebuildsCoalesce(t *testing.T) {
	t.Parallel()

	routes := t.TempDir()
	writeFiles(t, routes, map[string]string{"index.yaml": "get: index\n"})

	loader := newGatedLoader(routetree.NewManifestLoader(testRegistry(), nil))
	m, _ := newTestManager(t, routes, "", loader)
	require.NoError(t, m.Serve(context.Background(), ServeConfig{}))

	loader.armed.Store(true)
	m.Rebuild()

	select {
	case <-loader.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild did not start")
	}
	assert.Equal(t, StateRebuilding, m.State())

	// The old snapshot keeps serving while the rebuild is blocked.
	assert.Equal(t, "index", request(m, http.MethodGet, "/").Body.String())

	m.Rebuild()
	m.Rebuild()
	m.Rebuild()

	close(loader.gate)

	require.Eventually(t, func() bool { return m.Generation() == 3 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, uint64(3), m.Generation())
	assert.Equal(t, StateServing, m.State())
}

func TestManager_WatchBurstTriggersOneRebuild(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	routes := filepath.Join(dir, "routes")
	writeFiles(t, routes, map[string]string{"index.yaml": "get: index\n"})

	m, _ := newTestManager(t, routes, filepath.Join(dir, "middleware"), nil,
		WithWatch(true),
		WithDebounce(150*time.Millisecond),
	)
	require.NoError(t, m.Serve(context.Background(), ServeConfig{}))
	require.Equal(t, uint64(1), m.Generation())

	writeFiles(t, routes, map[string]string{
		"a.yaml": "get: named\n",
		"b.yaml": "get: named\n",
		"c.yaml": "get: named\n",
	})

	require.Eventually(t, func() bool { return m.Generation() == 2 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, uint64(2), m.Generation())
	assert.Equal(t, 4, m.Snapshot().Len())
}

func TestManager_WatchDisabled(t *testing.T) {
	t.Parallel()

	routes := t.TempDir()
	writeFiles(t, routes, map[string]string{"index.yaml": "get: index\n"})

	m, _ := newTestManager(t, routes, "", nil, WithDebounce(20*time.Millisecond))
	require.NoError(t, m.Serve(context.Background(), ServeConfig{}))

	writeFiles(t, routes, map[string]string{"a.yaml": "get: named\n"})
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, uint64(1), m.Generation())
}

func TestManager_RebuildLimiter(t *testing.T) {
	t.Parallel()

	routes := t.TempDir()
	writeFiles(t, routes, map[string]string{"index.yaml": "get: index\n"})

	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	m, _ := newTestManager(t, routes, "", nil, WithRebuildLimiter(limiter))
	require.NoError(t, m.Serve(context.Background(), ServeConfig{}))

	m.Rebuild()
	require.Eventually(t, func() bool { return m.Generation() == 2 }, 5*time.Second, 10*time.Millisecond)

	// The burst token is spent; the next rebuild waits and is cancelled by Stop.
	m.Rebuild()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, uint64(2), m.Generation())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Stop(ctx))
	assert.Equal(t, uint64(2), m.Generation())
}

func TestManager_InFlightRequestKeepsSnapshot(t *testing.T) {
	t.Parallel()

	routes := t.TempDir()
	writeFiles(t, routes, map[string]string{"slow.yaml": "get: slow\n"})

	entered := make(chan struct{})
	release := make(chan struct{})
	reg := testRegistry()
	reg.Handle("slow", func(c *router.Context) error {
		close(entered)
		<-release
		return c.Text(http.StatusOK, c.Route().Source)
	})

	m, _ := newTestManager(t, routes, "", routetree.NewManifestLoader(reg, nil))
	require.NoError(t, m.Serve(context.Background(), ServeConfig{}))
	old := m.Snapshot()

	done := make(chan string, 1)
	go func() {
		done <- request(m, http.MethodGet, "/slow").Body.String()
	}()
	<-entered
	assert.Equal(t, int64(1), old.InFlight())

	require.NoError(t, os.Remove(filepath.Join(routes, "slow.yaml")))
	writeFiles(t, routes, map[string]string{"index.yaml": "get: index\n"})
	m.Rebuild()
	require.Eventually(t, func() bool { return m.Generation() == 2 }, 5*time.Second, 10*time.Millisecond)

	assert.NotSame(t, old, m.Snapshot())
	assert.Equal(t, int64(1), old.InFlight())
	assert.Equal(t, http.StatusNotFound, request(m, http.MethodGet, "/slow").Code)

	close(release)
	assert.Equal(t, "slow.yaml", <-done)
	assert.Equal(t, int64(0), old.InFlight())
}

func TestManager_StopDuringBuild(t *testing.T) {
	t.Parallel()

	routes := t.TempDir()
	writeFiles(t, routes, map[string]string{"index.yaml": "get: index\n"})

	loader := newGatedLoader(routetree.NewManifestLoader(testRegistry(), nil))
	loader.armed.Store(true)
	m, ft := newTestManager(t, routes, "", loader)

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Serve(context.Background(), ServeConfig{})
	}()

	<-loader.entered
	assert.Equal(t, StateBuilding, m.State())
	require.NoError(t, m.Stop(context.Background()))

	err := <-errCh
	assert.ErrorIs(t, err, util.ErrInvalidState)
	assert.Equal(t, StateStopped, m.State())
	assert.False(t, ft.started.Load())
}

func TestManager_RealTransport(t *testing.T) {
	t.Parallel()

	routes := t.TempDir()
	writeFiles(t, routes, map[string]string{"user/[id].yaml": "get: user\n"})

	m := New(routes, "", routetree.NewManifestLoader(testRegistry(), nil), WithWatch(false))
	require.NoError(t, m.Serve(context.Background(), ServeConfig{
		Bind:      "127.0.0.1",
		Port:      0,
		Transport: transport.KindChi,
	}))
	t.Cleanup(func() { _ = m.Stop(context.Background()) })

	resp, err := http.Get("http://" + m.Addr() + "/user/5")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user 5", string(body))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}
