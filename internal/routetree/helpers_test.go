package routetree

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/router"
)

// writeFiles creates files under root. Directories are created as needed;
// a trailing slash creates an empty directory.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			require.NoError(t, os.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// testRegistry registers handlers h1..h3 and middleware named after the
// value they append to the "trace" slice in the request context.
func testRegistry() *Registry {
	reg := NewRegistry()
	for _, name := range []string{"h1", "h2", "h3"} {
		name := name
		reg.Handle(name, func(c *router.Context) error {
			c.Set("handler", name)
			return nil
		})
	}
	for _, name := range []string{"G", "G2", "M1", "M2", "MI"} {
		name := name
		reg.Use(name, func(c *router.Context, next router.Next) error {
			trace, _ := c.Get("trace")
			list, _ := trace.([]string)
			c.Set("trace", append(list, name))
			return next()
		})
	}
	return reg
}

func observedLogger() (observability.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return observability.NewZapLogger(zap.New(core)), logs
}

// buildSnapshot runs the whole pipeline over a routes root and an
// optional middleware root.
func buildSnapshot(t *testing.T, routesRoot, middlewareRoot string, loader Loader) (*router.Snapshot, error) {
	t.Helper()
	ctx := context.Background()

	tree, err := NewBuilder(loader).Build(ctx, routesRoot)
	require.NoError(t, err)

	chains, err := NewResolver(loader, middlewareRoot).Resolve(ctx, tree)
	require.NoError(t, err)

	return Compile(tree, chains)
}

// serve runs a matched route and returns the handler name and the
// middleware trace.
func serve(t *testing.T, m router.Match) (string, []string) {
	t.Helper()
	c := &router.Context{}
	require.NoError(t, m.Route.Serve(c))
	trace, _ := c.Get("trace")
	list, _ := trace.([]string)
	return c.GetString("handler"), list
}
