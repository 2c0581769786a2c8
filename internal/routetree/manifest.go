package routetree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/router"
	"github.com/vyrodovalexey/wiggly/internal/util"
)

// MiddlewareKey is the reserved manifest key naming a middleware.
const MiddlewareKey = "_"

// ManifestLoader reads route files as manifests: a mapping from method
// key to a handler name registered in a Registry.
//
//	# routes/user/[id].yaml
//	get: users.show
//	delete: users.delete
//
//	# routes/user/_middleware.yaml
//	_: users.greeting
//
// Files ending in .toml are decoded as TOML, everything else as YAML.
type ManifestLoader struct {
	registry *Registry
	logger   observability.Logger
}

// NewManifestLoader creates a loader resolving names against registry.
func NewManifestLoader(registry *Registry, logger observability.Logger) *ManifestLoader {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ManifestLoader{registry: registry, logger: logger}
}

// LoadHandlers implements Loader.
func (l *ManifestLoader) LoadHandlers(ctx context.Context, f File) (router.HandlerSet, error) {
	doc, err := l.read(ctx, f)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := make(router.HandlerSet, len(keys))
	for _, key := range keys {
		method, ok := router.ParseMethod(key)
		if !ok {
			l.logger.Warn("unknown method key",
				observability.String("path", f.Rel),
				observability.String("key", key),
			)
			continue
		}
		if _, dup := set[method]; dup {
			l.logger.Warn("duplicate method key",
				observability.String("path", f.Rel),
				observability.String("key", key),
			)
			continue
		}
		name, ok := doc[key].(string)
		if !ok {
			l.logger.Warn("handler reference is not a name",
				observability.String("path", f.Rel),
				observability.String("key", key),
			)
			continue
		}
		h, ok := l.registry.Handler(name)
		if !ok {
			l.logger.Warn("handler not registered",
				observability.String("path", f.Rel),
				observability.String("key", key),
				observability.String("handler", name),
			)
			continue
		}
		set[method] = h
	}
	return set, nil
}

// LoadMiddleware implements Loader.
func (l *ManifestLoader) LoadMiddleware(ctx context.Context, f File) (router.Middleware, error) {
	doc, err := l.read(ctx, f)
	if err != nil {
		return nil, err
	}

	raw, ok := doc[MiddlewareKey]
	if !ok {
		return nil, util.NewModuleLoadError(f.Rel, "missing "+MiddlewareKey+" export", util.ErrNotCallable)
	}
	name, ok := raw.(string)
	if !ok {
		return nil, util.NewModuleLoadError(f.Rel, "middleware reference is not a name", util.ErrNotCallable)
	}
	mw, ok := l.registry.Middleware(name)
	if !ok {
		return nil, util.NewModuleLoadError(f.Rel, fmt.Sprintf("middleware %q not registered", name), util.ErrNotCallable)
	}
	return mw, nil
}

func (l *ManifestLoader) read(ctx context.Context, f File) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, util.NewModuleLoadError(f.Rel, "read failed", err)
	}

	var doc map[string]any
	if strings.EqualFold(filepath.Ext(f.Path), ".toml") {
		err = toml.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, util.NewModuleLoadError(f.Rel, "malformed module", err)
	}
	if len(doc) == 0 {
		return nil, util.NewModuleLoadError(f.Rel, "no default export", nil)
	}
	return doc, nil
}

// PathLoader resolves files by their path alone, using bindings made
// with Registry.BindFile and friends. File contents are not read.
type PathLoader struct {
	registry *Registry
}

// NewPathLoader creates a loader over registry's file bindings.
func NewPathLoader(registry *Registry) *PathLoader {
	return &PathLoader{registry: registry}
}

// LoadHandlers implements Loader.
func (l *PathLoader) LoadHandlers(_ context.Context, f File) (router.HandlerSet, error) {
	set, ok := l.registry.fileSet(f.Rel)
	if !ok {
		return nil, util.NewModuleLoadError(f.Rel, "no handlers bound to path", util.ErrNotFound)
	}
	return set, nil
}

// LoadMiddleware implements Loader.
func (l *PathLoader) LoadMiddleware(_ context.Context, f File) (router.Middleware, error) {
	mw, ok := l.registry.fileMW(f)
	if !ok || mw == nil {
		return nil, util.NewModuleLoadError(f.Rel, "no middleware bound to path", util.ErrNotCallable)
	}
	return mw, nil
}
