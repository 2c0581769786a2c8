package routetree

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/router"
)

// Chains maps every node to its ordered middleware chain.
type Chains map[*Node][]router.MiddlewareDescriptor

// Resolver loads global and directory-local middleware.
type Resolver struct {
	loader     Loader
	root       string
	logger     observability.Logger
	extensions extensionSet
}

// ResolverOption is a functional option for configuring the Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger for the resolver.
func WithResolverLogger(logger observability.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithResolverExtensions sets the accepted middleware file extensions.
func WithResolverExtensions(exts ...string) ResolverOption {
	return func(r *Resolver) {
		r.extensions = newExtensionSet(exts)
	}
}

// NewResolver creates a resolver. middlewareRoot may be empty, in which
// case there is no global middleware.
func NewResolver(loader Loader, middlewareRoot string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		loader:     loader,
		root:       middlewareRoot,
		logger:     observability.NopLogger(),
		extensions: newExtensionSet(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Global loads the middleware root in directory order. Files are not
// deduplicated and nothing is cached between calls.
func (r *Resolver) Global(ctx context.Context) ([]router.MiddlewareDescriptor, error) {
	if r.root == "" {
		return nil, nil
	}
	root, err := filepath.Abs(r.root)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Debug("middleware root not found", observability.String("path", root))
			return nil, nil
		}
		r.logger.Warn("middleware root unreadable",
			observability.String("path", root),
			observability.Error(err),
		)
		return nil, nil
	}

	var chain []router.MiddlewareDescriptor
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || isHidden(name) {
			continue
		}
		stem, ok := r.extensions.stem(name)
		if !ok || !isGlobalMiddleware(stem) {
			continue
		}
		f := File{Path: filepath.Join(root, name), Rel: name, Root: root, Global: true}
		d, ok, err := r.load(ctx, f, root, router.GlobalDepth)
		if err != nil {
			return nil, err
		}
		if ok {
			chain = append(chain, d)
		}
	}
	return chain, nil
}

// Resolve assigns every node the global chain followed by the
// directory-local middleware of its ancestors and itself, root first.
func (r *Resolver) Resolve(ctx context.Context, tree *Tree) (Chains, error) {
	global, err := r.Global(ctx)
	if err != nil {
		return nil, err
	}

	local := make(map[*Node][]router.MiddlewareDescriptor)
	chains := make(Chains)
	err = tree.Walk(func(n *Node, ancestors []*Node) error {
		var own []router.MiddlewareDescriptor
		for _, f := range n.Middleware {
			d, ok, err := r.load(ctx, f, n.Dir, n.Depth)
			if err != nil {
				return err
			}
			if ok {
				own = append(own, d)
			}
		}
		local[n] = own

		chain := make([]router.MiddlewareDescriptor, 0, len(global)+len(own))
		chain = append(chain, global...)
		for _, a := range ancestors {
			chain = append(chain, local[a]...)
		}
		chain = append(chain, own...)
		chains[n] = chain
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chains, nil
}

func (r *Resolver) load(ctx context.Context, f File, dir string, depth int) (router.MiddlewareDescriptor, bool, error) {
	info, err := os.Stat(f.Path)
	if err != nil || info.Size() == 0 {
		return router.MiddlewareDescriptor{}, false, nil
	}

	mw, err := r.loader.LoadMiddleware(ctx, f)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return router.MiddlewareDescriptor{}, false, ctxErr
		}
		r.logger.Warn("skipping middleware file",
			observability.String("path", f.Rel),
			observability.String("reason", err.Error()),
		)
		return router.MiddlewareDescriptor{}, false, nil
	}
	if mw == nil {
		r.logger.Warn("skipping middleware file",
			observability.String("path", f.Rel),
			observability.String("reason", "middleware is not callable"),
		)
		return router.MiddlewareDescriptor{}, false, nil
	}

	name := f.Rel
	if f.Global {
		name = "@" + f.Rel
	}
	return router.MiddlewareDescriptor{Name: name, Dir: dir, Depth: depth, Fn: mw}, true, nil
}
