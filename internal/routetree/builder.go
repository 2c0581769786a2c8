package routetree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/router"
	"github.com/vyrodovalexey/wiggly/internal/util"
)

// Builder walks a routes root into a Tree.
type Builder struct {
	loader     Loader
	logger     observability.Logger
	extensions extensionSet
	exclude    []string
}

// BuilderOption is a functional option for configuring the Builder.
type BuilderOption func(*Builder)

// WithBuilderLogger sets the logger for the builder.
func WithBuilderLogger(logger observability.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithExtensions sets the accepted file extensions.
func WithExtensions(exts ...string) BuilderOption {
	return func(b *Builder) {
		b.extensions = newExtensionSet(exts)
	}
}

// WithExclude skips the given directories, e.g. a middleware root that
// lives inside the routes root.
func WithExclude(dirs ...string) BuilderOption {
	return func(b *Builder) {
		for _, d := range dirs {
			if d == "" {
				continue
			}
			if abs, err := filepath.Abs(d); err == nil {
				b.exclude = append(b.exclude, filepath.Clean(abs))
			}
		}
	}
}

// NewBuilder creates a new Builder.
func NewBuilder(loader Loader, opts ...BuilderOption) *Builder {
	b := &Builder{
		loader:     loader,
		logger:     observability.NopLogger(),
		extensions: newExtensionSet(nil),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build reads root once and returns its tree. A missing root yields an
// error wrapping util.ErrNotFound; callers treat it as an empty tree.
func (b *Builder) Build(ctx context.Context, root string) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve routes root %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("routes root %s: %w", abs, util.ErrNotFound)
		}
		return nil, fmt.Errorf("stat routes root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("routes root %s is not a directory: %w", abs, util.ErrInvalidInput)
	}

	tree := &Tree{RootDir: abs, Root: &Node{Dir: abs}}
	if err := b.walk(ctx, tree.Root); err != nil {
		return nil, err
	}
	return tree, nil
}

func (b *Builder) walk(ctx context.Context, n *Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(n.Dir)
	if err != nil {
		if n.Depth == 0 {
			return fmt.Errorf("read routes root %s: %w", n.Dir, err)
		}
		b.logger.Warn("skipping unreadable directory",
			observability.String("path", n.Dir),
			observability.Error(err),
		)
		return nil
	}

	for _, entry := range entries {
		name := entry.Name()
		if isHidden(name) {
			continue
		}
		abs := filepath.Join(n.Dir, name)

		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			info, statErr := os.Stat(abs)
			if statErr != nil {
				b.logger.Warn("skipping broken symlink", observability.String("path", abs))
				continue
			}
			if info.IsDir() {
				b.logger.Debug("not following directory symlink", observability.String("path", abs))
				continue
			}
		}

		if isDir {
			if err := b.addDir(ctx, n, name, abs); err != nil {
				return err
			}
			continue
		}
		if err := b.addFile(ctx, n, name, abs); err != nil {
			return err
		}
	}

	sort.SliceStable(n.Middleware, func(i, j int) bool {
		si, _ := b.extensions.stem(filepath.Base(n.Middleware[i].Path))
		sj, _ := b.extensions.stem(filepath.Base(n.Middleware[j].Path))
		return middlewareRank(si) < middlewareRank(sj)
	})
	return nil
}

func (b *Builder) addDir(ctx context.Context, parent *Node, name, abs string) error {
	for _, ex := range b.exclude {
		if abs == ex {
			b.logger.Debug("excluding directory from routes", observability.String("path", abs))
			return nil
		}
	}

	seg := router.ParseSegment(name)
	if seg.Kind == router.SegmentIgnored {
		b.logger.Debug("ignoring directory", observability.String("path", abs))
		return nil
	}

	child := &Node{
		Dir:     abs,
		Rel:     joinRel(parent.Rel, name),
		Segment: seg,
		Depth:   parent.Depth + 1,
	}
	if err := b.walk(ctx, child); err != nil {
		return err
	}
	parent.Children = append(parent.Children, child)
	return nil
}

func (b *Builder) addFile(ctx context.Context, n *Node, name, abs string) error {
	stem, ok := b.extensions.stem(name)
	if !ok {
		return nil
	}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	if info.Size() == 0 {
		return nil
	}

	file := File{Path: abs, Rel: joinRel(n.Rel, name), Root: b.rootOf(n)}

	switch classifyRouteFile(stem) {
	case kindIgnored:
		return nil
	case kindMiddleware:
		n.Middleware = append(n.Middleware, file)
		return nil
	case kindIndex:
		return b.loadHandlerFile(ctx, n, &HandlerFile{File: file, IsIndex: true})
	default:
		return b.loadHandlerFile(ctx, n, &HandlerFile{File: file, Segment: router.ParseSegment(stem)})
	}
}

func (b *Builder) loadHandlerFile(ctx context.Context, n *Node, hf *HandlerFile) error {
	set, err := b.loader.LoadHandlers(ctx, hf.File)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		b.logger.Warn("skipping route file",
			observability.String("path", hf.Rel),
			observability.String("reason", err.Error()),
		)
		return nil
	}
	if set.Empty() {
		b.logger.Warn("skipping route file",
			observability.String("path", hf.Rel),
			observability.String("reason", "no recognized method keys"),
		)
		return nil
	}
	hf.Handlers = set
	n.Files = append(n.Files, hf)
	return nil
}

func (b *Builder) rootOf(n *Node) string {
	root := n.Dir
	for i := 0; i < n.Depth; i++ {
		root = filepath.Dir(root)
	}
	return root
}

func joinRel(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
