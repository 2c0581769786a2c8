package lifecycle

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/router"
	"github.com/vyrodovalexey/wiggly/internal/routetree"
	"github.com/vyrodovalexey/wiggly/internal/util"
)

// Pipeline turns a routes root and a middleware root into a snapshot. It
// keeps no state between builds.
type Pipeline struct {
	RoutesRoot     string
	MiddlewareRoot string
	Loader         routetree.Loader
	// Extensions defaults to routetree.DefaultExtensions.
	Extensions []string
	Logger     observability.Logger
}

// Build walks both roots, resolves middleware and compiles the result.
//
// A missing routes root is not an error: it yields an empty snapshot and a
// warning. Structural errors (route conflicts, invalid patterns) are
// returned joined; check them with util.IsStructuralBuildError.
func (p Pipeline) Build(ctx context.Context) (*router.Snapshot, error) {
	logger := p.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	exts := p.Extensions
	if len(exts) == 0 {
		exts = routetree.DefaultExtensions
	}

	builder := routetree.NewBuilder(p.Loader,
		routetree.WithBuilderLogger(logger),
		routetree.WithExtensions(exts...),
		routetree.WithExclude(p.MiddlewareRoot),
	)

	tree, err := builder.Build(ctx, p.RoutesRoot)
	if err != nil {
		if !errors.Is(err, util.ErrNotFound) {
			return nil, err
		}
		logger.Warn("routes root not found, serving no routes",
			observability.String("path", p.RoutesRoot),
		)
		tree = routetree.EmptyTree(p.RoutesRoot)
	}

	resolver := routetree.NewResolver(p.Loader, p.MiddlewareRoot,
		routetree.WithResolverLogger(logger),
		routetree.WithResolverExtensions(exts...),
	)
	chains, err := resolver.Resolve(ctx, tree)
	if err != nil {
		return nil, err
	}

	return routetree.Compile(tree, chains)
}

// build runs the pipeline with metrics and a span around it.
func (m *Manager) build(ctx context.Context, trigger string) (*router.Snapshot, error) {
	ctx, span := m.tracer.StartSpan(ctx, "wiggly.build")
	defer span.End()
	span.SetAttributes(attribute.String("wiggly.build.trigger", trigger))

	start := time.Now()
	snap, err := m.pipeline.Build(ctx)
	duration := time.Since(start)

	if err != nil {
		m.metrics.RecordBuild(trigger, observability.BuildResultFailure, duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return nil, err
	}

	m.metrics.RecordBuild(trigger, observability.BuildResultSuccess, duration)
	span.SetAttributes(attribute.Int("wiggly.build.routes", snap.Len()))

	m.logger.WithContext(ctx).Info("route table built",
		observability.String("trigger", trigger),
		observability.Int("routes", snap.Len()),
		observability.String("fingerprint", snap.Fingerprint()),
		observability.Duration("duration", duration),
	)
	return snap, nil
}
