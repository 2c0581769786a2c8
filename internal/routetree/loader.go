package routetree

import (
	"context"

	"github.com/vyrodovalexey/wiggly/internal/router"
)

// Loader turns a candidate file into a handler set or a middleware.
// Errors are reported per file and never abort a build; implementations
// should return a *util.ModuleLoadError.
type Loader interface {
	LoadHandlers(ctx context.Context, f File) (router.HandlerSet, error)
	LoadMiddleware(ctx context.Context, f File) (router.Middleware, error)
}
