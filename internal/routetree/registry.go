package routetree

import (
	"sort"
	"sync"

	"github.com/vyrodovalexey/wiggly/internal/router"
)

// Registry holds the handlers and middleware that route files refer to.
// Names are used by manifests; file bindings are used by PathLoader.
type Registry struct {
	mu               sync.RWMutex
	handlers         map[string]router.Handler
	middleware       map[string]router.Middleware
	fileHandlers     map[string]router.HandlerSet
	fileMiddleware   map[string]router.Middleware
	globalMiddleware map[string]router.Middleware
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers:         make(map[string]router.Handler),
		middleware:       make(map[string]router.Middleware),
		fileHandlers:     make(map[string]router.HandlerSet),
		fileMiddleware:   make(map[string]router.Middleware),
		globalMiddleware: make(map[string]router.Middleware),
	}
}

// Handle registers a named handler. Registering a name twice replaces it.
func (r *Registry) Handle(name string, h router.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Use registers a named middleware.
func (r *Registry) Use(name string, mw router.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware[name] = mw
}

// Handler returns a named handler.
func (r *Registry) Handler(name string) (router.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok && h != nil
}

// Middleware returns a named middleware.
func (r *Registry) Middleware(name string) (router.Middleware, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mw, ok := r.middleware[name]
	return mw, ok && mw != nil
}

// BindFile registers the handler set for a route file, keyed by its path
// relative to the routes root.
func (r *Registry) BindFile(rel string, set router.HandlerSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fileHandlers[rel] = set
}

// BindMiddlewareFile registers the middleware for a directory-local
// middleware file, keyed by its path relative to the routes root.
func (r *Registry) BindMiddlewareFile(rel string, mw router.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fileMiddleware[rel] = mw
}

// BindGlobalMiddlewareFile registers the middleware for a file in the
// middleware root, keyed by its path relative to that root.
func (r *Registry) BindGlobalMiddlewareFile(rel string, mw router.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globalMiddleware[rel] = mw
}

func (r *Registry) fileSet(rel string) (router.HandlerSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.fileHandlers[rel]
	if !ok {
		return nil, false
	}
	out := make(router.HandlerSet, len(set))
	for m, h := range set {
		out[m] = h
	}
	return out, true
}

func (r *Registry) fileMW(f File) (router.Middleware, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f.Global {
		mw, ok := r.globalMiddleware[f.Rel]
		return mw, ok
	}
	mw, ok := r.fileMiddleware[f.Rel]
	return mw, ok
}

// HandlerNames returns the registered handler names, sorted.
func (r *Registry) HandlerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
