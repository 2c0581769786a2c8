package router

import (
	"net/http"
	"sort"
	"strings"
)

// Handler serves a matched request.
type Handler func(c *Context) error

// Next continues to the next middleware, or the handler at the end.
type Next func() error

// Middleware wraps the rest of the chain. Not calling next short-circuits
// the request.
type Middleware func(c *Context, next Next) error

// Methods lists the method tokens a handler file may define, in the order
// routes are reported.
var Methods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodPatch,
}

// ParseMethod maps a handler file key (case-insensitive) to its method
// token.
func ParseMethod(key string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(key))
	for _, m := range Methods {
		if m == upper {
			return m, true
		}
	}
	return "", false
}

// HandlerSet maps method tokens to handlers. A file defines at most one
// handler per method.
type HandlerSet map[string]Handler

// Methods returns the methods with a non-nil handler, in Methods order.
func (hs HandlerSet) Methods() []string {
	out := make([]string, 0, len(hs))
	for _, m := range Methods {
		if hs[m] != nil {
			out = append(out, m)
		}
	}
	return out
}

// Empty reports whether the set defines no handler.
func (hs HandlerSet) Empty() bool {
	return len(hs.Methods()) == 0
}

// MiddlewareDescriptor is a loaded middleware together with where it came
// from. Depth is the directory depth below the routes root; global
// middleware uses GlobalDepth.
type MiddlewareDescriptor struct {
	Name  string
	Dir   string
	Depth int
	Fn    Middleware
}

// GlobalDepth orders global middleware ahead of every directory.
const GlobalDepth = -1

// Global reports whether the descriptor came from the middleware root.
func (d MiddlewareDescriptor) Global() bool {
	return d.Depth == GlobalDepth
}

// Compose wraps h in the chain so that chain[0] runs first.
func Compose(chain []MiddlewareDescriptor, h Handler) Handler {
	for i := len(chain) - 1; i >= 0; i-- {
		mw := chain[i].Fn
		if mw == nil {
			continue
		}
		next := h
		h = func(c *Context) error {
			return mw(c, func() error { return next(c) })
		}
	}
	return h
}

// SortDescriptors orders descriptors root-first, keeping discovery order
// within a directory.
func SortDescriptors(chain []MiddlewareDescriptor) {
	sort.SliceStable(chain, func(i, j int) bool {
		return chain[i].Depth < chain[j].Depth
	})
}
