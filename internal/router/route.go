package router

// CompiledRoute binds a method and pattern to a handler and its
// middleware chain, global middleware first.
type CompiledRoute struct {
	Method     string
	Pattern    Pattern
	Middleware []MiddlewareDescriptor
	Handler    Handler
	// Source is the handler file, relative to the routes root.
	Source string

	chain Handler
}

// Serve runs the middleware chain and handler for c.
func (r *CompiledRoute) Serve(c *Context) error {
	if r.chain != nil {
		return r.chain(c)
	}
	return Compose(r.Middleware, r.Handler)(c)
}

// MiddlewareNames lists the chain by descriptor name.
func (r *CompiledRoute) MiddlewareNames() []string {
	names := make([]string, len(r.Middleware))
	for i, d := range r.Middleware {
		names[i] = d.Name
	}
	return names
}

// Match is the result of a successful lookup.
type Match struct {
	Route  *CompiledRoute
	Params Params
}
