package router

import (
	"context"
	"encoding/json"
	"net/http"
)

// Context is the per-request value passed through middleware to the
// handler. It is not safe for use by more than one goroutine.
type Context struct {
	Writer  http.ResponseWriter
	Request *http.Request

	route  *CompiledRoute
	params Params
	values map[string]any
}

// NewContext creates a request context for a match.
func NewContext(w http.ResponseWriter, r *http.Request, m Match) *Context {
	return &Context{
		Writer:  w,
		Request: r,
		route:   m.Route,
		params:  m.Params,
	}
}

// Context returns the request's context.Context.
func (c *Context) Context() context.Context {
	return c.Request.Context()
}

// Param returns a bound path parameter, or "" if unbound.
func (c *Context) Param(name string) string {
	return c.params[name]
}

// Params returns a copy of the bound path parameters.
func (c *Context) Params() Params {
	out := make(Params, len(c.params))
	for k, v := range c.params {
		out[k] = v
	}
	return out
}

// Route returns the matched route.
func (c *Context) Route() *CompiledRoute {
	return c.route
}

// Set stores a request-scoped value for later middleware and the handler.
func (c *Context) Set(key string, value any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = value
}

// Get returns a value stored with Set.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetString returns a string value stored with Set.
func (c *Context) GetString(key string) string {
	s, _ := c.values[key].(string)
	return s
}

// JSON writes v as a JSON response.
func (c *Context) JSON(status int, v any) error {
	c.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.Writer.WriteHeader(status)
	return json.NewEncoder(c.Writer).Encode(v)
}

// Text writes a plain text response.
func (c *Context) Text(status int, s string) error {
	c.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.Writer.WriteHeader(status)
	_, err := c.Writer.Write([]byte(s))
	return err
}
