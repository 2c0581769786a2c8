package demo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/router"
	"github.com/vyrodovalexey/wiggly/internal/routetree"
	"github.com/vyrodovalexey/wiggly/internal/util"
)

// Request-scoped keys set by the demo middleware.
const (
	KeyExample = "exampleVariable"
	KeyURL     = "url"
)

// maxBodyBytes caps decoded request bodies.
const maxBodyBytes = 1 << 20

// App holds the demo handlers.
type App struct {
	store       ProductStore
	logger      observability.Logger
	logRequests bool
}

// Option is a functional option for configuring the App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithRequestLogging enables the access log middleware.
func WithRequestLogging(enabled bool) Option {
	return func(a *App) {
		a.logRequests = enabled
	}
}

// NewApp creates the demo application.
func NewApp(store ProductStore, opts ...Option) *App {
	a := &App{
		store:  store,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// handlers maps registry names to handlers.
func (a *App) handlers() map[string]router.Handler {
	return map[string]router.Handler{
		"root.get":        a.rootGet,
		"echo":            a.echo,
		"user.index":      a.userIndex,
		"user.get":        a.userGet,
		"user.settings":   a.userSettings,
		"project.index":   a.projectIndex,
		"project.edit":    a.projectEdit,
		"products.list":   a.productsList,
		"products.create": a.productsCreate,
		"products.get":    a.productsGet,
		"products.update": a.productsUpdate,
		"products.delete": a.productsDelete,
		"files.get":       a.filesGet,
	}
}

// middleware maps registry names to middleware.
func (a *App) middleware() map[string]router.Middleware {
	return map[string]router.Middleware{
		"request.log":       a.requestLog,
		"request.url":       setValue(KeyURL, "google.com"),
		"user.greeting":     setValue(KeyExample, "Hello 👋"),
		"products.greeting": setValue(KeyExample, "Holla 👋"),
	}
}

// Register adds every handler and middleware to reg by name, for use with
// the manifest loader.
func (a *App) Register(reg *routetree.Registry) {
	for name, h := range a.handlers() {
		reg.Handle(name, h)
	}
	for name, mw := range a.middleware() {
		reg.Use(name, mw)
	}
}

// Bind adds the demo routes to reg by file path, for use with the path
// loader over the bundled fixture tree.
func (a *App) Bind(reg *routetree.Registry) {
	h := a.handlers()
	mw := a.middleware()

	reg.BindFile("index.yaml", router.HandlerSet{http.MethodGet: h["root.get"], http.MethodPost: h["echo"]})
	reg.BindFile("user/index.yaml", router.HandlerSet{http.MethodGet: h["user.index"], http.MethodPost: h["echo"]})
	reg.BindFile("user/[id].yaml", router.HandlerSet{http.MethodGet: h["user.get"]})
	reg.BindFile("user/settings.yaml", router.HandlerSet{http.MethodGet: h["user.settings"]})
	reg.BindFile("user/[id]/project/index.yaml", router.HandlerSet{http.MethodGet: h["project.index"], http.MethodPost: h["echo"]})
	reg.BindFile("user/[id]/project/[editId].yaml", router.HandlerSet{http.MethodGet: h["project.edit"]})
	reg.BindFile("products/index.yaml", router.HandlerSet{http.MethodGet: h["products.list"], http.MethodPost: h["products.create"]})
	reg.BindFile("products/[id].yaml", router.HandlerSet{
		http.MethodGet:    h["products.get"],
		http.MethodPut:    h["products.update"],
		http.MethodDelete: h["products.delete"],
	})
	reg.BindFile("files/[...path].yaml", router.HandlerSet{http.MethodGet: h["files.get"]})

	reg.BindMiddlewareFile("user/_middleware.yaml", mw["user.greeting"])
	reg.BindMiddlewareFile("products/_middleware.yaml", mw["products.greeting"])
	reg.BindGlobalMiddlewareFile("_access.yaml", mw["request.log"])
	reg.BindGlobalMiddlewareFile("_index.yaml", mw["request.url"])
}

func setValue(key, value string) router.Middleware {
	return func(c *router.Context, next router.Next) error {
		c.Set(key, value)
		return next()
	}
}

// requestLog logs every request after it completes.
func (a *App) requestLog(c *router.Context, next router.Next) error {
	if !a.logRequests {
		return next()
	}
	err := next()

	status := http.StatusOK
	if sw, ok := c.Writer.(*util.StatusCapturingResponseWriter); ok {
		status = sw.StatusCode
	}
	info, _ := util.RequestInfoFromContext(c.Context())
	a.logger.WithContext(c.Context()).Info("request",
		observability.String("method", c.Request.Method),
		observability.String("path", c.Request.URL.Path),
		observability.Int("status", status),
		observability.Duration("duration", info.Elapsed()),
	)
	return err
}

type message struct {
	Message any `json:"message"`
}

func (a *App) rootGet(c *router.Context) error {
	return c.JSON(http.StatusOK, message{Message: "Hello 👋 from root route"})
}

func (a *App) echo(c *router.Context) error {
	var body any
	if err := decode(c, &body); err != nil {
		return c.JSON(http.StatusBadRequest, message{Message: err.Error()})
	}
	return c.JSON(http.StatusOK, message{Message: body})
}

func (a *App) userIndex(c *router.Context) error {
	return c.JSON(http.StatusOK, message{Message: fmt.Sprintf("message from middleware: %s, %s",
		c.GetString(KeyExample), c.GetString(KeyURL))})
}

func (a *App) userGet(c *router.Context) error {
	return c.JSON(http.StatusOK, message{Message: "User ID: " + c.Param("id")})
}

func (a *App) userSettings(c *router.Context) error {
	return c.JSON(http.StatusOK, message{Message: "User settings"})
}

func (a *App) projectIndex(c *router.Context) error {
	return c.JSON(http.StatusOK, message{Message: fmt.Sprintf("project route %s, %s",
		c.GetString(KeyExample), c.GetString(KeyURL))})
}

func (a *App) projectEdit(c *router.Context) error {
	return c.JSON(http.StatusOK, message{Message: "Edit ID: " + c.Param("editId")})
}

func (a *App) filesGet(c *router.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"path": c.Param("path")})
}

type productList struct {
	Message  string    `json:"message"`
	Products []Product `json:"products"`
}

func (a *App) productsList(c *router.Context) error {
	products, err := a.store.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, productList{
		Message:  fmt.Sprintf("detail route %s, %s", c.GetString(KeyExample), c.GetString(KeyURL)),
		Products: products,
	})
}

func (a *App) productsCreate(c *router.Context) error {
	var in ProductInput
	if err := decode(c, &in); err != nil {
		return c.JSON(http.StatusBadRequest, message{Message: err.Error()})
	}
	p, err := a.store.Create(c.Context(), in)
	if err != nil {
		return a.storeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (a *App) productsGet(c *router.Context) error {
	p, err := a.store.Get(c.Context(), c.Param("id"))
	if err != nil {
		return a.storeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (a *App) productsUpdate(c *router.Context) error {
	var patch ProductPatch
	if err := decode(c, &patch); err != nil {
		return c.JSON(http.StatusBadRequest, message{Message: err.Error()})
	}
	p, err := a.store.Update(c.Context(), c.Param("id"), patch)
	if err != nil {
		return a.storeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (a *App) productsDelete(c *router.Context) error {
	if err := a.store.Delete(c.Context(), c.Param("id")); err != nil {
		return err
	}
	return c.Text(http.StatusOK, "Product deleted")
}

// storeError answers not-found and invalid-input errors and returns the
// rest to the dispatcher.
func (a *App) storeError(c *router.Context, err error) error {
	switch {
	case IsNotFound(err):
		return c.Text(http.StatusNotFound, "Product not found")
	case errors.Is(err, util.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, message{Message: err.Error()})
	default:
		return err
	}
}

func decode(c *router.Context, v any) error {
	dec := json.NewDecoder(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
