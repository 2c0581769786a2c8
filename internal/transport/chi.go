package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// chiHandler mounts handler as a catch-all on a chi router. Routing is
// left entirely to handler.
func chiHandler(handler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Handle("/*", handler)
	r.NotFound(handler.ServeHTTP)
	r.MethodNotAllowed(handler.ServeHTTP)
	return r
}
