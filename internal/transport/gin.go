package transport

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

var ginModeOnce sync.Once

// ginHandler mounts handler as a catch-all on a gin engine. Path
// cleanup and redirects are disabled so requests reach handler as sent.
func ginHandler(handler http.Handler) http.Handler {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	engine.HandleMethodNotAllowed = false
	engine.Use(gin.Recovery())
	engine.Any("/*path", gin.WrapH(handler))
	engine.NoRoute(gin.WrapH(handler))
	return engine
}
