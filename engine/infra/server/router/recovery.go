package router

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/compozy/conduit/pkg/logger"
)

// Recovery turns handler panics into 500 responses. http.ErrAbortHandler is raised again
// so the server drops a connection whose response is already under way.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
			panic(http.ErrAbortHandler)
		}
		logger.FromContext(c.Request.Context()).Error(
			"Recovered from handler panic",
			"panic", recovered,
			"stack", string(debug.Stack()),
		)
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
