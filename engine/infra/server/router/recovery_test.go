package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/compozy/conduit/pkg/logger"
)

func TestRecovery(t *testing.T) {
	engine := func(handler gin.HandlerFunc) *gin.Engine {
		gin.SetMode(gin.TestMode)
		r := gin.New()
		r.Use(Recovery())
		r.GET("/", handler)
		return r
	}

	t.Run("Should answer 500 for a handler panic", func(t *testing.T) {
		r := engine(func(*gin.Context) { panic("boom") })
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req = req.WithContext(logger.ContextWithLogger(t.Context(), logger.NewForTests()))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("Should let an aborted handler drop the connection", func(t *testing.T) {
		r := engine(func(*gin.Context) { panic(http.ErrAbortHandler) })
		assert.PanicsWithError(t, http.ErrAbortHandler.Error(), func() {
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		})
	})
}
