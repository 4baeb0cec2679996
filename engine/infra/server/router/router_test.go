package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/conduit/engine/core"
)

func serve(t *testing.T, path string, handler gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET(path, handler)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", http.NoBody))
	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestRespondError(t *testing.T) {
	t.Run("Should map a coded error to its status", func(t *testing.T) {
		w, body := serve(t, "/items/:id", func(c *gin.Context) {
			RespondError(c, core.Errorf(core.CodeNotFound, "item %s not found", c.Param("id")))
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		assert.Equal(t, "not_found", body["code"])
		assert.Equal(t, "item 42 not found", body["details"])
	})

	t.Run("Should answer 500 for uncoded errors", func(t *testing.T) {
		w, body := serve(t, "/items/:id", func(c *gin.Context) {
			RespondError(c, errors.New("boom"))
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal Server Error", body["error"])
	})
}

func TestResponses(t *testing.T) {
	t.Run("Should wrap data in the envelope", func(t *testing.T) {
		w, body := serve(t, "/items/:id", func(c *gin.Context) {
			RespondOK(c, "item retrieved", gin.H{"id": c.Param("id")})
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "item retrieved", body["message"])
		assert.Equal(t, map[string]any{"id": "42"}, body["data"])
		assert.Nil(t, body["error"])
	})

	t.Run("Should reject requests without app state", func(t *testing.T) {
		w, body := serve(t, "/items/:id", func(c *gin.Context) {
			if GetAppState(c) == nil {
				return
			}
			c.Status(http.StatusOK)
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, ErrMsgAppStateNotInitialized, body["details"])
	})
}

func TestLimitOrDefault(t *testing.T) {
	t.Run("Should sanitize page sizes", func(t *testing.T) {
		assert.Equal(t, 20, LimitOrDefault("", 20, 100))
		assert.Equal(t, 20, LimitOrDefault("-3", 20, 100))
		assert.Equal(t, 7, LimitOrDefault(" 7 ", 20, 100))
		assert.Equal(t, 100, LimitOrDefault("1000", 20, 100))
	})

	t.Run("Should default pages to one", func(t *testing.T) {
		assert.Equal(t, 1, PageOrDefault("x", 0))
		assert.Equal(t, 3, PageOrDefault("3", 1))
	})
}
