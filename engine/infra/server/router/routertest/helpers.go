package routertest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/compozy/conduit/engine/extension"
	"github.com/compozy/conduit/engine/filestore"
	"github.com/compozy/conduit/engine/generator"
	"github.com/compozy/conduit/engine/infra/server/appstate"
	"github.com/compozy/conduit/engine/infra/server/router"
	"github.com/compozy/conduit/engine/infra/server/routes"
	"github.com/compozy/conduit/engine/resources"
	"github.com/compozy/conduit/pkg/config"
)

// NewTestAppState builds an app state backed by in-memory stores.
func NewTestAppState(t *testing.T) *appstate.State {
	t.Helper()
	cfg := config.Default()
	m := resources.NewManager(resources.NewMemoryResourceStore(), filestore.NewMemory())
	gen, err := generator.New(generator.ConfigFrom(cfg), m)
	require.NoError(t, err)
	state, err := appstate.NewState(cfg, m, gen, extension.NewService(m, extension.NewJarAnalyzer()))
	require.NoError(t, err)
	return state
}

// NewEngine mounts the routes registered by register under the API base path.
func NewEngine(state *appstate.State, register func(*gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(router.Recovery())
	r.Use(appstate.StateMiddleware(state))
	register(r.Group(routes.Base()))
	return r
}

// Do serves req and returns the recorded response.
func Do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
