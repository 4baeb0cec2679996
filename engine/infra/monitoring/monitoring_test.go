package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMonitoringService(t *testing.T) {
	t.Run("Should use the defaults when no config is given", func(t *testing.T) {
		service, err := NewMonitoringService(t.Context(), nil)
		require.NoError(t, err)
		assert.False(t, service.IsInitialized())
		assert.Equal(t, "/metrics", service.Path())
		assert.NotNil(t, service.Meter())
	})

	t.Run("Should fail with an invalid config", func(t *testing.T) {
		_, err := NewMonitoringService(t.Context(), &Config{Enabled: true})
		assert.ErrorContains(t, err, "monitoring path cannot be empty")
	})

	t.Run("Should degrade to a no-op service", func(t *testing.T) {
		service := NewMonitoringServiceWithFallback(t.Context(), &Config{Enabled: true, Path: "bad"})
		assert.False(t, service.IsInitialized())
		assert.Error(t, service.InitializationError())
	})
}

func TestService_ExporterHandler(t *testing.T) {
	t.Run("Should return 503 when disabled", func(t *testing.T) {
		service, err := NewMonitoringService(t.Context(), DefaultConfig())
		require.NoError(t, err)
		w := httptest.NewRecorder()
		service.ExporterHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Should expose request metrics when enabled", func(t *testing.T) {
		t.Cleanup(ResetSystemMetricsForTesting)
		service, err := NewMonitoringService(t.Context(), &Config{Enabled: true, Path: "/metrics"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = service.Shutdown(t.Context()) })
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(service.GinMiddleware())
		router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		router.GET(service.Path(), gin.WrapH(service.ExporterHandler()))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", http.NoBody))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
		require.Equal(t, http.StatusOK, w.Code)
		body, err := io.ReadAll(w.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "conduit_build_info")
	})
}
