package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compozy/conduit/engine/infra/server/router"
	"github.com/compozy/conduit/engine/resources"
)

const healthCheckTimeout = 2 * time.Second

// HealthResponse reports the server version and store reachability.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Ready   bool   `json:"ready"`
	Store   string `json:"store"`
}

// CreateHealthHandler returns the health endpoint.
//
//	@Summary      Get server health
//	@Description  Returns the service version and whether the resource store answers
//	@Tags         health
//	@Produce      json
//	@Success      200 {object} router.Response{data=HealthResponse}
//	@Failure      503 {object} router.Response{data=HealthResponse}
//	@Router       /api/v1/health [get]
func CreateHealthHandler(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := router.GetAppState(c)
		if state == nil {
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		resp := HealthResponse{Status: "healthy", Version: version, Ready: true, Store: "ok"}
		if _, err := state.Resources.Store().List(ctx, resources.ResourceIntegration); err != nil {
			resp.Status = "degraded"
			resp.Ready = false
			resp.Store = err.Error()
		}
		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, router.Response{Status: status, Message: "Success", Data: resp})
	}
}
