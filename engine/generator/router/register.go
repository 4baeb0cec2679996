package genrouter

import "github.com/gin-gonic/gin"

func Register(apiBase *gin.RouterGroup) {
	integrationsGroup := apiBase.Group("/integrations")
	{
		// GET /api/v1/integrations/:integration_id/export.tar
		// Generate the project of a stored integration
		integrationsGroup.GET("/:integration_id/export.tar", exportIntegration)

		// POST /api/v1/integrations/export.tar
		// Generate the project of the integration sent in the body
		integrationsGroup.POST("/export.tar", exportIntegrationBody)

		// GET /api/v1/integrations/:integration_id/properties
		// Render the application properties of a stored integration
		integrationsGroup.GET("/:integration_id/properties", getIntegrationProperties)
	}
}
