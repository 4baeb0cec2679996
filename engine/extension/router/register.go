package extrouter

import (
	"github.com/gin-gonic/gin"

	"github.com/compozy/conduit/engine/infra/server/middleware/size"
)

// maxUploadSize bounds extension binaries accepted by the upload route.
const maxUploadSize int64 = 64 << 20

func Register(apiBase *gin.RouterGroup) {
	extensionsGroup := apiBase.Group("/extensions")
	{
		// POST /api/v1/extensions
		// Upload an extension binary as a draft
		extensionsGroup.POST("", size.BodySizeLimiter(maxUploadSize), uploadExtension)

		// GET /api/v1/extensions
		// List extensions, installed ones by default
		extensionsGroup.GET("", listExtensions)

		// POST /api/v1/extensions/validation
		// Validate an extension definition sent in the body
		extensionsGroup.POST("/validation", validateExtension)

		// GET /api/v1/extensions/:extension_id
		// Get a stored extension
		extensionsGroup.GET("/:extension_id", getExtension)

		// DELETE /api/v1/extensions/:extension_id
		// Mark an extension deleted
		extensionsGroup.DELETE("/:extension_id", deleteExtension)

		// POST /api/v1/extensions/:extension_id/validation
		// Validate a stored extension
		extensionsGroup.POST("/:extension_id/validation", validateExtensionByID)

		// POST /api/v1/extensions/:extension_id/install
		// Install a draft
		extensionsGroup.POST("/:extension_id/install", installExtension)

		// GET /api/v1/extensions/:extension_id/integrations
		// List published integrations using the extension
		extensionsGroup.GET("/:extension_id/integrations", listExtensionIntegrations)

		// GET /api/v1/extensions/:extension_id/icon
		// Serve the icon bundled in the binary
		extensionsGroup.GET("/:extension_id/icon", getExtensionIcon)
	}
}
